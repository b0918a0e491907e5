package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsparkiex/buildmonitor/wire"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgBeacon}
	frame := wire.Encode(h, nil)
	require.Len(t, frame, wire.HeaderSize)

	gotH, payload, remainder, err := wire.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, wire.ProtocolVersion, gotH.Version)
	assert.Equal(t, wire.MsgBeacon, gotH.Type)
	assert.Equal(t, uint32(0), gotH.MsgSize)
	assert.Empty(t, payload)
	assert.Empty(t, remainder)
}

func TestProjectUpdateRequestRoundTrip(t *testing.T) {
	payload := wire.EncodeProjectUpdateRequest(0xdeadbeef)
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdateRequest}, payload)

	h, got, remainder, err := wire.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, wire.MsgProjectUpdateRequest, h.Type)
	assert.Empty(t, remainder)

	hash, err := wire.DecodeProjectUpdateRequest(got)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeef), hash)
}

func TestVolunteerAddedRoundTrip(t *testing.T) {
	payload := wire.EncodeVolunteerAdded(42, "alice")
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgVolunteerAdded}, payload)

	_, got, _, err := wire.Decode(frame)
	require.NoError(t, err)

	id, name, err := wire.DecodeVolunteerAdded(got)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "alice", name)
}

func TestDecodeShortHeader(t *testing.T) {
	_, _, _, err := wire.Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeMsgSizeExceedsRemaining(t *testing.T) {
	h := wire.Header{Version: wire.ProtocolVersion, MsgSize: 100, Type: wire.MsgProjectUpdate}
	buf := append(h.Encode(), []byte{1, 2, 3}...)
	_, _, _, err := wire.Decode(buf)
	assert.Error(t, err)
}

func TestDecodeUnknownMsgType(t *testing.T) {
	h := wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgType(99)}
	_, _, _, err := wire.Decode(h.Encode())
	assert.Error(t, err)
}

func TestDecodeKeepsRemainderForMultiMessageBuffers(t *testing.T) {
	first := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgBeacon}, nil)
	second := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgNoProjectUpdate}, nil)
	buf := append(first, second...)

	h1, _, rem, err := wire.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, wire.MsgBeacon, h1.Type)
	assert.Equal(t, second, rem)
}
