package multicast

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsparkiex/buildmonitor/project"
	"github.com/xsparkiex/buildmonitor/wire"
)

func TestClientHandleFrameProjectUpdateStoresLatest(t *testing.T) {
	clientConn, _ := loopbackPair(t)
	c := &Client{socket: &joinedSocket{conn: clientConn}}

	projects := []project.Project{project.New("https://ci/job/a", "a", "f")}
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdate},
		project.EncodeSequence(projects))

	c.handleFrame(frame, nil)

	got, received := c.LatestProjects()
	require.True(t, received)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
}

func TestClientHandleFrameBeaconBeforeFirstUpdateRequestsSync(t *testing.T) {
	serverConn, clientConn := loopbackPair(t)
	c := &Client{socket: &joinedSocket{conn: clientConn}}

	beacon := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgBeacon}, nil)
	c.handleFrame(beacon, serverConn.LocalAddr().(*net.UDPAddr))

	buf := make([]byte, 65536)
	n, err := serverConn.Read(buf)
	require.NoError(t, err)

	h, payload, _, err := wire.Decode(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, wire.MsgProjectUpdateRequest, h.Type)

	hash, err := wire.DecodeProjectUpdateRequest(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), hash)

	assert.Equal(t, serverConn.LocalAddr().String(), c.fromAddr.load().String())
}

func TestClientIgnoresBeaconAfterFirstUpdate(t *testing.T) {
	clientConn, _ := loopbackPair(t)
	c := &Client{socket: &joinedSocket{conn: clientConn}}
	c.latest.Set([]project.Project{project.New("https://ci/job/a", "a", "f")})

	beacon := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgBeacon}, nil)
	c.handleFrame(beacon, nil) // must not panic or block on a reply

	assert.Nil(t, c.fromAddr.load())
}

func TestClientDrainVolunteerQueueDropsWhenServerUnknown(t *testing.T) {
	clientConn, _ := loopbackPair(t)
	c := &Client{socket: &joinedSocket{conn: clientConn}}
	c.EnqueueVolunteer(1, "alice")

	c.drainVolunteerQueue() // must not panic; silently dropped

	assert.Empty(t, c.queue.Drain())
}
