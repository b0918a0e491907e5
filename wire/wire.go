// Package wire implements the binary framing used between build-monitor
// peers. The protocol is intentionally symmetric at the framing layer —
// every datagram starts with a fixed Header followed by a message-type
// specific payload, little-endian throughout. There is no negotiation:
// a peer that sees a version mismatch drops the datagram silently.
package wire

import (
	"encoding/binary"

	"github.com/xsparkiex/buildmonitor/errors"
)

// ProtocolVersion is bumped whenever the wire format changes incompatibly.
// Peers running different versions ignore each other's datagrams.
const ProtocolVersion uint32 = 1

// HeaderSize is the fixed size, in bytes, of Header on the wire.
const HeaderSize = 12

// MsgType enumerates the datagram kinds exchanged between peers, encoded
// as a u32 discriminant in declaration order.
type MsgType uint32

const (
	MsgInvalid MsgType = iota
	MsgBeacon
	MsgProjectUpdate
	MsgNoProjectUpdate
	MsgProjectUpdateRequest
	MsgVolunteerAdded
)

func (t MsgType) String() string {
	switch t {
	case MsgBeacon:
		return "Beacon"
	case MsgProjectUpdate:
		return "ProjectUpdate"
	case MsgNoProjectUpdate:
		return "NoProjectUpdate"
	case MsgProjectUpdateRequest:
		return "ProjectUpdateRequest"
	case MsgVolunteerAdded:
		return "VolunteerAdded"
	default:
		return "Invalid"
	}
}

// Header is the fixed-size prefix on every datagram.
type Header struct {
	Version uint32
	MsgSize uint32
	Type    MsgType
}

// Encode concatenates a header with an already-serialized payload,
// stamping MsgSize from the payload's actual length.
func Encode(h Header, payload []byte) []byte {
	h.MsgSize = uint32(len(payload))
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, h.Encode()...)
	buf = append(buf, payload...)
	return buf
}

// Encode serializes just the header to its 12-byte wire representation,
// using whatever MsgSize is currently set on h.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Version)
	binary.LittleEndian.PutUint32(buf[4:8], h.MsgSize)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Type))
	return buf
}

// Decode splits a raw datagram into its header, the payload bytes declared
// by the header, and any remainder past that. It fails with a MalformedFrame
// style error if fewer bytes are present than the header declares or if
// msg_type is unrecognized. Version mismatches are NOT an error here — the
// caller is responsible for dropping those per the protocol's silent-drop
// rule, since detecting the mismatch requires comparing against the
// caller's own ProtocolVersion.
func Decode(buf []byte) (Header, []byte, []byte, error) {
	if len(buf) < HeaderSize {
		return Header{}, nil, nil, errors.Newf("wire: short header, got %d bytes want %d", len(buf), HeaderSize)
	}
	h := Header{
		Version: binary.LittleEndian.Uint32(buf[0:4]),
		MsgSize: binary.LittleEndian.Uint32(buf[4:8]),
		Type:    MsgType(binary.LittleEndian.Uint32(buf[8:12])),
	}
	if h.Type > MsgVolunteerAdded {
		return Header{}, nil, nil, errors.Newf("wire: unknown msg_type %d", h.Type)
	}
	rest := buf[HeaderSize:]
	if uint64(h.MsgSize) > uint64(len(rest)) {
		return Header{}, nil, nil, errors.Newf("wire: msg_size %d exceeds remaining %d bytes", h.MsgSize, len(rest))
	}
	payload := rest[:h.MsgSize]
	remainder := rest[h.MsgSize:]
	return h, payload, remainder, nil
}

// EncodeProjectUpdateRequest serializes the 8-byte hash payload.
func EncodeProjectUpdateRequest(hash uint64) []byte {
	return PutUint64(nil, hash)
}

// DecodeProjectUpdateRequest parses the 8-byte hash payload.
func DecodeProjectUpdateRequest(payload []byte) (uint64, error) {
	hash, _, err := GetUint64(payload)
	return hash, err
}

// EncodeVolunteerAdded serializes {id:u64, volunteer:string}.
func EncodeVolunteerAdded(id uint64, volunteer string) []byte {
	buf := PutUint64(nil, id)
	buf = PutString(buf, volunteer)
	return buf
}

// DecodeVolunteerAdded parses {id:u64, volunteer:string}.
func DecodeVolunteerAdded(payload []byte) (id uint64, volunteer string, err error) {
	id, rest, err := GetUint64(payload)
	if err != nil {
		return 0, "", err
	}
	volunteer, _, err = GetString(rest)
	if err != nil {
		return 0, "", err
	}
	return id, volunteer, nil
}

// PutString writes a length-prefixed (u64 LE count) UTF-8 string.
func PutString(buf []byte, s string) []byte {
	buf = PutUint64(buf, uint64(len(s)))
	return append(buf, s...)
}

// GetString reads a length-prefixed string from buf, returning the
// decoded value and the remaining unread bytes.
func GetString(buf []byte) (string, []byte, error) {
	n, rest, err := GetUint64(buf)
	if err != nil {
		return "", nil, errors.Wrap(err, "wire: string length")
	}
	if uint64(len(rest)) < n {
		return "", nil, errors.Newf("wire: truncated string body, want %d have %d", n, len(rest))
	}
	return string(rest[:n]), rest[n:], nil
}

// PutSeqCount writes a u64 element count header for a sequence.
func PutSeqCount(buf []byte, n uint64) []byte {
	return PutUint64(buf, n)
}

// GetSeqCount reads a u64 element count header for a sequence.
func GetSeqCount(buf []byte) (uint64, []byte, error) {
	return GetUint64(buf)
}

// PutUint64 appends a little-endian u64.
func PutUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// GetUint64 reads a little-endian u64 from the front of buf.
func GetUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, errors.New("wire: truncated uint64")
	}
	return binary.LittleEndian.Uint64(buf[0:8]), buf[8:], nil
}

// PutUint32 appends a little-endian u32 (used for enum discriminants).
func PutUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// GetUint32 reads a little-endian u32 from the front of buf.
func GetUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, errors.New("wire: truncated uint32")
	}
	return binary.LittleEndian.Uint32(buf[0:4]), buf[4:], nil
}

// PutBool appends a single-byte boolean.
func PutBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// GetBool reads a single-byte boolean from the front of buf.
func GetBool(buf []byte) (bool, []byte, error) {
	if len(buf) < 1 {
		return false, nil, errors.New("wire: truncated bool")
	}
	return buf[0] != 0, buf[1:], nil
}
