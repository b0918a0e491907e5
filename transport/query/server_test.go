package query

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsparkiex/buildmonitor/project"
	"github.com/xsparkiex/buildmonitor/wire"
)

func startTestServer(t *testing.T, cache *project.Cache) (*Server, *net.UDPConn) {
	t.Helper()
	s := NewServer(ServerConfig{BindAddr: "127.0.0.1:0"}, cache)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })
	return s, clientConn
}

// S2: server cache hash == client's claimed hash yields NoProjectUpdate.
func TestQueryServerNoChangeReply(t *testing.T) {
	cache := project.NewCache()
	cache.Replace([]project.Project{project.New("https://ci/job/a", "a", "f")})
	s, clientConn := startTestServer(t, cache)

	req := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdateRequest},
		wire.EncodeProjectUpdateRequest(cache.ContentHash()))
	_, err := clientConn.WriteToUDP(req, s.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	buf := make([]byte, 65536)
	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := clientConn.Read(buf)
	require.NoError(t, err)

	h, _, _, err := wire.Decode(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, wire.MsgNoProjectUpdate, h.Type)
}

// S3: a stale/zero hash yields a full ProjectUpdate.
func TestQueryServerChangeReply(t *testing.T) {
	cache := project.NewCache()
	cache.Replace([]project.Project{project.New("https://ci/job/a", "a", "f")})
	s, clientConn := startTestServer(t, cache)

	req := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdateRequest},
		wire.EncodeProjectUpdateRequest(0))
	_, err := clientConn.WriteToUDP(req, s.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	buf := make([]byte, 65536)
	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := clientConn.Read(buf)
	require.NoError(t, err)

	h, payload, _, err := wire.Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, wire.MsgProjectUpdate, h.Type)

	projects, err := project.DecodeSequence(payload)
	require.NoError(t, err)
	assert.Equal(t, cache.ContentHash(), project.ContentHash(projects))
}

// S4: volunteer apply via the query server on a failed project.
func TestQueryServerVolunteerApply(t *testing.T) {
	p := project.New("https://ci/job/a", "a", "f")
	p.Status = project.StatusFailed
	cache := project.NewCache()
	cache.Replace([]project.Project{p})
	s, clientConn := startTestServer(t, cache)

	vol := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgVolunteerAdded},
		wire.EncodeVolunteerAdded(p.ID, "alice"))
	_, err := clientConn.WriteToUDP(vol, s.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got := cache.Snapshot()
		return len(got) == 1 && got[0].Volunteer == "alice"
	}, 2*time.Second, 10*time.Millisecond)
}

// S6: mismatched version gets no reply.
func TestQueryServerVersionMismatchDropped(t *testing.T) {
	cache := project.NewCache()
	cache.Replace([]project.Project{project.New("https://ci/job/a", "a", "f")})
	s, clientConn := startTestServer(t, cache)

	req := wire.Encode(wire.Header{Version: wire.ProtocolVersion + 1, Type: wire.MsgProjectUpdateRequest},
		wire.EncodeProjectUpdateRequest(0))
	_, err := clientConn.WriteToUDP(req, s.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	_ = clientConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 65536)
	_, err = clientConn.Read(buf)
	assert.Error(t, err) // deadline exceeded: no reply was sent
}
