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

func TestClientPollReceivesProjectUpdate(t *testing.T) {
	cache := project.NewCache()
	cache.Replace([]project.Project{project.New("https://ci/job/a", "a", "f")})
	s := NewServer(ServerConfig{BindAddr: "127.0.0.1:0"}, cache)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })

	c := NewClient(ClientConfig{LocalAddr: "127.0.0.1:0", ServerAddr: s.conn.LocalAddr().String()})
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	c.conn = conn
	c.serverAddr = s.conn.LocalAddr().(*net.UDPAddr)
	t.Cleanup(func() { conn.Close() })

	c.poll()

	got, received := c.LatestProjects()
	require.True(t, received)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(cache.ContentHash()), c.lastKnownHash.Load())
}

func TestClientPollNoChangeLeavesLatestAlone(t *testing.T) {
	cache := project.NewCache()
	cache.Replace([]project.Project{project.New("https://ci/job/a", "a", "f")})
	s := NewServer(ServerConfig{BindAddr: "127.0.0.1:0"}, cache)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })

	c := NewClient(ClientConfig{LocalAddr: "127.0.0.1:0", ServerAddr: s.conn.LocalAddr().String()})
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	c.conn = conn
	c.serverAddr = s.conn.LocalAddr().(*net.UDPAddr)
	t.Cleanup(func() { conn.Close() })

	c.lastKnownHash.Store(cache.ContentHash())
	c.poll()

	_, received := c.LatestProjects()
	assert.False(t, received) // NoProjectUpdate never populates latest
}

func TestClientDrainVolunteerQueueSendsToServer(t *testing.T) {
	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close() })

	c := NewClient(ClientConfig{})
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	c.conn = conn
	c.serverAddr = serverConn.LocalAddr().(*net.UDPAddr)
	t.Cleanup(func() { conn.Close() })

	c.EnqueueVolunteer(7, "alice")
	c.drainVolunteerQueue()

	buf := make([]byte, 65536)
	_ = serverConn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := serverConn.Read(buf)
	require.NoError(t, err)

	_, payload, _, err := wire.Decode(buf[:n])
	require.NoError(t, err)
	id, name, err := wire.DecodeVolunteerAdded(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.Equal(t, "alice", name)
}
