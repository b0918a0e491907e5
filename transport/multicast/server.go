package multicast

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/project"
	"github.com/xsparkiex/buildmonitor/transport"
	"github.com/xsparkiex/buildmonitor/wire"
)

var _ transport.Transport = (*Server)(nil)

const (
	loopCadence    = 500 * time.Millisecond
	beaconInterval = 1 * time.Second
	drainDeadline  = 50 * time.Millisecond
	recvBufferSize = 1 << 20 // 1 MiB, matching the recommended max payload
)

// ServerConfig configures a multicast server transport.
type ServerConfig struct {
	// BindAddr is the local address to bind, e.g. "0.0.0.0:8090".
	BindAddr string
	// GroupAddr is the multicast group to join and broadcast to,
	// e.g. "239.255.13.37:8090".
	GroupAddr string
}

// Server is the push-mode server transport: it beacons its presence,
// answers ProjectUpdateRequests, applies VolunteerAdded messages to the
// cache, and re-broadcasts on change.
type Server struct {
	cfg   ServerConfig
	cache *project.Cache

	socket *joinedSocket
	group  *net.UDPAddr

	needsRefresh atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer constructs a server transport bound to the cache it will
// read from and apply volunteers into.
func NewServer(cfg ServerConfig, cache *project.Cache) *Server {
	return &Server{cfg: cfg, cache: cache}
}

func (s *Server) Start(ctx context.Context) error {
	group, err := resolveGroup(s.cfg.GroupAddr)
	if err != nil {
		return err
	}
	socket, err := bindAndJoin(s.cfg.BindAddr, group)
	if err != nil {
		return err
	}
	s.socket = socket
	s.group = group

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(loopCtx)
	return nil
}

func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.socket != nil {
		return s.socket.Close()
	}
	return nil
}

func (s *Server) LatestProjects() ([]project.Project, bool) { return nil, false }
func (s *Server) EnqueueVolunteer(uint64, string)            {}
func (s *Server) MarkDirty()                                 { s.needsRefresh.Store(true) }

func (s *Server) run(ctx context.Context) {
	defer s.wg.Done()

	lastBeacon := time.Time{}
	ticker := time.NewTicker(loopCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.drainReceiveQueue()

		if s.needsRefresh.Swap(false) {
			s.broadcastProjectUpdate()
		}

		if time.Since(lastBeacon) >= beaconInterval {
			s.sendBeacon()
			lastBeacon = time.Now()
		}
	}
}

func (s *Server) drainReceiveQueue() {
	buf := make([]byte, recvBufferSize)
	for {
		_ = s.socket.conn.SetReadDeadline(time.Now().Add(drainDeadline))
		n, from, err := s.socket.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return // WouldBlock equivalent: queue is empty
			}
			logger.Warnw("multicast server: receive error", "error", err)
			return
		}
		s.handleFrame(buf[:n], from)
	}
}

func (s *Server) handleFrame(raw []byte, from *net.UDPAddr) {
	h, payload, _, err := wire.Decode(raw)
	if err != nil {
		return // malformed frame: dropped silently
	}
	if h.Version != wire.ProtocolVersion {
		return // version mismatch: dropped silently
	}

	switch h.Type {
	case wire.MsgProjectUpdateRequest:
		if _, err := wire.DecodeProjectUpdateRequest(payload); err != nil {
			return
		}
		s.sendProjectUpdate(from)

	case wire.MsgVolunteerAdded:
		id, name, err := wire.DecodeVolunteerAdded(payload)
		if err != nil {
			return
		}
		if s.cache.ApplyVolunteer(id, name) {
			s.needsRefresh.Store(true)
		}
	}
}

func (s *Server) sendProjectUpdate(to *net.UDPAddr) {
	payload := project.EncodeSequence(s.cache.Snapshot())
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdate}, payload)
	if _, err := s.socket.conn.WriteToUDP(frame, to); err != nil {
		logger.Warnw("multicast server: send project update failed", "to", to, "error", err)
	}
}

func (s *Server) broadcastProjectUpdate() {
	payload := project.EncodeSequence(s.cache.Snapshot())
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdate}, payload)
	if _, err := s.socket.conn.WriteToUDP(frame, s.group); err != nil {
		logger.Warnw("multicast server: broadcast failed", "error", err)
	}
}

func (s *Server) sendBeacon() {
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgBeacon}, nil)
	if _, err := s.socket.conn.WriteToUDP(frame, s.group); err != nil {
		logger.Warnw("multicast server: beacon failed", "error", err)
	}
}
