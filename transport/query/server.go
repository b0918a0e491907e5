// Package query implements the pull-mode transport: a server that
// replies to unicast requests with either the full project list or a
// "no change" marker, and a client that polls on an interval and
// compares content hashes to avoid redundant transfers.
package query

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/project"
	"github.com/xsparkiex/buildmonitor/transport"
	"github.com/xsparkiex/buildmonitor/wire"
)

var _ transport.Transport = (*Server)(nil)

const (
	serverLoopInterval = 5 * time.Millisecond
	recvBufferSize     = 1 << 20
)

// ServerConfig configures a query server transport.
type ServerConfig struct {
	// BindAddr is the local unicast address to bind, e.g. "0.0.0.0:8090".
	BindAddr string
}

// Server is the pull-mode server transport: no beacon, it only answers
// ProjectUpdateRequests and applies VolunteerAdded messages.
type Server struct {
	cfg   ServerConfig
	cache *project.Cache

	conn *net.UDPConn

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer constructs a query server transport.
func NewServer(cfg ServerConfig, cache *project.Cache) *Server {
	return &Server{cfg: cfg, cache: cache}
}

func (s *Server) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp4", s.cfg.BindAddr)
	if err != nil {
		return errors.Wrapf(err, "query: resolve bind address %s", s.cfg.BindAddr)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return errors.Wrapf(err, "query: bind %s", s.cfg.BindAddr)
	}
	s.conn = conn

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
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Server) LatestProjects() ([]project.Project, bool) { return nil, false }
func (s *Server) EnqueueVolunteer(uint64, string)            {}
func (s *Server) MarkDirty()                                 {} // no beacon/broadcast to trigger in pull mode

func (s *Server) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(serverLoopInterval)
	defer ticker.Stop()

	buf := make([]byte, recvBufferSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(serverLoopInterval))
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			logger.Warnw("query server: receive error", "error", err)
			continue
		}
		s.handleFrame(buf[:n], from)
	}
}

func (s *Server) handleFrame(raw []byte, from *net.UDPAddr) {
	h, payload, _, err := wire.Decode(raw)
	if err != nil {
		return
	}
	if h.Version != wire.ProtocolVersion {
		return
	}

	switch h.Type {
	case wire.MsgProjectUpdateRequest:
		clientHash, err := wire.DecodeProjectUpdateRequest(payload)
		if err != nil {
			return
		}
		s.reply(from, clientHash)

	case wire.MsgVolunteerAdded:
		id, name, err := wire.DecodeVolunteerAdded(payload)
		if err != nil {
			return
		}
		s.cache.ApplyVolunteer(id, name)
	}
}

func (s *Server) reply(to *net.UDPAddr, clientHash uint64) {
	if clientHash == s.cache.ContentHash() {
		frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgNoProjectUpdate}, nil)
		if _, err := s.conn.WriteToUDP(frame, to); err != nil {
			logger.Warnw("query server: reply failed", "error", err)
		}
		return
	}

	payload := project.EncodeSequence(s.cache.Snapshot())
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdate}, payload)
	if _, err := s.conn.WriteToUDP(frame, to); err != nil {
		logger.Warnw("query server: reply failed", "error", err)
	}
}
