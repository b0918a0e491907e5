package query

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/project"
	"github.com/xsparkiex/buildmonitor/transport"
	"github.com/xsparkiex/buildmonitor/wire"
)

var _ transport.Transport = (*Client)(nil)

const (
	pollInterval = 15 * time.Second
	responseWait = 100 * time.Millisecond
)

// ClientConfig configures a query client transport.
type ClientConfig struct {
	// LocalAddr is the local address to bind, chosen by the caller.
	LocalAddr string
	// ServerAddr is the unicast address of the query server to poll.
	ServerAddr string
}

// Client is the pull-mode client transport: it polls the server on an
// interval, sending its last-known hash so unchanged lists cost a single
// 12-byte reply.
type Client struct {
	cfg ClientConfig

	conn       *net.UDPConn
	serverAddr *net.UDPAddr

	latest        transport.LatestProjects
	queue         transport.VolunteerQueue
	lastKnownHash atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient constructs a query client transport.
func NewClient(cfg ClientConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Start(ctx context.Context) error {
	localAddr, err := net.ResolveUDPAddr("udp4", c.cfg.LocalAddr)
	if err != nil {
		return errors.Wrapf(err, "query: resolve local address %s", c.cfg.LocalAddr)
	}
	serverAddr, err := net.ResolveUDPAddr("udp4", c.cfg.ServerAddr)
	if err != nil {
		return errors.Wrapf(err, "query: resolve server address %s", c.cfg.ServerAddr)
	}
	conn, err := net.ListenUDP("udp4", localAddr)
	if err != nil {
		return errors.Wrapf(err, "query: bind %s", c.cfg.LocalAddr)
	}
	c.conn = conn
	c.serverAddr = serverAddr

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(loopCtx)
	return nil
}

func (c *Client) Stop() error {
	if c.cancel != nil {
		c.cancel() // also breaks the park below, the query-mode "unpark"
	}
	c.wg.Wait()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) LatestProjects() ([]project.Project, bool) { return c.latest.Get() }
func (c *Client) EnqueueVolunteer(id uint64, name string)    { c.queue.Push(id, name) }
func (c *Client) MarkDirty()                                 {}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		c.poll()
		c.drainVolunteerQueue()

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

func (c *Client) poll() {
	payload := wire.EncodeProjectUpdateRequest(c.lastKnownHash.Load())
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdateRequest}, payload)
	if _, err := c.conn.WriteToUDP(frame, c.serverAddr); err != nil {
		logger.Warnw("query client: poll failed", "error", err)
		return
	}

	buf := make([]byte, recvBufferSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(responseWait))
	n, _, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return // no response within the wait window
		}
		logger.Warnw("query client: receive error", "error", err)
		return
	}

	h, payloadBytes, _, err := wire.Decode(buf[:n])
	if err != nil || h.Version != wire.ProtocolVersion {
		return
	}

	switch h.Type {
	case wire.MsgProjectUpdate:
		projects, err := project.DecodeSequence(payloadBytes)
		if err != nil {
			return
		}
		c.latest.Set(projects)
		c.lastKnownHash.Store(project.ContentHash(projects))
	case wire.MsgNoProjectUpdate:
		// no-op
	}
}

func (c *Client) drainVolunteerQueue() {
	for _, v := range c.queue.Drain() {
		payload := wire.EncodeVolunteerAdded(v.ID, v.Name)
		frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgVolunteerAdded}, payload)
		if _, err := c.conn.WriteToUDP(frame, c.serverAddr); err != nil {
			logger.Warnw("query client: send volunteer failed", "error", err)
		}
	}
}
