package multicast

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/project"
	"github.com/xsparkiex/buildmonitor/transport"
	"github.com/xsparkiex/buildmonitor/wire"
)

var _ transport.Transport = (*Client)(nil)

// ClientConfig configures a multicast client transport.
type ClientConfig struct {
	// BindAddr is the local address to bind, e.g. "0.0.0.0:8091".
	BindAddr string
	// GroupAddr is the multicast group to join, e.g. "239.255.13.37:8090".
	GroupAddr string
}

// Client is the push-mode client transport: it joins the group, waits
// for a Beacon to discover the server, requests the first full list,
// and thereafter simply absorbs ProjectUpdate broadcasts.
type Client struct {
	cfg ClientConfig

	socket *joinedSocket
	group  *net.UDPAddr

	latest    transport.LatestProjects
	queue     transport.VolunteerQueue
	fromAddr  atomicAddr

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient constructs a client transport.
func NewClient(cfg ClientConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Start(ctx context.Context) error {
	group, err := resolveGroup(c.cfg.GroupAddr)
	if err != nil {
		return err
	}
	socket, err := bindAndJoin(c.cfg.BindAddr, group)
	if err != nil {
		return err
	}
	c.socket = socket
	c.group = group

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(loopCtx)
	return nil
}

func (c *Client) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if c.socket != nil {
		return c.socket.Close()
	}
	return nil
}

func (c *Client) LatestProjects() ([]project.Project, bool) { return c.latest.Get() }
func (c *Client) EnqueueVolunteer(id uint64, name string)    { c.queue.Push(id, name) }
func (c *Client) MarkDirty()                                 {}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(loopCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.drainReceiveQueue()
		c.drainVolunteerQueue()
	}
}

func (c *Client) drainReceiveQueue() {
	buf := make([]byte, recvBufferSize)
	for {
		_ = c.socket.conn.SetReadDeadline(time.Now().Add(drainDeadline))
		n, from, err := c.socket.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return
			}
			logger.Warnw("multicast client: receive error", "error", err)
			return
		}
		c.handleFrame(buf[:n], from)
	}
}

func (c *Client) handleFrame(raw []byte, from *net.UDPAddr) {
	h, payload, _, err := wire.Decode(raw)
	if err != nil {
		return
	}
	if h.Version != wire.ProtocolVersion {
		return
	}

	switch h.Type {
	case wire.MsgProjectUpdate:
		projects, err := project.DecodeSequence(payload)
		if err != nil {
			return
		}
		c.latest.Set(projects)

	case wire.MsgBeacon:
		if _, received := c.latest.Get(); received {
			return
		}
		c.fromAddr.store(from)
		c.requestUpdate(from)
	}
}

func (c *Client) requestUpdate(to *net.UDPAddr) {
	payload := wire.EncodeProjectUpdateRequest(0)
	frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgProjectUpdateRequest}, payload)
	if _, err := c.socket.conn.WriteToUDP(frame, to); err != nil {
		logger.Warnw("multicast client: request update failed", "error", err)
	}
}

func (c *Client) drainVolunteerQueue() {
	to := c.fromAddr.load()
	for _, v := range c.queue.Drain() {
		if to == nil {
			continue // silently dropped: server address not known yet
		}
		payload := wire.EncodeVolunteerAdded(v.ID, v.Name)
		frame := wire.Encode(wire.Header{Version: wire.ProtocolVersion, Type: wire.MsgVolunteerAdded}, payload)
		if _, err := c.socket.conn.WriteToUDP(frame, to); err != nil {
			logger.Warnw("multicast client: send volunteer failed", "error", err)
		}
	}
}

// atomicAddr is a tiny mutex-guarded holder for the last-known server
// address, mirroring the spec's "client remembers only the last
// beacon's source address" rule.
type atomicAddr struct {
	mu   sync.RWMutex
	addr *net.UDPAddr
}

func (a *atomicAddr) store(addr *net.UDPAddr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addr = addr
}

func (a *atomicAddr) load() *net.UDPAddr {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.addr
}
