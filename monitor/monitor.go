// Package monitor implements the Monitor facade: lifecycle, role
// selection, and refresh orchestration tying together the project
// cache, the external crawler, and whichever transport (if any) is
// attached.
package monitor

import (
	"context"
	"sync"

	"github.com/xsparkiex/buildmonitor/crawler"
	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/project"
	"github.com/xsparkiex/buildmonitor/transport"
	"github.com/xsparkiex/buildmonitor/transport/multicast"
	"github.com/xsparkiex/buildmonitor/transport/query"
)

// Role is the Monitor's current mode of use. Roles are mutually
// exclusive modes, not enforced states: nothing stops a caller from
// attaching both a server and a client transport, but the rest of this
// package assumes at most one of each is active at a time.
type Role int

const (
	RoleOffline Role = iota
	RoleServer
	RoleClient
)

var (
	// ErrNotConfigured is returned by SetVolunteering when offline.
	ErrNotConfigured = errors.New("monitor: not configured (offline)")
)

// Monitor ties together the project cache, the crawler, and the
// currently-attached transport (if any).
type Monitor struct {
	RootURL string
	Crawler crawler.Crawler
	Cache   *project.Cache

	mu                sync.Mutex
	serverTransport   transport.Transport
	clientTransport   transport.Transport
	rememberedVolunteers map[uint64]string
}

// New constructs an offline Monitor over an empty cache.
func New(rootURL string, c crawler.Crawler) *Monitor {
	return &Monitor{
		RootURL:              rootURL,
		Crawler:               c,
		Cache:                 project.NewCache(),
		rememberedVolunteers:  make(map[uint64]string),
	}
}

// Role reports the Monitor's current role, inferred from which
// transport (if any) is attached.
func (m *Monitor) Role() Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.serverTransport != nil:
		return RoleServer
	case m.clientTransport != nil:
		return RoleClient
	default:
		return RoleOffline
	}
}

// RefreshProjects brings the cache up to date and reports whether its
// content hash changed. On the client role it drains the transport's
// latest-received snapshot; otherwise it crawls fresh via the Crawler,
// reapplying remembered volunteers except where the new status is
// Success (success implicitly clears any claim). On a hash change with
// a server transport attached, the transport is told to re-broadcast.
func (m *Monitor) RefreshProjects(ctx context.Context) (bool, error) {
	m.mu.Lock()
	clientTransport := m.clientTransport
	serverTransport := m.serverTransport
	m.mu.Unlock()

	var changed bool

	if clientTransport != nil {
		projects, ok := clientTransport.LatestProjects()
		if !ok {
			return false, nil
		}
		changed = m.Cache.Replace(projects)
	} else {
		remembered := m.rememberVolunteers()

		projects, err := m.Crawler.Fetch(ctx, m.RootURL)
		if err != nil {
			return false, errors.Wrap(err, "monitor: refresh crawl failed")
		}
		project.SortByFolderAndName(projects)

		for i := range projects {
			if projects[i].Status == project.StatusSuccess {
				continue
			}
			if name, ok := remembered[projects[i].ID]; ok {
				projects[i].Volunteer = name
			}
		}

		changed = m.Cache.Replace(projects)
	}

	if changed && serverTransport != nil {
		serverTransport.MarkDirty()
	}
	return changed, nil
}

func (m *Monitor) rememberVolunteers() map[uint64]string {
	out := make(map[uint64]string)
	for _, p := range m.Cache.Snapshot() {
		if p.Volunteer != "" {
			out[p.ID] = p.Volunteer
		}
	}
	return out
}

// StartServer attaches and starts a server transport. multicastMode
// selects the push-mode multicast server; otherwise the pull-mode query
// server is used.
func (m *Monitor) StartServer(ctx context.Context, bindAddr, groupAddr string, multicastMode bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serverTransport != nil {
		return errors.New("monitor: server already started")
	}

	var t transport.Transport
	if multicastMode {
		t = multicast.NewServer(multicast.ServerConfig{BindAddr: bindAddr, GroupAddr: groupAddr}, m.Cache)
	} else {
		t = query.NewServer(query.ServerConfig{BindAddr: bindAddr}, m.Cache)
	}

	if err := t.Start(ctx); err != nil {
		return errors.Wrap(err, "monitor: start server")
	}
	m.serverTransport = t
	logger.Infow("monitor: server started", "bind", bindAddr, "multicast", multicastMode)
	return nil
}

// StopServer joins the server transport's I/O goroutine and detaches it.
func (m *Monitor) StopServer() error {
	m.mu.Lock()
	t := m.serverTransport
	m.serverTransport = nil
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Stop()
}

// StartClient attaches and starts a client transport.
func (m *Monitor) StartClient(ctx context.Context, serverAddr, localAddr string, multicastMode bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clientTransport != nil {
		return errors.New("monitor: client already started")
	}

	var t transport.Transport
	if multicastMode {
		t = multicast.NewClient(multicast.ClientConfig{BindAddr: localAddr, GroupAddr: serverAddr})
	} else {
		t = query.NewClient(query.ClientConfig{LocalAddr: localAddr, ServerAddr: serverAddr})
	}

	if err := t.Start(ctx); err != nil {
		return errors.Wrap(err, "monitor: start client")
	}
	m.clientTransport = t
	logger.Infow("monitor: client started", "server", serverAddr, "multicast", multicastMode)
	return nil
}

// StopClient joins the client transport's I/O goroutine and detaches it.
func (m *Monitor) StopClient() error {
	m.mu.Lock()
	t := m.clientTransport
	m.clientTransport = nil
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Stop()
}

// SetVolunteering resolves the local username and claims projectID as
// volunteered for. On the client role this enqueues a VolunteerAdded for
// the server and optimistically updates the local cache; on the server
// role it applies directly and triggers a re-broadcast; offline it
// returns ErrNotConfigured.
func (m *Monitor) SetVolunteering(projectID uint64) error {
	m.mu.Lock()
	clientTransport := m.clientTransport
	serverTransport := m.serverTransport
	m.mu.Unlock()

	name := LocalUsername()

	switch {
	case clientTransport != nil:
		clientTransport.EnqueueVolunteer(projectID, name)
		m.Cache.ApplyVolunteer(projectID, name)
		return nil
	case serverTransport != nil:
		m.Cache.ApplyVolunteer(projectID, name)
		serverTransport.MarkDirty()
		return nil
	default:
		return ErrNotConfigured
	}
}
