package monitor

import (
	"sync"

	"github.com/xsparkiex/buildmonitor/crawler"
	"github.com/xsparkiex/buildmonitor/errors"
)

// ErrHandleNotFound is returned by Registry.Get/Destroy for an unknown
// handle.
var ErrHandleNotFound = errors.New("monitor: unknown handle")

// Registry is a process-wide service object mapping integer handles to
// Monitor instances, for foreign callers (a CLI managing several
// monitors, or a future C-ABI) that can't hold a Go pointer directly.
// Handle allocation policy is "lowest unused positive integer" — not an
// implicit global; callers construct their own Registry.
type Registry struct {
	mu       sync.Mutex
	monitors map[int]*Monitor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{monitors: make(map[int]*Monitor)}
}

// Create constructs a Monitor for rootURL and returns its newly
// allocated handle.
func (r *Registry) Create(rootURL string, c crawler.Crawler) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := 1
	for {
		if _, taken := r.monitors[handle]; !taken {
			break
		}
		handle++
	}
	r.monitors[handle] = New(rootURL, c)
	return handle
}

// Get returns the Monitor for handle.
func (r *Registry) Get(handle int) (*Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[handle]
	if !ok {
		return nil, ErrHandleNotFound
	}
	return m, nil
}

// Destroy removes handle from the registry. The caller is responsible
// for stopping any transports on the Monitor first.
func (r *Registry) Destroy(handle int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.monitors[handle]; !ok {
		return ErrHandleNotFound
	}
	delete(r.monitors, handle)
	return nil
}
