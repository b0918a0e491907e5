// Package transport defines the capability both wire-level transports
// (multicast and query) implement, plus small shared building blocks
// (the pending-volunteer queue, the latest-projects buffer) common to
// both client-side implementations.
package transport

import (
	"context"
	"sync"

	"github.com/xsparkiex/buildmonitor/project"
)

// Transport is the polymorphic capability the Monitor depends on. Both
// multicast and query variants implement it identically from the
// Monitor's point of view; they differ only in their I/O loop bodies.
type Transport interface {
	// Start begins the transport's I/O goroutine. It returns once the
	// goroutine is running, or with an error if the socket could not be
	// set up (BindFailed / JoinGroupFailed).
	Start(ctx context.Context) error

	// Stop signals the I/O goroutine to exit and waits for it to do so.
	Stop() error

	// LatestProjects returns the most recently received project list on
	// a client transport, and whether anything has been received yet.
	// Servers always return (nil, false).
	LatestProjects() ([]project.Project, bool)

	// EnqueueVolunteer queues a volunteer announcement to be sent on the
	// transport's next loop iteration. No-op on a server transport.
	EnqueueVolunteer(id uint64, name string)

	// MarkDirty signals the transport that the cache changed and, on a
	// server, that the next loop iteration should re-broadcast.
	MarkDirty()
}

// PendingVolunteer is one queued, not-yet-sent volunteer announcement.
type PendingVolunteer struct {
	ID   uint64
	Name string
}

// VolunteerQueue is the shared pending-volunteer buffer used by both
// client transports. It is protected by its own mutex, separate from
// the lock of the transport's LatestProjects buffer.
type VolunteerQueue struct {
	mu    sync.Mutex
	items []PendingVolunteer
}

// Push queues a volunteer announcement for the next loop iteration.
func (q *VolunteerQueue) Push(id uint64, name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, PendingVolunteer{ID: id, Name: name})
}

// Drain returns and clears all queued volunteers.
func (q *VolunteerQueue) Drain() []PendingVolunteer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// LatestProjects is the shared client-side receive buffer, holding the
// most recent project list a transport has decoded off the wire.
type LatestProjects struct {
	mu       sync.RWMutex
	projects []project.Project
	received bool
}

// Set replaces the buffered project list.
func (l *LatestProjects) Set(projects []project.Project) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.projects = projects
	l.received = true
}

// Get returns a copy of the buffered project list and whether anything
// has been received yet.
func (l *LatestProjects) Get() ([]project.Project, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.received {
		return nil, false
	}
	out := make([]project.Project, len(l.projects))
	copy(out, l.projects)
	return out, true
}
