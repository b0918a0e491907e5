package project

import "sync"

// Cache is the shared, ordered project list backing a Monitor. Many
// concurrent readers or exactly one writer; replaced wholesale on
// refresh, mutated in place by volunteer application.
type Cache struct {
	mu       sync.RWMutex
	projects []Project
	hash     uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Snapshot returns a copy of the current project list, safe to read
// without holding any further lock.
func (c *Cache) Snapshot() []Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Project, len(c.projects))
	copy(out, c.projects)
	return out
}

// Len reports the number of projects currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.projects)
}

// Replace swaps in a new project list wholesale, sorting it by
// (folder, name) first, and recomputes the content hash. It returns
// true if the content hash changed as a result.
func (c *Cache) Replace(projects []Project) bool {
	sorted := make([]Project, len(projects))
	copy(sorted, projects)
	SortByFolderAndName(sorted)
	newHash := ContentHash(sorted)

	c.mu.Lock()
	defer c.mu.Unlock()
	changed := newHash != c.hash || len(c.projects) != len(sorted)
	c.projects = sorted
	c.hash = newHash
	return changed
}

// ApplyVolunteer sets the volunteer field on the project with the given
// id and reports whether the cache was actually mutated. It returns
// false if no project with that id exists, and false if the matching
// project's status is Success: a build that already succeeded silently
// discards any volunteer claim rather than recording one.
func (c *Cache) ApplyVolunteer(id uint64, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.projects {
		if c.projects[i].ID != id {
			continue
		}
		if c.projects[i].Status == StatusSuccess {
			return false
		}
		c.projects[i].Volunteer = name
		c.hash = ContentHash(c.projects)
		return true
	}
	return false
}

// ContentHash returns the cache's current 64-bit content digest.
func (c *Cache) ContentHash() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hash
}
