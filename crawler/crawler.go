// Package crawler defines the external-collaborator contract the
// Monitor uses to obtain a fresh project snapshot, plus a concrete
// Jenkins-flavored implementation of it. The Monitor itself never knows
// about HTTP or JSON; it only calls Crawler.Fetch.
package crawler

import (
	"context"

	"github.com/xsparkiex/buildmonitor/project"
)

// Crawler fetches a fresh, flat snapshot of every project reachable from
// rootURL. Implementations may fail with transport-layer or parse errors;
// on error the caller must leave its prior cache untouched.
type Crawler interface {
	Fetch(ctx context.Context, rootURL string) ([]project.Project, error)
}
