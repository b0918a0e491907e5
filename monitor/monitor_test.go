package monitor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsparkiex/buildmonitor/monitor"
	"github.com/xsparkiex/buildmonitor/project"
)

type fakeCrawler struct {
	projects []project.Project
	err      error
}

func (f *fakeCrawler) Fetch(context.Context, string) ([]project.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]project.Project, len(f.projects))
	copy(out, f.projects)
	return out, nil
}

func TestRefreshProjectsCrawlsWhenOffline(t *testing.T) {
	c := &fakeCrawler{projects: []project.Project{project.New("https://ci/job/a", "a", "f")}}
	m := monitor.New("https://ci", c)

	changed, err := m.RefreshProjects(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, m.Cache.Len())
}

func TestRefreshProjectsCrawlErrorLeavesCacheIntact(t *testing.T) {
	c := &fakeCrawler{projects: []project.Project{project.New("https://ci/job/a", "a", "f")}}
	m := monitor.New("https://ci", c)
	_, err := m.RefreshProjects(context.Background())
	require.NoError(t, err)

	c.err = assert.AnError
	changed, err := m.RefreshProjects(context.Background())
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, m.Cache.Len()) // untouched
}

func TestRefreshProjectsReappliesVolunteerUnlessSuccess(t *testing.T) {
	p := project.New("https://ci/job/a", "a", "f")
	p.Status = project.StatusFailed
	c := &fakeCrawler{projects: []project.Project{p}}
	m := monitor.New("https://ci", c)

	_, err := m.RefreshProjects(context.Background())
	require.NoError(t, err)
	require.True(t, m.Cache.ApplyVolunteer(p.ID, "alice"))

	// Next refresh: same project still Failed, volunteer must survive.
	_, err = m.RefreshProjects(context.Background())
	require.NoError(t, err)
	got := m.Cache.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Volunteer)

	// Now the crawler reports Success: volunteer must be cleared.
	success := p
	success.Status = project.StatusSuccess
	c.projects = []project.Project{success}
	_, err = m.RefreshProjects(context.Background())
	require.NoError(t, err)
	got = m.Cache.Snapshot()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Volunteer)
}

func TestSetVolunteeringOfflineErrors(t *testing.T) {
	m := monitor.New("https://ci", &fakeCrawler{})
	err := m.SetVolunteering(1)
	assert.ErrorIs(t, err, monitor.ErrNotConfigured)
}

func TestRegistryLowestUnusedHandle(t *testing.T) {
	r := monitor.NewRegistry()
	c := &fakeCrawler{}

	h1 := r.Create("https://ci/1", c)
	h2 := r.Create("https://ci/2", c)
	assert.Equal(t, 1, h1)
	assert.Equal(t, 2, h2)

	require.NoError(t, r.Destroy(h1))
	h3 := r.Create("https://ci/3", c)
	assert.Equal(t, 1, h3) // lowest unused positive integer, reused

	_, err := r.Get(999)
	assert.ErrorIs(t, err, monitor.ErrHandleNotFound)
}

func TestMonitorServerStartStop(t *testing.T) {
	serverCrawler := &fakeCrawler{projects: []project.Project{project.New("https://ci/job/a", "a", "f")}}
	server := monitor.New("https://ci", serverCrawler)
	ctx := context.Background()

	require.NoError(t, server.StartServer(ctx, "127.0.0.1:0", "", false))
	assert.Equal(t, monitor.RoleServer, server.Role())

	changed, err := server.RefreshProjects(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, server.StopServer())
	assert.Equal(t, monitor.RoleOffline, server.Role())
}
