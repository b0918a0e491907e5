package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsparkiex/buildmonitor/project"
)

func TestCacheReplaceSortsByFolderThenName(t *testing.T) {
	c := project.NewCache()
	b := project.New("https://ci/job/b", "b", "z-folder")
	a := project.New("https://ci/job/a", "a", "a-folder")

	changed := c.Replace([]project.Project{b, a})
	require.True(t, changed)

	got := c.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "a-folder", got[0].Folder)
	assert.Equal(t, "z-folder", got[1].Folder)
}

func TestCacheReplaceNoChangeReturnsFalse(t *testing.T) {
	c := project.NewCache()
	p := project.New("https://ci/job/a", "a", "f")
	require.True(t, c.Replace([]project.Project{p}))
	require.False(t, c.Replace([]project.Project{p}))
}

func TestApplyVolunteerUnknownID(t *testing.T) {
	c := project.NewCache()
	p := project.New("https://ci/job/a", "a", "f")
	c.Replace([]project.Project{p})

	assert.False(t, c.ApplyVolunteer(p.ID+1, "alice"))
}

func TestApplyVolunteerSetsName(t *testing.T) {
	c := project.NewCache()
	p := project.New("https://ci/job/a", "a", "f")
	p.Status = project.StatusFailed
	c.Replace([]project.Project{p})

	require.True(t, c.ApplyVolunteer(p.ID, "alice"))
	got := c.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Volunteer)
}

func TestApplyVolunteerSuppressedOnSuccess(t *testing.T) {
	c := project.NewCache()
	p := project.New("https://ci/job/a", "a", "f")
	p.Status = project.StatusSuccess
	c.Replace([]project.Project{p})

	require.False(t, c.ApplyVolunteer(p.ID, "alice"))
	got := c.Snapshot()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Volunteer)
}
