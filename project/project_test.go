package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsparkiex/buildmonitor/project"
)

func TestNewIDStableForSameURL(t *testing.T) {
	a := project.NewID("https://ci.example.com/job/foo")
	b := project.NewID("https://ci.example.com/job/foo")
	c := project.NewID("https://ci.example.com/job/bar")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestProjectEncodeDecodeRoundTrip(t *testing.T) {
	p := project.Project{
		ID:                      7,
		Name:                    "build",
		Folder:                  "team-a",
		URL:                     "https://ci/job/build",
		Status:                  project.StatusFailed,
		IsBuilding:              true,
		LastSuccessfulBuildTime: 1000,
		Duration:                2000,
		EstimatedDuration:       2500,
		Timestamp:               3000,
		Culprits:                []string{"alice", "bob"},
		Volunteer:               "carol",
	}

	buf := p.Encode()
	got, remainder, err := project.Decode(buf)
	require.NoError(t, err)
	assert.Empty(t, remainder)
	assert.Equal(t, p, got)
}

func TestSequenceRoundTrip(t *testing.T) {
	projects := []project.Project{
		project.New("https://ci/job/a", "a", "f1"),
		project.New("https://ci/job/b", "b", "f2"),
	}
	buf := project.EncodeSequence(projects)
	got, err := project.DecodeSequence(buf)
	require.NoError(t, err)
	assert.Equal(t, projects, got)
}

func TestContentHashIgnoresUnmixedFields(t *testing.T) {
	p1 := project.New("https://ci/job/a", "a", "f1")
	p1.Status = project.StatusFailed

	p2 := p1
	p2.Name = "renamed" // name excluded from hash mix
	p2.EstimatedDuration = 99999

	assert.Equal(t, project.ContentHash([]project.Project{p1}), project.ContentHash([]project.Project{p2}))
}

func TestContentHashChangesOnStatus(t *testing.T) {
	p1 := project.New("https://ci/job/a", "a", "f1")
	p1.Status = project.StatusFailed
	p2 := p1
	p2.Status = project.StatusSuccess

	assert.NotEqual(t, project.ContentHash([]project.Project{p1}), project.ContentHash([]project.Project{p2}))
}

func TestContentHashChangesOnOrder(t *testing.T) {
	p1 := project.New("https://ci/job/a", "a", "f1")
	p2 := project.New("https://ci/job/b", "b", "f2")
	assert.NotEqual(t,
		project.ContentHash([]project.Project{p1, p2}),
		project.ContentHash([]project.Project{p2, p1}),
	)
}
