// Package project defines the build-job domain entity, its CI status
// vocabulary, and the concurrently-readable cache that holds the current
// snapshot shared between a Monitor and its transport.
package project

import (
	"hash/fnv"
	"sort"

	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/wire"
)

// Status is a CI job's build status, encoded on the wire as a u32
// discriminant in declaration order.
type Status uint32

const (
	StatusSuccess Status = iota
	StatusUnstable
	StatusFailed
	StatusNotBuilt
	StatusAborted
	StatusDisabled
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusUnstable:
		return "Unstable"
	case StatusFailed:
		return "Failed"
	case StatusNotBuilt:
		return "NotBuilt"
	case StatusAborted:
		return "Aborted"
	case StatusDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Project is one CI job as tracked by the monitor.
type Project struct {
	ID       uint64
	Name     string
	Folder   string
	URL      string
	Status   Status
	IsBuilding bool

	LastSuccessfulBuildTime uint64 // epoch ms
	Duration                uint64 // ms
	EstimatedDuration        uint64 // ms
	Timestamp               uint64 // epoch ms

	Culprits  []string
	Volunteer string
}

// NewID computes the stable 64-bit identity for a job URL. Two projects
// built from the same URL always produce the same ID, regardless of when
// or where they were constructed.
func NewID(url string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(url))
	return h.Sum64()
}

// New constructs a Project, deriving ID from url.
func New(url, name, folder string) Project {
	return Project{
		ID:     NewID(url),
		URL:    url,
		Name:   name,
		Folder: folder,
		Status: StatusUnknown,
	}
}

// IdentityEqual reports whether two projects are identical for the
// purposes of the cache's change-detection semantics: same ID, status,
// build-in-progress flag, and volunteer.
func (p Project) IdentityEqual(other Project) bool {
	return p.ID == other.ID &&
		p.Status == other.Status &&
		p.IsBuilding == other.IsBuilding &&
		p.Volunteer == other.Volunteer
}

// String renders a short human-readable summary, used by CLI status
// output and log lines.
func (p Project) String() string {
	if p.Volunteer != "" {
		return p.Folder + "/" + p.Name + " [" + p.Status.String() + ", volunteer=" + p.Volunteer + "]"
	}
	return p.Folder + "/" + p.Name + " [" + p.Status.String() + "]"
}

// Encode serializes a Project in the field order fixed by the wire format:
// id, name, folder, url, status, is_building, last_successful_build_time,
// duration, estimated_duration, timestamp, culprits, volunteer.
func (p Project) Encode() []byte {
	var buf []byte
	buf = wire.PutUint64(buf, p.ID)
	buf = wire.PutString(buf, p.Name)
	buf = wire.PutString(buf, p.Folder)
	buf = wire.PutString(buf, p.URL)
	buf = wire.PutUint32(buf, uint32(p.Status))
	buf = wire.PutBool(buf, p.IsBuilding)
	buf = wire.PutUint64(buf, p.LastSuccessfulBuildTime)
	buf = wire.PutUint64(buf, p.Duration)
	buf = wire.PutUint64(buf, p.EstimatedDuration)
	buf = wire.PutUint64(buf, p.Timestamp)
	buf = wire.PutSeqCount(buf, uint64(len(p.Culprits)))
	for _, c := range p.Culprits {
		buf = wire.PutString(buf, c)
	}
	buf = wire.PutString(buf, p.Volunteer)
	return buf
}

// Decode parses a Project from buf, returning the unconsumed remainder.
func Decode(buf []byte) (Project, []byte, error) {
	var p Project
	var err error

	if p.ID, buf, err = wire.GetUint64(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: id")
	}
	if p.Name, buf, err = wire.GetString(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: name")
	}
	if p.Folder, buf, err = wire.GetString(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: folder")
	}
	if p.URL, buf, err = wire.GetString(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: url")
	}
	var statusRaw uint32
	if statusRaw, buf, err = wire.GetUint32(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: status")
	}
	p.Status = Status(statusRaw)
	if p.IsBuilding, buf, err = wire.GetBool(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: is_building")
	}
	if p.LastSuccessfulBuildTime, buf, err = wire.GetUint64(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: last_successful_build_time")
	}
	if p.Duration, buf, err = wire.GetUint64(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: duration")
	}
	if p.EstimatedDuration, buf, err = wire.GetUint64(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: estimated_duration")
	}
	if p.Timestamp, buf, err = wire.GetUint64(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: timestamp")
	}
	var count uint64
	if count, buf, err = wire.GetSeqCount(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: culprits count")
	}
	if count > 0 {
		p.Culprits = make([]string, 0, count)
	}
	for i := uint64(0); i < count; i++ {
		var c string
		if c, buf, err = wire.GetString(buf); err != nil {
			return Project{}, nil, errors.Wrap(err, "project: culprit")
		}
		p.Culprits = append(p.Culprits, c)
	}
	if p.Volunteer, buf, err = wire.GetString(buf); err != nil {
		return Project{}, nil, errors.Wrap(err, "project: volunteer")
	}
	return p, buf, nil
}

// EncodeSequence serializes a full project list as sequence<Project>:
// a u64 element count followed by each Project back-to-back.
func EncodeSequence(projects []Project) []byte {
	buf := wire.PutSeqCount(nil, uint64(len(projects)))
	for _, p := range projects {
		buf = append(buf, p.Encode()...)
	}
	return buf
}

// DecodeSequence parses a sequence<Project> payload in full.
func DecodeSequence(buf []byte) ([]Project, error) {
	count, buf, err := wire.GetSeqCount(buf)
	if err != nil {
		return nil, errors.Wrap(err, "project: sequence count")
	}
	out := make([]Project, 0, count)
	for i := uint64(0); i < count; i++ {
		var p Project
		p, buf, err = Decode(buf)
		if err != nil {
			return nil, errors.Wrap(err, "project: sequence element")
		}
		out = append(out, p)
	}
	return out, nil
}

// SortByFolderAndName sorts projects ascending by (folder, name), the
// order the cache and every ProjectUpdate payload must maintain.
func SortByFolderAndName(projects []Project) {
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Folder != projects[j].Folder {
			return projects[i].Folder < projects[j].Folder
		}
		return projects[i].Name < projects[j].Name
	})
}
