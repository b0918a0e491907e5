package project

import (
	"crypto/sha256"
	"encoding/binary"
)

// ContentHash computes a deterministic 64-bit digest over a project list,
// in order. It mixes, per project, (id, status, is_building, volunteer,
// last_successful_build_time, duration, culprits) — exactly the fields
// named in the cache's invariants. Name, folder, url, estimated_duration,
// and timestamp are excluded: they either can't change independently of
// id (folder/name/url) or are re-derived display metadata that shouldn't
// force a re-broadcast on their own.
//
// Permuting the project list changes the hash (order is mixed in);
// mutating any field outside the list above does not.
func ContentHash(projects []Project) uint64 {
	h := sha256.New()
	for _, p := range projects {
		h.Write([]byte("id:"))
		var b8 [8]byte
		binary.LittleEndian.PutUint64(b8[:], p.ID)
		h.Write(b8[:])

		h.Write([]byte("\nst:"))
		var b4 [4]byte
		binary.LittleEndian.PutUint32(b4[:], uint32(p.Status))
		h.Write(b4[:])

		h.Write([]byte("\nib:"))
		if p.IsBuilding {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}

		h.Write([]byte("\nvo:"))
		h.Write([]byte(p.Volunteer))

		h.Write([]byte("\nls:"))
		binary.LittleEndian.PutUint64(b8[:], p.LastSuccessfulBuildTime)
		h.Write(b8[:])

		h.Write([]byte("\ndu:"))
		binary.LittleEndian.PutUint64(b8[:], p.Duration)
		h.Write(b8[:])

		h.Write([]byte("\ncu:"))
		for _, c := range p.Culprits {
			h.Write([]byte(c))
			h.Write([]byte{0})
		}
		h.Write([]byte("\n|"))
	}

	var sum [32]byte
	h.Sum(sum[:0])
	return binary.LittleEndian.Uint64(sum[:8])
}
