package scene

import (
	"sort"

	"github.com/matzehuels/floorsolve/pkg/geom"
)

// Snapshot is a set of poses keyed by asset id.
type Snapshot map[string]Pose

// Clone returns a copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, p := range s {
		out[id] = p
	}
	return out
}

// IDs returns the snapshot ids sorted.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Subset returns the poses of ids present in the snapshot.
func (s Snapshot) Subset(ids []string) Snapshot {
	out := make(Snapshot, len(ids))
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out
}

// Overlay reads poses from Poses first and falls back to Base.
// Footprints and the boundary always come from Base.
type Overlay struct {
	Base  PoseReader
	Poses Snapshot
}

// Pose implements PoseReader.
func (o Overlay) Pose(id string) (Pose, bool) {
	if p, ok := o.Poses[id]; ok {
		return p, true
	}
	return o.Base.Pose(id)
}

// Footprint implements PoseReader.
func (o Overlay) Footprint(id string) (Footprint, bool) { return o.Base.Footprint(id) }

// Polygon implements PoseReader.
func (o Overlay) Polygon() geom.Polygon { return o.Base.Polygon() }
