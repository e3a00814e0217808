// Package scene holds the floor boundary and the assets placed on it.
//
// A Scene is the single mutable state of a layout run: the boundary is
// immutable once loaded, footprints never change, and poses change only
// through Apply, which validates a whole update before writing any of it.
//
// Constraints read poses through the PoseReader interface so they can be
// evaluated against the live scene, a Snapshot, or a perturbed Overlay
// without touching the scene itself.
package scene

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/geom"
)

// Vertex is a boundary vertex. Z is the floor elevation and is carried but
// not used by any constraint.
type Vertex struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
	Z float64 `json:"z,omitempty" toml:"z"`
}

// Opening is a doorway in the boundary. Openings double as reachability
// anchors under their own id.
type Opening struct {
	ID    string  `json:"id" toml:"id"`
	X     float64 `json:"x" toml:"x"`
	Y     float64 `json:"y" toml:"y"`
	Width float64 `json:"width,omitempty" toml:"width"`
}

// Boundary describes the floor region.
type Boundary struct {
	Vertices   []Vertex  `json:"vertices" toml:"vertices"`
	WallHeight float64   `json:"wall_height,omitempty" toml:"wall_height"`
	Openings   []Opening `json:"openings,omitempty" toml:"openings"`
}

// Footprint is the asset's bounding box. Width runs along the heading.
type Footprint struct {
	Width  float64 `json:"width" toml:"width"`
	Depth  float64 `json:"depth" toml:"depth"`
	Height float64 `json:"height,omitempty" toml:"height"`
}

// Pose is a planar placement: center position and heading in radians.
type Pose struct {
	X     float64 `json:"x" toml:"x"`
	Y     float64 `json:"y" toml:"y"`
	Theta float64 `json:"theta" toml:"theta"`
}

// Finite reports whether every component is a finite number.
func (p Pose) Finite() bool {
	return finite(p.X) && finite(p.Y) && finite(p.Theta)
}

// Asset is a rigid object placed in the scene.
type Asset struct {
	ID        string    `json:"id" toml:"id"`
	Footprint Footprint `json:"footprint" toml:"footprint"`
	Pose      Pose      `json:"pose" toml:"pose"`
	// Fixed assets (fixtures) are never moved by the solver.
	Fixed bool `json:"fixed,omitempty" toml:"fixed"`
}

// PoseReader gives read access to the static scene geometry and to a set of
// current poses.
type PoseReader interface {
	Pose(id string) (Pose, bool)
	Footprint(id string) (Footprint, bool)
	Polygon() geom.Polygon
}

// Scene is the boundary plus its assets. It is not safe for concurrent
// mutation; concurrent reads are fine while no Apply is in flight.
type Scene struct {
	boundary Boundary
	polygon  geom.Polygon
	ids      []string
	assets   map[string]*Asset
}

// New validates the boundary and assets and returns a Scene.
// Asset order is preserved and used for every deterministic iteration.
func New(b Boundary, assets []Asset) (*Scene, error) {
	pts := make([]r2.Point, len(b.Vertices))
	for i, v := range b.Vertices {
		if !finite(v.X) || !finite(v.Y) || !finite(v.Z) {
			return nil, errors.New(errors.ErrCodeInvalidGeometry, "boundary vertex %d is not finite", i)
		}
		pts[i] = r2.Point{X: v.X, Y: v.Y}
	}
	poly, err := geom.NewPolygon(pts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "invalid boundary")
	}
	if !finite(b.WallHeight) || b.WallHeight < 0 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "wall height must be non-negative, got %v", b.WallHeight)
	}
	for _, o := range b.Openings {
		if err := errors.ValidateID("opening", o.ID); err != nil {
			return nil, err
		}
		if err := errors.ValidateFinite("opening "+o.ID, o.X, o.Y, o.Width); err != nil {
			return nil, err
		}
	}

	s := &Scene{
		boundary: cloneBoundary(b),
		polygon:  poly,
		ids:      make([]string, 0, len(assets)),
		assets:   make(map[string]*Asset, len(assets)),
	}
	for _, a := range assets {
		if err := validateAsset(a); err != nil {
			return nil, err
		}
		if _, dup := s.assets[a.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate asset id %q", a.ID)
		}
		s.assets[a.ID] = &a
		s.ids = append(s.ids, a.ID)
	}
	return s, nil
}

func validateAsset(a Asset) error {
	if err := errors.ValidateID("asset", a.ID); err != nil {
		return err
	}
	f := a.Footprint
	if !finite(f.Width) || !finite(f.Depth) || f.Width <= 0 || f.Depth <= 0 {
		return errors.New(errors.ErrCodeInvalidGeometry,
			"asset %q: footprint must be positive, got %gx%g", a.ID, f.Width, f.Depth)
	}
	if !finite(f.Height) || f.Height < 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "asset %q: height must be non-negative", a.ID)
	}
	if !a.Pose.Finite() {
		return errors.New(errors.ErrCodeInvalidInput, "asset %q: pose is not finite", a.ID)
	}
	return nil
}

// Boundary returns a copy of the boundary description.
func (s *Scene) Boundary() Boundary { return cloneBoundary(s.boundary) }

// Polygon returns the validated, counter-clockwise floor polygon.
func (s *Scene) Polygon() geom.Polygon { return s.polygon }

// IDs returns asset ids in insertion order.
func (s *Scene) IDs() []string { return append([]string(nil), s.ids...) }

// Len returns the number of assets.
func (s *Scene) Len() int { return len(s.ids) }

// Has reports whether id names an asset.
func (s *Scene) Has(id string) bool {
	_, ok := s.assets[id]
	return ok
}

// Asset returns a copy of the asset with its current pose.
func (s *Scene) Asset(id string) (Asset, bool) {
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, false
	}
	return *a, true
}

// Assets returns copies of all assets in insertion order.
func (s *Scene) Assets() []Asset {
	out := make([]Asset, len(s.ids))
	for i, id := range s.ids {
		out[i] = *s.assets[id]
	}
	return out
}

// Pose returns the current pose of id.
func (s *Scene) Pose(id string) (Pose, bool) {
	a, ok := s.assets[id]
	if !ok {
		return Pose{}, false
	}
	return a.Pose, true
}

// Footprint returns the footprint of id.
func (s *Scene) Footprint(id string) (Footprint, bool) {
	a, ok := s.assets[id]
	if !ok {
		return Footprint{}, false
	}
	return a.Footprint, true
}

// Fixed reports whether id is a fixture.
func (s *Scene) Fixed(id string) bool {
	a, ok := s.assets[id]
	return ok && a.Fixed
}

// Free returns the ids of all non-fixed assets in insertion order.
func (s *Scene) Free() []string {
	out := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if !s.assets[id].Fixed {
			out = append(out, id)
		}
	}
	return out
}

// Contains reports whether (x, y) lies inside the boundary.
func (s *Scene) Contains(x, y float64) bool {
	return s.polygon.Contains(r2.Point{X: x, Y: y})
}

// Snapshot copies all current poses.
func (s *Scene) Snapshot() Snapshot {
	out := make(Snapshot, len(s.ids))
	for _, id := range s.ids {
		out[id] = s.assets[id].Pose
	}
	return out
}

// Apply writes a pose update atomically. Every id and pose is validated
// before anything is written; on error the scene is unchanged.
func (s *Scene) Apply(update map[string]Pose) error {
	ids := make([]string, 0, len(update))
	for id := range update {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := s.assets[id]; !ok {
			return errors.New(errors.ErrCodeUnknownAsset, "unknown asset %q", id)
		}
		if !update[id].Finite() {
			return errors.New(errors.ErrCodeInvalidInput, "asset %q: pose is not finite", id)
		}
	}
	for _, id := range ids {
		s.assets[id].Pose = update[id]
	}
	return nil
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	c := &Scene{
		boundary: cloneBoundary(s.boundary),
		polygon:  s.polygon,
		ids:      append([]string(nil), s.ids...),
		assets:   make(map[string]*Asset, len(s.assets)),
	}
	for id, a := range s.assets {
		cp := *a
		c.assets[id] = &cp
	}
	return c
}

// With returns a reader that takes poses from snap and everything else from
// the scene. Ids missing from snap fall back to the scene pose.
func (s *Scene) With(snap Snapshot) PoseReader {
	return Overlay{Base: s, Poses: snap}
}

// Rect returns the world footprint rectangle of id under r's pose.
func Rect(r PoseReader, id string) (geom.Rect, bool) {
	p, ok := r.Pose(id)
	if !ok {
		return geom.Rect{}, false
	}
	f, ok := r.Footprint(id)
	if !ok {
		return geom.Rect{}, false
	}
	return geom.NewRect(p.X, p.Y, f.Width, f.Depth, p.Theta), true
}

func cloneBoundary(b Boundary) Boundary {
	return Boundary{
		Vertices:   append([]Vertex(nil), b.Vertices...),
		WallHeight: b.WallHeight,
		Openings:   append([]Opening(nil), b.Openings...),
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
