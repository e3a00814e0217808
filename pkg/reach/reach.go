// Package reach scores whether an agent of a given clearance radius can walk
// between designated anchor pairs without hitting any asset.
//
// # Model
//
// Every anchor pair is approximated by the straight path between its two
// anchors. For each (pair, asset) combination the cost is
//
//	max(0, r - sd)²
//
// where r is the pair's clearance radius and sd is the signed distance
// between the path segment and the asset footprint (negative when the path
// crosses the footprint, so the cost keeps pushing the asset off the path).
// A pair with a zero radius has no clearance requirement and costs nothing,
// even when its path crosses a footprint.
// The total cost is the sum over all combinations. Assets that own one of
// the pair's anchors are not candidates for that pair.
//
// Costs are smooth almost everywhere and zero exactly when every path keeps
// at least its clearance radius from every candidate footprint. Shrinking a
// radius never increases the cost.
package reach

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/geom"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Anchor is a reachability endpoint. A fixed anchor sits at (X, Y). An
// attached anchor follows an asset: (OffsetX, OffsetY) is expressed in the
// asset frame, with x along the heading.
type Anchor struct {
	ID      string  `json:"id" toml:"id"`
	X       float64 `json:"x,omitempty" toml:"x"`
	Y       float64 `json:"y,omitempty" toml:"y"`
	Asset   string  `json:"asset,omitempty" toml:"asset"`
	OffsetX float64 `json:"offset_x,omitempty" toml:"offset_x"`
	OffsetY float64 `json:"offset_y,omitempty" toml:"offset_y"`
}

// Attached reports whether the anchor follows an asset.
func (a Anchor) Attached() bool { return a.Asset != "" }

// Pair designates two anchors that must stay mutually reachable with the
// given clearance radius.
type Pair struct {
	From      string  `json:"from" toml:"from"`
	To        string  `json:"to" toml:"to"`
	Clearance float64 `json:"clearance" toml:"clearance"`
}

// Module evaluates clearance for a fixed set of anchors and pairs.
// It is immutable after New and safe for concurrent use.
type Module struct {
	anchors    map[string]Anchor
	order      []string
	pairs      []Pair
	candidates [][]string
}

// New resolves anchors against the scene and precomputes the candidate
// assets of every pair. Boundary openings are added as fixed anchors under
// their own ids unless an explicit anchor already uses that id.
func New(s *scene.Scene, anchors []Anchor, pairs []Pair) (*Module, error) {
	m := &Module{anchors: make(map[string]Anchor)}

	for _, a := range anchors {
		if err := errors.ValidateID("anchor", a.ID); err != nil {
			return nil, err
		}
		if _, dup := m.anchors[a.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate anchor id %q", a.ID)
		}
		if err := errors.ValidateFinite("anchor "+a.ID, a.X, a.Y, a.OffsetX, a.OffsetY); err != nil {
			return nil, err
		}
		if a.Attached() && !s.Has(a.Asset) {
			return nil, errors.New(errors.ErrCodeUnknownAsset, "anchor %q: unknown asset %q", a.ID, a.Asset)
		}
		m.anchors[a.ID] = a
		m.order = append(m.order, a.ID)
	}
	for _, o := range s.Boundary().Openings {
		if _, ok := m.anchors[o.ID]; ok {
			continue
		}
		m.anchors[o.ID] = Anchor{ID: o.ID, X: o.X, Y: o.Y}
		m.order = append(m.order, o.ID)
	}

	ids := s.IDs()
	for i, p := range pairs {
		from, ok := m.anchors[p.From]
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownAnchor, "pair %d: unknown anchor %q", i, p.From)
		}
		to, ok := m.anchors[p.To]
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownAnchor, "pair %d: unknown anchor %q", i, p.To)
		}
		if math.IsNaN(p.Clearance) || math.IsInf(p.Clearance, 0) || p.Clearance < 0 {
			return nil, errors.New(errors.ErrCodeInvalidConstraint,
				"pair %s-%s: clearance must be finite and non-negative, got %v", p.From, p.To, p.Clearance)
		}
		var cands []string
		for _, id := range ids {
			if id == from.Asset || id == to.Asset {
				continue
			}
			cands = append(cands, id)
		}
		m.pairs = append(m.pairs, p)
		m.candidates = append(m.candidates, cands)
	}
	return m, nil
}

// Pairs returns the designated pairs.
func (m *Module) Pairs() []Pair { return append([]Pair(nil), m.pairs...) }

// Anchors returns all anchors, explicit ones first, then openings.
func (m *Module) Anchors() []Anchor {
	out := make([]Anchor, len(m.order))
	for i, id := range m.order {
		out[i] = m.anchors[id]
	}
	return out
}

// Candidates returns the assets that may block pair i.
func (m *Module) Candidates(i int) []string {
	return append([]string(nil), m.candidates[i]...)
}

// Resolve returns the world position of anchor id under r's poses.
func (m *Module) Resolve(r scene.PoseReader, id string) (r2.Point, error) {
	a, ok := m.anchors[id]
	if !ok {
		return r2.Point{}, errors.New(errors.ErrCodeUnknownAnchor, "unknown anchor %q", id)
	}
	if !a.Attached() {
		return r2.Point{X: a.X, Y: a.Y}, nil
	}
	rect, ok := scene.Rect(r, a.Asset)
	if !ok {
		return r2.Point{}, errors.New(errors.ErrCodeUnknownAsset, "anchor %q: unknown asset %q", id, a.Asset)
	}
	return rect.World(r2.Point{X: a.OffsetX, Y: a.OffsetY}), nil
}

// Scope returns every asset whose pose can change the cost: candidates and
// anchor owners. Sorted.
func (m *Module) Scope() []string {
	seen := make(map[string]bool)
	for i, p := range m.pairs {
		for _, id := range m.owners(p) {
			seen[id] = true
		}
		for _, id := range m.candidates[i] {
			seen[id] = true
		}
	}
	return sortedKeys(seen)
}

func (m *Module) owners(p Pair) []string {
	var out []string
	if a := m.anchors[p.From].Asset; a != "" {
		out = append(out, a)
	}
	if a := m.anchors[p.To].Asset; a != "" && a != m.anchors[p.From].Asset {
		out = append(out, a)
	}
	return out
}

// segment resolves the path of pair i.
func (m *Module) segment(r scene.PoseReader, i int) (r2.Point, r2.Point, error) {
	p := m.pairs[i]
	a, err := m.Resolve(r, p.From)
	if err != nil {
		return r2.Point{}, r2.Point{}, err
	}
	b, err := m.Resolve(r, p.To)
	if err != nil {
		return r2.Point{}, r2.Point{}, err
	}
	return a, b, nil
}

// Gap returns the signed distance between the path of pair i and asset id.
func (m *Module) Gap(r scene.PoseReader, i int, id string) (float64, error) {
	a, b, err := m.segment(r, i)
	if err != nil {
		return 0, err
	}
	rect, ok := scene.Rect(r, id)
	if !ok {
		return 0, errors.New(errors.ErrCodeUnknownAsset, "unknown asset %q", id)
	}
	return geom.SegmentRectSignedDistance(a, b, rect), nil
}

// Cost returns the total clearance cost under r's poses.
func (m *Module) Cost(r scene.PoseReader) (float64, error) {
	var total float64
	for _, t := range m.Terms() {
		c, err := t.Cost(r)
		if err != nil {
			return 0, err
		}
		total += c
	}
	return total, nil
}

// Implicated returns the assets that currently contribute a positive cost,
// sorted.
func (m *Module) Implicated(r scene.PoseReader) ([]string, error) {
	seen := make(map[string]bool)
	for _, t := range m.Terms() {
		if t.Asset == "" {
			continue
		}
		c, err := t.Cost(r)
		if err != nil {
			return nil, err
		}
		if c > 0 {
			seen[t.Asset] = true
		}
	}
	return sortedKeys(seen), nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
