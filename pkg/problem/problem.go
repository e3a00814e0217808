// Package problem reads and writes layout problems in TOML.
//
// A problem file describes the boundary, the assets with their initial
// poses, reachability anchors, constraints, and optional [solver] and
// [refine] tables:
//
//	name = "studio"
//	auto_collisions = true
//	auto_containment = true
//
//	[boundary]
//	vertices = [{x = 0, y = 0}, {x = 5, y = 0}, {x = 5, y = 4}, {x = 0, y = 4}]
//	openings = [{id = "door", x = 2.5, y = 0, width = 0.9}]
//
//	[[assets]]
//	id = "sofa"
//	footprint = {width = 2.0, depth = 0.9}
//	pose = {x = 2.5, y = 3.4, theta = -1.5708}
//
//	[[constraints]]
//	kind = "semantic_placement"
//	relation = "against_wall"
//	assets = ["sofa"]
//
// Constraint weights default to 1. A weight of inf marks a constraint hard.
package problem

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/floorsolve/pkg/cache"
	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/reach"
	"github.com/matzehuels/floorsolve/pkg/refine"
	"github.com/matzehuels/floorsolve/pkg/scene"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// DefaultWeight is the weight of a constraint that does not set one.
const DefaultWeight = 1.0

// Problem is a decoded problem file.
type Problem struct {
	Name     string         `json:"name,omitempty" toml:"name,omitempty"`
	Boundary scene.Boundary `json:"boundary" toml:"boundary"`
	Assets   []scene.Asset  `json:"assets" toml:"assets"`
	Anchors  []reach.Anchor `json:"anchors,omitempty" toml:"anchors,omitempty"`

	Constraints []Constraint `json:"constraints,omitempty" toml:"constraints,omitempty"`

	// AutoCollisions adds a hard pairwise collision constraint for every
	// pair of assets with at least one free member.
	AutoCollisions bool `json:"auto_collisions,omitempty" toml:"auto_collisions,omitempty"`
	// AutoContainment adds a hard containment constraint for every free
	// asset.
	AutoContainment bool `json:"auto_containment,omitempty" toml:"auto_containment,omitempty"`

	Solver solver.Options `json:"solver" toml:"solver"`
	Refine refine.Options `json:"refine" toml:"refine"`
}

// Constraint is a constraint entry. It mirrors constraint.Spec except that
// Weight is optional.
type Constraint struct {
	ID       string              `json:"id,omitempty" toml:"id,omitempty"`
	Kind     constraint.Kind     `json:"kind" toml:"kind"`
	Relation constraint.Relation `json:"relation,omitempty" toml:"relation,omitempty"`
	Assets   []string            `json:"assets,omitempty" toml:"assets,omitempty"`
	Weight   *float64            `json:"weight,omitempty" toml:"weight,omitempty"`
	Hard     bool                `json:"hard,omitempty" toml:"hard,omitempty"`

	Target    float64 `json:"target,omitempty" toml:"target,omitempty"`
	Symmetric bool    `json:"symmetric,omitempty" toml:"symmetric,omitempty"`

	Min    float64 `json:"min,omitempty" toml:"min,omitempty"`
	Max    float64 `json:"max,omitempty" toml:"max,omitempty"`
	X      float64 `json:"x,omitempty" toml:"x,omitempty"`
	Y      float64 `json:"y,omitempty" toml:"y,omitempty"`
	Radius float64 `json:"radius,omitempty" toml:"radius,omitempty"`

	Pairs []reach.Pair `json:"pairs,omitempty" toml:"pairs,omitempty"`
}

// Spec returns the constraint spec with the default weight applied.
func (c Constraint) Spec() constraint.Spec {
	w := DefaultWeight
	if c.Weight != nil {
		w = *c.Weight
	}
	return constraint.Spec{
		ID:        c.ID,
		Kind:      c.Kind,
		Relation:  c.Relation,
		Assets:    c.Assets,
		Weight:    w,
		Hard:      c.Hard,
		Target:    c.Target,
		Symmetric: c.Symmetric,
		Min:       c.Min,
		Max:       c.Max,
		X:         c.X,
		Y:         c.Y,
		Radius:    c.Radius,
		Pairs:     c.Pairs,
	}
}

// Load reads a problem file from disk.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "problem file %s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode reads a problem from r.
func Decode(r io.Reader) (*Problem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read problem: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML problem data. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Parse(data []byte) (*Problem, error) {
	var p Problem
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode problem")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return &p, nil
}

// Specs returns the constraint specs with default weights applied.
func (p *Problem) Specs() []constraint.Spec {
	out := make([]constraint.Spec, len(p.Constraints))
	for i, c := range p.Constraints {
		out[i] = c.Spec()
	}
	return out
}

// Instance is a problem ready to solve.
type Instance struct {
	Scene       *scene.Scene
	Constraints []constraint.Constraint
}

// Build validates the problem and creates the scene and constraints.
// Declared constraints come first, then the automatic containment and
// collision constraints in scene order.
func (p *Problem) Build() (*Instance, error) {
	s, err := scene.New(p.Boundary, p.Assets)
	if err != nil {
		return nil, err
	}
	cs, err := constraint.Build(s, p.Specs(), p.Anchors)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cs))
	for _, c := range cs {
		seen[c.ID()] = true
	}
	var auto []constraint.Constraint
	if p.AutoContainment {
		auto = append(auto, constraint.AllContainment(s, 1, true)...)
	}
	if p.AutoCollisions {
		auto = append(auto, constraint.AllPairsCollision(s, 1, true)...)
	}
	for _, c := range auto {
		if seen[c.ID()] {
			return nil, errors.New(errors.ErrCodeInvalidConstraint, "constraint id %q is reserved for automatic constraints", c.ID())
		}
		cs = append(cs, c)
	}
	return &Instance{Scene: s, Constraints: cs}, nil
}

// canonical is the hashed form of a problem. Name and the solver and
// refinement tables are excluded; callers hash options separately.
type canonical struct {
	Boundary        scene.Boundary    `toml:"boundary"`
	Assets          []scene.Asset     `toml:"assets"`
	Anchors         []reach.Anchor    `toml:"anchors"`
	Constraints     []constraint.Spec `toml:"constraints"`
	AutoCollisions  bool              `toml:"auto_collisions"`
	AutoContainment bool              `toml:"auto_containment"`
}

// Hash identifies the layout problem independent of its name, options and
// the spelling of the source file.
func (p *Problem) Hash() (string, error) {
	var buf bytes.Buffer
	err := toml.NewEncoder(&buf).Encode(canonical{
		Boundary:        p.Boundary,
		Assets:          p.Assets,
		Anchors:         p.Anchors,
		Constraints:     p.Specs(),
		AutoCollisions:  p.AutoCollisions,
		AutoContainment: p.AutoContainment,
	})
	if err != nil {
		return "", fmt.Errorf("hash problem: %w", err)
	}
	return cache.Hash(buf.Bytes()), nil
}

// WithPoses returns a copy of p whose asset poses are replaced by poses.
// Assets missing from poses keep their pose.
func (p *Problem) WithPoses(poses scene.Snapshot) *Problem {
	out := *p
	out.Assets = make([]scene.Asset, len(p.Assets))
	for i, a := range p.Assets {
		if pose, ok := poses[a.ID]; ok {
			a.Pose = pose
		}
		out.Assets[i] = a
	}
	return &out
}

// Encode writes p as TOML.
func Encode(w io.Writer, p *Problem) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(p); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode problem")
	}
	return nil
}
