package constraint

import (
	"fmt"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/reach"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Spec is the declarative form of a constraint, as produced by problem files
// or any other orchestrator.
type Spec struct {
	ID       string   `json:"id,omitempty" toml:"id"`
	Kind     Kind     `json:"kind" toml:"kind"`
	Relation Relation `json:"relation,omitempty" toml:"relation"`
	Assets   []string `json:"assets,omitempty" toml:"assets"`
	Weight   float64  `json:"weight" toml:"weight"`
	Hard     bool     `json:"hard,omitempty" toml:"hard"`

	// Alignment
	Target    float64 `json:"target,omitempty" toml:"target"`
	Symmetric bool    `json:"symmetric,omitempty" toml:"symmetric"`

	// Semantic placement
	Min    float64 `json:"min,omitempty" toml:"min"`
	Max    float64 `json:"max,omitempty" toml:"max"`
	X      float64 `json:"x,omitempty" toml:"x"`
	Y      float64 `json:"y,omitempty" toml:"y"`
	Radius float64 `json:"radius,omitempty" toml:"radius"`

	// Reachability
	Pairs []reach.Pair `json:"pairs,omitempty" toml:"pairs"`
}

// Build validates specs against the scene and returns the constraints.
// Missing ids default to "<kind>-<n>" where n is the 1-based position.
//
// Errors: INVALID_CONSTRAINT for unknown kinds, relations, wrong arity and
// invalid weights; CONSTRAINT_EVALUATION naming the constraint for unknown
// asset ids; reachability anchor errors are passed through.
func Build(s *scene.Scene, specs []Spec, anchors []reach.Anchor) ([]Constraint, error) {
	out := make([]Constraint, 0, len(specs))
	seen := make(map[string]bool, len(specs))

	for i, sp := range specs {
		id := sp.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", sp.Kind, i+1)
		}
		if err := errors.ValidateID("constraint", id); err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, errors.New(errors.ErrCodeInvalidConstraint, "duplicate constraint id %q", id)
		}
		seen[id] = true

		if err := errors.ValidateWeight(id, sp.Weight); err != nil {
			return nil, err
		}
		for _, a := range sp.Assets {
			if !s.Has(a) {
				return nil, errors.Evaluation(id, "unknown asset %q", a)
			}
		}
		m := Meta{ID: id, Weight: sp.Weight, Hard: sp.Hard}

		c, err := build(s, sp, m, anchors)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func build(s *scene.Scene, sp Spec, m Meta, anchors []reach.Anchor) (Constraint, error) {
	switch sp.Kind {
	case KindContainment:
		if err := arity(m.ID, sp.Assets, 1, 1); err != nil {
			return nil, err
		}
		return NewContainment(m, sp.Assets[0]), nil

	case KindCollision:
		if err := arity(m.ID, sp.Assets, 2, 2); err != nil {
			return nil, err
		}
		if sp.Assets[0] == sp.Assets[1] {
			return nil, errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: asset collides with itself", m.ID)
		}
		return NewCollision(m, sp.Assets[0], sp.Assets[1]), nil

	case KindAlignment:
		if err := arity(m.ID, sp.Assets, 1, 2); err != nil {
			return nil, err
		}
		if err := errors.ValidateFinite("constraint "+m.ID+" target", sp.Target); err != nil {
			return nil, err
		}
		return NewAlignment(m, sp.Assets, sp.Target, sp.Symmetric), nil

	case KindSemantic:
		n, ok := Relations[sp.Relation]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: unknown relation %q", m.ID, sp.Relation)
		}
		if err := arity(m.ID, sp.Assets, n, n); err != nil {
			return nil, err
		}
		p := Params{Min: sp.Min, Max: sp.Max, X: sp.X, Y: sp.Y, Radius: sp.Radius}
		if err := validateParams(m.ID, sp.Relation, p); err != nil {
			return nil, err
		}
		return NewSemantic(m, sp.Relation, sp.Assets, p), nil

	case KindReachability:
		if len(sp.Pairs) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: no anchor pairs", m.ID)
		}
		mod, err := reach.New(s, anchors, sp.Pairs)
		if err != nil {
			return nil, err
		}
		return NewReachability(m, mod), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: unknown kind %q", m.ID, sp.Kind)
}

func arity(id string, assets []string, lo, hi int) error {
	if n := len(assets); n < lo || n > hi {
		if lo == hi {
			return errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: needs %d asset(s), got %d", id, lo, n)
		}
		return errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: needs %d to %d assets, got %d", id, lo, hi, n)
	}
	return nil
}

func validateParams(id string, rel Relation, p Params) error {
	if err := errors.ValidateFinite("constraint "+id+" parameters", p.Min, p.Max, p.X, p.Y, p.Radius); err != nil {
		return err
	}
	if p.Min < 0 || p.Max < 0 || p.Radius < 0 {
		return errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: distances must be non-negative", id)
	}
	switch rel {
	case RelationDistance:
		if p.Max > 0 && p.Max < p.Min {
			return errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: max %g < min %g", id, p.Max, p.Min)
		}
	case RelationNear:
		if p.Max <= 0 {
			return errors.New(errors.ErrCodeInvalidConstraint, "constraint %q: near needs max > 0", id)
		}
	}
	return nil
}

// AllPairsCollision returns a collision constraint for every asset pair with
// at least one non-fixed member, ids "collision:<a>:<b>".
func AllPairsCollision(s *scene.Scene, weight float64, hard bool) []Constraint {
	ids := s.IDs()
	var out []Constraint
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if s.Fixed(ids[i]) && s.Fixed(ids[j]) {
				continue
			}
			m := Meta{ID: fmt.Sprintf("collision:%s:%s", ids[i], ids[j]), Weight: weight, Hard: hard}
			out = append(out, NewCollision(m, ids[i], ids[j]))
		}
	}
	return out
}

// AllContainment returns a containment constraint for every non-fixed
// asset, ids "containment:<a>".
func AllContainment(s *scene.Scene, weight float64, hard bool) []Constraint {
	var out []Constraint
	for _, id := range s.Free() {
		m := Meta{ID: "containment:" + id, Weight: weight, Hard: hard}
		out = append(out, NewContainment(m, id))
	}
	return out
}
