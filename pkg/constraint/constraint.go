// Package constraint defines the cost terms the layout solver minimizes.
//
// Every constraint maps the current poses of the assets in its scope to a
// non-negative cost that is zero exactly when the constraint holds. The
// solver combines them into one scalar energy
//
//	E = Σ soft  w·c  +  Σ hard  HardWeight·w·c
//
// but never trusts the relaxed energy for hard constraints: feasibility is
// decided by Satisfied with an explicit tolerance.
//
// # Kinds
//
//   - containment: footprint stays inside the boundary
//   - pairwise_collision: two footprints do not overlap
//   - alignment: heading matches a target or another asset
//   - semantic_placement: distance, position, facing and against_wall relations
//   - reachability_clearance: anchor pairs stay walkable (see package reach)
//
// Constraints are built from the declarative [Spec] data contract with
// [Build], or directly with the New* constructors.
package constraint

import (
	"math"

	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Kind identifies a constraint family.
type Kind string

const (
	KindContainment  Kind = "containment"
	KindCollision    Kind = "pairwise_collision"
	KindAlignment    Kind = "alignment"
	KindSemantic     Kind = "semantic_placement"
	KindReachability Kind = "reachability_clearance"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindContainment, KindCollision, KindAlignment, KindSemantic, KindReachability}

// HardWeight scales hard constraints in the relaxed energy.
const HardWeight = 100.0

// Constraint is a pure cost function over poses.
type Constraint interface {
	ID() string
	Kind() Kind
	// Scope lists the assets the cost depends on.
	Scope() []string
	Weight() float64
	IsHard() bool
	Cost(p scene.PoseReader) (float64, error)
	Satisfied(p scene.PoseReader, tol float64) (bool, error)
}

// Term is one independently differentiable summand of a constraint.
type Term struct {
	Constraint string
	Scope      []string
	Cost       func(scene.PoseReader) (float64, error)
}

// Decomposer is implemented by constraints whose cost is a sum of terms with
// smaller scopes than the constraint itself.
type Decomposer interface {
	Terms() []Term
}

// Implicator is implemented by constraints that can tell which assets in
// their scope are responsible for a violation.
type Implicator interface {
	Implicated(p scene.PoseReader) ([]string, error)
}

// Meta carries the identity and weighting shared by all constraints.
type Meta struct {
	ID     string
	Weight float64
	Hard   bool
}

type base struct {
	meta  Meta
	kind  Kind
	scope []string
}

func (b *base) ID() string      { return b.meta.ID }
func (b *base) Kind() Kind      { return b.kind }
func (b *base) Weight() float64 { return b.meta.Weight }
func (b *base) Scope() []string { return append([]string(nil), b.scope...) }

// IsHard reports whether the constraint is flagged hard or has infinite
// weight.
func (b *base) IsHard() bool { return b.meta.Hard || math.IsInf(b.meta.Weight, 1) }

// EnergyWeight returns the factor c contributes to the energy with.
func EnergyWeight(c Constraint) float64 {
	w := c.Weight()
	if !c.IsHard() {
		return w
	}
	if math.IsInf(w, 0) || math.IsNaN(w) || w <= 0 {
		w = 1
	}
	return HardWeight * w
}

// TermsOf returns c's terms, or c itself as a single term.
func TermsOf(c Constraint) []Term {
	if d, ok := c.(Decomposer); ok {
		terms := d.Terms()
		for i := range terms {
			terms[i].Constraint = c.ID()
		}
		return terms
	}
	return []Term{{Constraint: c.ID(), Scope: c.Scope(), Cost: c.Cost}}
}

// Implicated returns the assets responsible for c's violation: the
// Implicator answer when available, else the full scope.
func Implicated(c Constraint, p scene.PoseReader) ([]string, error) {
	if im, ok := c.(Implicator); ok {
		return im.Implicated(p)
	}
	return c.Scope(), nil
}

// Energy evaluates the weighted energy of cs under p.
func Energy(cs []Constraint, p scene.PoseReader) (float64, error) {
	var e float64
	for _, c := range cs {
		cost, err := c.Cost(p)
		if err != nil {
			return 0, err
		}
		if w := EnergyWeight(c); w != 0 {
			e += w * cost
		}
	}
	return e, nil
}

// Feasible reports whether every hard constraint in cs is satisfied at tol.
func Feasible(cs []Constraint, p scene.PoseReader, tol float64) (bool, error) {
	for _, c := range cs {
		if !c.IsHard() {
			continue
		}
		ok, err := c.Satisfied(p, tol)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func satisfied(c Constraint, p scene.PoseReader, tol float64) (bool, error) {
	cost, err := c.Cost(p)
	if err != nil {
		return false, err
	}
	return cost <= tol, nil
}

// Touches reports whether c's scope contains any id in set.
func Touches(c Constraint, set map[string]bool) bool {
	for _, id := range c.Scope() {
		if set[id] {
			return true
		}
	}
	return false
}
