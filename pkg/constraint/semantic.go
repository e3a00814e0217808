package constraint

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Relation names a semantic placement rule.
type Relation string

const (
	// RelationDistance keeps the center distance of two assets in [Min, Max].
	RelationDistance Relation = "distance"
	// RelationNear keeps the center distance of two assets at most Max.
	RelationNear Relation = "near"
	// RelationPosition keeps an asset center within Radius of (X, Y).
	RelationPosition Relation = "position"
	// RelationFacing turns the first asset toward the second.
	RelationFacing Relation = "facing"
	// RelationAgainstWall puts the back of an asset on the nearest wall,
	// facing into the room.
	RelationAgainstWall Relation = "against_wall"
)

// Relations lists the supported relations with their arity.
var Relations = map[Relation]int{
	RelationDistance:    2,
	RelationNear:        2,
	RelationPosition:    1,
	RelationFacing:      2,
	RelationAgainstWall: 1,
}

// Params holds the numeric arguments of a relation. Unused fields are
// ignored. A Max of zero means unbounded for RelationDistance.
type Params struct {
	Min, Max float64
	X, Y     float64
	Radius   float64
}

// Semantic is a semantic placement relation.
type Semantic struct {
	base
	relation Relation
	params   Params
}

// NewSemantic returns a semantic placement constraint. The caller checks
// that len(assets) matches the relation arity.
func NewSemantic(m Meta, rel Relation, assets []string, params Params) *Semantic {
	return &Semantic{
		base:     base{meta: m, kind: KindSemantic, scope: append([]string(nil), assets...)},
		relation: rel,
		params:   params,
	}
}

// Relation returns the relation name.
func (c *Semantic) Relation() Relation { return c.relation }

// Cost implements Constraint.
func (c *Semantic) Cost(p scene.PoseReader) (float64, error) {
	poses := make([]scene.Pose, len(c.scope))
	for i, id := range c.scope {
		pose, ok := p.Pose(id)
		if !ok {
			return 0, errors.Evaluation(c.meta.ID, "unknown asset %q", id)
		}
		poses[i] = pose
	}

	switch c.relation {
	case RelationDistance, RelationNear:
		d := math.Hypot(poses[1].X-poses[0].X, poses[1].Y-poses[0].Y)
		var cost float64
		if c.relation == RelationDistance {
			cost += sq(math.Max(0, c.params.Min-d))
		}
		if c.params.Max > 0 || c.relation == RelationNear {
			cost += sq(math.Max(0, d-c.params.Max))
		}
		return cost, nil

	case RelationPosition:
		d := math.Hypot(poses[0].X-c.params.X, poses[0].Y-c.params.Y)
		return sq(math.Max(0, d-c.params.Radius)), nil

	case RelationFacing:
		dir := r2.Point{X: poses[1].X - poses[0].X, Y: poses[1].Y - poses[0].Y}
		if dir.Norm() < 1e-12 {
			return 0, nil
		}
		s, co := math.Sincos(poses[0].Theta)
		heading := r2.Point{X: co, Y: s}
		return 1 - heading.Dot(dir.Normalize()), nil

	case RelationAgainstWall:
		r, ok := scene.Rect(p, c.scope[0])
		if !ok {
			return 0, errors.Evaluation(c.meta.ID, "unknown asset %q", c.scope[0])
		}
		poly := p.Polygon()
		back := r.BackMid()
		closest, edge := poly.ClosestPoint(back)
		dist := closest.Sub(back).Norm()
		align := 1 - r.Heading().Dot(poly.InwardNormal(edge))
		return dist*dist + align, nil
	}
	return 0, errors.Evaluation(c.meta.ID, "unknown relation %q", c.relation)
}

// Satisfied implements Constraint.
func (c *Semantic) Satisfied(p scene.PoseReader, tol float64) (bool, error) {
	return satisfied(c, p, tol)
}

func sq(v float64) float64 { return v * v }
