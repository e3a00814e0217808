package constraint

import (
	"math"

	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Alignment drives a heading toward a target angle. With one asset the
// target is absolute; with two it is the relative angle θa − θb. The cost is
// 1 − cos Δ. Symmetric alignments treat θ and θ+π as equal and use
// (1 − cos 2Δ)/2 instead, which is what "parallel to" means.
type Alignment struct {
	base
	target    float64
	symmetric bool
}

// NewAlignment returns an alignment over one or two assets.
func NewAlignment(m Meta, assets []string, target float64, symmetric bool) *Alignment {
	return &Alignment{
		base:      base{meta: m, kind: KindAlignment, scope: append([]string(nil), assets...)},
		target:    target,
		symmetric: symmetric,
	}
}

// Cost implements Constraint.
func (c *Alignment) Cost(p scene.PoseReader) (float64, error) {
	a, ok := p.Pose(c.scope[0])
	if !ok {
		return 0, errors.Evaluation(c.meta.ID, "unknown asset %q", c.scope[0])
	}
	delta := a.Theta - c.target
	if len(c.scope) == 2 {
		b, ok := p.Pose(c.scope[1])
		if !ok {
			return 0, errors.Evaluation(c.meta.ID, "unknown asset %q", c.scope[1])
		}
		delta -= b.Theta
	}
	if c.symmetric {
		return (1 - math.Cos(2*delta)) / 2, nil
	}
	return 1 - math.Cos(delta), nil
}

// Satisfied implements Constraint.
func (c *Alignment) Satisfied(p scene.PoseReader, tol float64) (bool, error) {
	return satisfied(c, p, tol)
}
