package constraint

import (
	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/geom"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Containment keeps one footprint inside the boundary. The cost is the sum
// over the four corners of each corner's distance to the boundary when it
// lies outside.
type Containment struct {
	base
}

// NewContainment returns a containment constraint on asset.
func NewContainment(m Meta, asset string) *Containment {
	return &Containment{base{meta: m, kind: KindContainment, scope: []string{asset}}}
}

// Asset returns the contained asset.
func (c *Containment) Asset() string { return c.scope[0] }

// Cost implements Constraint.
func (c *Containment) Cost(p scene.PoseReader) (float64, error) {
	r, ok := scene.Rect(p, c.scope[0])
	if !ok {
		return 0, errors.Evaluation(c.meta.ID, "unknown asset %q", c.scope[0])
	}
	poly := p.Polygon()
	var cost float64
	for _, corner := range r.Corners() {
		cost += poly.OutsideDistance(corner)
	}
	return cost, nil
}

// Satisfied implements Constraint.
func (c *Containment) Satisfied(p scene.PoseReader, tol float64) (bool, error) {
	return satisfied(c, p, tol)
}

// Collision keeps two footprints from overlapping. The cost is the exact
// overlap area of the two oriented rectangles plus the squared penetration
// depth. The area alone is flat while one footprint sits inside the other;
// the depth term still points the way out.
type Collision struct {
	base
}

// NewCollision returns a collision constraint between a and b.
func NewCollision(m Meta, a, b string) *Collision {
	return &Collision{base{meta: m, kind: KindCollision, scope: []string{a, b}}}
}

// Cost implements Constraint.
func (c *Collision) Cost(p scene.PoseReader) (float64, error) {
	ra, ok := scene.Rect(p, c.scope[0])
	if !ok {
		return 0, errors.Evaluation(c.meta.ID, "unknown asset %q", c.scope[0])
	}
	rb, ok := scene.Rect(p, c.scope[1])
	if !ok {
		return 0, errors.Evaluation(c.meta.ID, "unknown asset %q", c.scope[1])
	}
	depth := geom.PenetrationDepth(ra, rb)
	if depth == 0 {
		return 0, nil
	}
	return geom.OverlapArea(ra, rb) + depth*depth, nil
}

// Satisfied implements Constraint.
func (c *Collision) Satisfied(p scene.PoseReader, tol float64) (bool, error) {
	return satisfied(c, p, tol)
}
