// Package geom provides the 2D geometry used by the layout solver: simple
// floor polygons, oriented rectangular footprints, convex clipping, and
// point/segment/rectangle distances.
//
// Vectors are github.com/golang/geo/r2 points. Floor polygons are kept as
// closed github.com/paulmach/orb rings so that area, orientation and
// point-in-polygon tests come from orb/planar.
package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Eps is the tolerance used for degeneracy checks.
const Eps = 1e-9

// Polygon is a simple, counter-clockwise polygon with positive area.
// The zero value is not usable; build polygons with NewPolygon.
type Polygon struct {
	pts  []r2.Point // open vertex list, CCW
	ring orb.Ring   // closed ring, CCW
}

// NewPolygon validates pts and returns a counter-clockwise polygon.
// A repeated closing vertex and consecutive duplicates are dropped.
// Clockwise input is reversed. The polygon must have at least three distinct
// vertices, positive area and no self-intersections.
func NewPolygon(pts []r2.Point) (Polygon, error) {
	clean := make([]r2.Point, 0, len(pts))
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return Polygon{}, fmt.Errorf("vertex %v is not finite", p)
		}
		if n := len(clean); n > 0 && samePoint(clean[n-1], p) {
			continue
		}
		clean = append(clean, p)
	}
	if n := len(clean); n > 1 && samePoint(clean[0], clean[n-1]) {
		clean = clean[:n-1]
	}
	if len(clean) < 3 {
		return Polygon{}, fmt.Errorf("polygon needs at least 3 distinct vertices, got %d", len(clean))
	}

	ring := toRing(clean)
	if area := math.Abs(planar.Area(ring)); area < Eps {
		return Polygon{}, fmt.Errorf("polygon has zero area")
	}
	if ring.Orientation() == orb.CW {
		for i, j := 0, len(clean)-1; i < j; i, j = i+1, j-1 {
			clean[i], clean[j] = clean[j], clean[i]
		}
		ring = toRing(clean)
	}
	if i, j, ok := selfIntersection(clean); ok {
		return Polygon{}, fmt.Errorf("polygon edges %d and %d intersect", i, j)
	}

	return Polygon{pts: clean, ring: ring}, nil
}

// MustPolygon is like NewPolygon but panics on invalid input.
// Intended for tests and static fixtures.
func MustPolygon(pts ...r2.Point) Polygon {
	p, err := NewPolygon(pts)
	if err != nil {
		panic(err)
	}
	return p
}

// Vertices returns a copy of the CCW vertex list (not closed).
func (p Polygon) Vertices() []r2.Point {
	out := make([]r2.Point, len(p.pts))
	copy(out, p.pts)
	return out
}

// Len returns the number of vertices.
func (p Polygon) Len() int { return len(p.pts) }

// Edge returns the i-th edge as (start, end). Wraps around.
func (p Polygon) Edge(i int) (r2.Point, r2.Point) {
	n := len(p.pts)
	return p.pts[i%n], p.pts[(i+1)%n]
}

// Area returns the (positive) area.
func (p Polygon) Area() float64 {
	return math.Abs(planar.Area(p.ring))
}

// Bound returns the axis-aligned bounding box as (min, max).
func (p Polygon) Bound() (r2.Point, r2.Point) {
	b := p.ring.Bound()
	return r2.Point{X: b.Min.X(), Y: b.Min.Y()}, r2.Point{X: b.Max.X(), Y: b.Max.Y()}
}

// Contains reports whether q lies inside the polygon or on its boundary.
func (p Polygon) Contains(q r2.Point) bool {
	return planar.RingContains(p.ring, orb.Point{q.X, q.Y})
}

// ClosestPoint returns the point on the polygon boundary nearest to q and the
// index of the edge it lies on.
func (p Polygon) ClosestPoint(q r2.Point) (r2.Point, int) {
	best := math.Inf(1)
	var bestPt r2.Point
	bestEdge := 0
	for i := range p.pts {
		a, b := p.Edge(i)
		c := ClosestOnSegment(q, a, b)
		if d := c.Sub(q).Norm(); d < best {
			best, bestPt, bestEdge = d, c, i
		}
	}
	return bestPt, bestEdge
}

// Distance returns the distance from q to the polygon boundary.
func (p Polygon) Distance(q r2.Point) float64 {
	c, _ := p.ClosestPoint(q)
	return c.Sub(q).Norm()
}

// OutsideDistance returns 0 for points inside the polygon and the distance to
// the boundary otherwise.
func (p Polygon) OutsideDistance(q r2.Point) float64 {
	if p.Contains(q) {
		return 0
	}
	return p.Distance(q)
}

// InwardNormal returns the unit normal of edge i pointing into the polygon.
func (p Polygon) InwardNormal(i int) r2.Point {
	a, b := p.Edge(i)
	// CCW winding: interior is on the left of each edge.
	return b.Sub(a).Ortho().Normalize()
}

// ProjectInside moves q onto the polygon if it lies outside, nudged inward by
// margin along the inward normal of the closest edge. Points already inside
// are returned unchanged.
func (p Polygon) ProjectInside(q r2.Point, margin float64) r2.Point {
	if p.Contains(q) {
		return q
	}
	c, edge := p.ClosestPoint(q)
	moved := c.Add(p.InwardNormal(edge).Mul(margin))
	if p.Contains(moved) {
		return moved
	}
	return c
}

func toRing(pts []r2.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	return append(ring, ring[0])
}

func samePoint(a, b r2.Point) bool {
	return math.Abs(a.X-b.X) < Eps && math.Abs(a.Y-b.Y) < Eps
}

// selfIntersection reports the first pair of non-adjacent edges that touch.
func selfIntersection(pts []r2.Point) (int, int, bool) {
	n := len(pts)
	for i := 0; i < n; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := pts[j], pts[(j+1)%n]
			if SegmentsIntersect(a1, a2, b1, b2) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
