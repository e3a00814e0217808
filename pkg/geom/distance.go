package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// ClosestOnSegment returns the point on segment a-b nearest to p.
func ClosestOnSegment(p, a, b r2.Point) r2.Point {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Eps*Eps {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Mul(t))
}

// PointSegmentDistance returns the distance from p to segment a-b.
func PointSegmentDistance(p, a, b r2.Point) float64 {
	return ClosestOnSegment(p, a, b).Sub(p).Norm()
}

// SegmentsIntersect reports whether segments a1-a2 and b1-b2 share a point.
func SegmentsIntersect(a1, a2, b1, b2 r2.Point) bool {
	d1 := orient(b1, b2, a1)
	d2 := orient(b1, b2, a2)
	d3 := orient(a1, a2, b1)
	d4 := orient(a1, a2, b2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(b1, b2, a1)) ||
		(d2 == 0 && onSegment(b1, b2, a2)) ||
		(d3 == 0 && onSegment(a1, a2, b1)) ||
		(d4 == 0 && onSegment(a1, a2, b2))
}

// SegmentDistance returns the distance between segments a1-a2 and b1-b2.
func SegmentDistance(a1, a2, b1, b2 r2.Point) float64 {
	if SegmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	return math.Min(
		math.Min(PointSegmentDistance(a1, b1, b2), PointSegmentDistance(a2, b1, b2)),
		math.Min(PointSegmentDistance(b1, a1, a2), PointSegmentDistance(b2, a1, a2)),
	)
}

// SegmentRectDistance returns the distance between segment a-b and the
// closed rectangle r. It is zero when they touch or overlap.
func SegmentRectDistance(a, b r2.Point, r Rect) float64 {
	if r.Contains(a) || r.Contains(b) {
		return 0
	}
	c := r.Corners()
	best := math.Inf(1)
	for i := range c {
		best = math.Min(best, SegmentDistance(a, b, c[i], c[(i+1)%4]))
	}
	return best
}

// SegmentRectSignedDistance is SegmentRectDistance when the segment misses
// the rectangle. When they intersect it returns minus the penetration depth:
// the shortest translation of the rectangle, either across the segment or
// past one of its endpoints, after which they only touch. The result is
// continuous in the rectangle pose.
func SegmentRectSignedDistance(a, b r2.Point, r Rect) float64 {
	if d := SegmentRectDistance(a, b, r); d > 0 {
		return d
	}
	ab := b.Sub(a)
	l := ab.Norm()
	corners := r.Corners()
	if l < Eps {
		// Degenerate path: depth of the point inside the rectangle.
		lp := r.Local(a)
		return -math.Min(r.HalfW-math.Abs(lp.X), r.HalfD-math.Abs(lp.Y))
	}
	dir := ab.Mul(1 / l)
	n := dir.Ortho()
	sMin, sMax := math.Inf(1), math.Inf(-1)
	tMin, tMax := math.Inf(1), math.Inf(-1)
	for _, c := range corners {
		d := c.Sub(a)
		s, t := d.Dot(n), d.Dot(dir)
		sMin, sMax = math.Min(sMin, s), math.Max(sMax, s)
		tMin, tMax = math.Min(tMin, t), math.Max(tMax, t)
	}
	depth := math.Min(math.Max(0, sMax), math.Max(0, -sMin))
	depth = math.Min(depth, math.Max(0, tMax))
	depth = math.Min(depth, math.Max(0, l-tMin))
	return -depth
}

// RectDistance returns the distance between two oriented rectangles, zero
// when they touch or overlap.
func RectDistance(a, b Rect) float64 {
	ca, cb := a.Corners(), b.Corners()
	for i := range ca {
		if b.Contains(ca[i]) || a.Contains(cb[i]) {
			return 0
		}
	}
	best := math.Inf(1)
	for i := range ca {
		for j := range cb {
			d := SegmentDistance(ca[i], ca[(i+1)%4], cb[j], cb[(j+1)%4])
			best = math.Min(best, d)
		}
	}
	return best
}

func orient(a, b, c r2.Point) float64 {
	v := b.Sub(a).Cross(c.Sub(a))
	if math.Abs(v) < Eps {
		return 0
	}
	return v
}

func onSegment(a, b, p r2.Point) bool {
	return math.Min(a.X, b.X)-Eps <= p.X && p.X <= math.Max(a.X, b.X)+Eps &&
		math.Min(a.Y, b.Y)-Eps <= p.Y && p.Y <= math.Max(a.Y, b.Y)+Eps
}
