package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// ClipConvex returns the intersection of subject with the convex polygon
// clip (Sutherland-Hodgman). Both polygons must be counter-clockwise.
// The result is empty when they do not overlap.
func ClipConvex(subject, clip []r2.Point) []r2.Point {
	out := append([]r2.Point(nil), subject...)
	n := len(clip)
	for i := 0; i < n && len(out) > 0; i++ {
		a, b := clip[i], clip[(i+1)%n]
		in := out
		out = make([]r2.Point, 0, len(in)+2)
		for j := range in {
			cur, prev := in[j], in[(j+len(in)-1)%len(in)]
			curIn, prevIn := leftOf(a, b, cur), leftOf(a, b, prev)
			switch {
			case curIn && prevIn:
				out = append(out, cur)
			case curIn && !prevIn:
				out = append(out, lineIntersection(prev, cur, a, b), cur)
			case !curIn && prevIn:
				out = append(out, lineIntersection(prev, cur, a, b))
			}
		}
	}
	return out
}

// ShoelaceArea returns the absolute area of a simple polygon given as an open
// vertex list.
func ShoelaceArea(pts []r2.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var s float64
	for i := range pts {
		s += pts[i].Cross(pts[(i+1)%len(pts)])
	}
	return math.Abs(s) / 2
}

// OverlapArea returns the area of the intersection of two oriented
// rectangles. It is symmetric and zero when the interiors are disjoint.
func OverlapArea(a, b Rect) float64 {
	// Cheap reject on bounding circles.
	ra := math.Hypot(a.HalfW, a.HalfD)
	rb := math.Hypot(b.HalfW, b.HalfD)
	if a.Center.Sub(b.Center).Norm() >= ra+rb {
		return 0
	}
	return ShoelaceArea(ClipConvex(a.Polygon(), b.Polygon()))
}

// PenetrationDepth returns the length of the shortest translation that
// separates two oriented rectangles, found over the four edge normals
// (separating axis test). It is zero when they touch or are disjoint and,
// unlike OverlapArea, keeps changing when one rectangle lies inside the
// other.
func PenetrationDepth(a, b Rect) float64 {
	au, av := a.Axes()
	bu, bv := b.Axes()
	ca, cb := a.Corners(), b.Corners()
	depth := math.Inf(1)
	for _, axis := range [4]r2.Point{au, av, bu, bv} {
		aMin, aMax := project(ca, axis)
		bMin, bMax := project(cb, axis)
		d := math.Min(aMax-bMin, bMax-aMin)
		if d <= 0 {
			return 0
		}
		depth = math.Min(depth, d)
	}
	return depth
}

func project(pts [4]r2.Point, axis r2.Point) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := p.Dot(axis)
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}
	return lo, hi
}

func leftOf(a, b, p r2.Point) bool {
	return b.Sub(a).Cross(p.Sub(a)) >= 0
}

// lineIntersection intersects segment p-q with the infinite line a-b.
func lineIntersection(p, q, a, b r2.Point) r2.Point {
	d := b.Sub(a)
	den := d.Cross(q.Sub(p))
	if math.Abs(den) < Eps {
		return q
	}
	t := d.Cross(a.Sub(p)) / den
	return p.Add(q.Sub(p).Mul(t))
}
