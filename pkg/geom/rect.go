package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// Rect is an oriented rectangle: a center, half extents along its local axes
// and a heading angle. The local x axis (half width) points along the heading.
type Rect struct {
	Center r2.Point
	HalfW  float64
	HalfD  float64
	Theta  float64
}

// NewRect builds a rectangle from full width and depth.
func NewRect(cx, cy, width, depth, theta float64) Rect {
	return Rect{
		Center: r2.Point{X: cx, Y: cy},
		HalfW:  width / 2,
		HalfD:  depth / 2,
		Theta:  theta,
	}
}

// Axes returns the unit heading axis u and its left normal v.
func (r Rect) Axes() (u, v r2.Point) {
	s, c := math.Sincos(r.Theta)
	u = r2.Point{X: c, Y: s}
	return u, u.Ortho()
}

// Corners returns the four corners in counter-clockwise order, starting at
// the back-right corner.
func (r Rect) Corners() [4]r2.Point {
	u, v := r.Axes()
	uw, vd := u.Mul(r.HalfW), v.Mul(r.HalfD)
	return [4]r2.Point{
		r.Center.Sub(uw).Sub(vd),
		r.Center.Add(uw).Sub(vd),
		r.Center.Add(uw).Add(vd),
		r.Center.Sub(uw).Add(vd),
	}
}

// Area returns the rectangle area.
func (r Rect) Area() float64 { return 4 * r.HalfW * r.HalfD }

// Local returns p expressed in the rectangle frame.
func (r Rect) Local(p r2.Point) r2.Point {
	u, v := r.Axes()
	d := p.Sub(r.Center)
	return r2.Point{X: d.Dot(u), Y: d.Dot(v)}
}

// World maps a point in the rectangle frame back to world coordinates.
func (r Rect) World(local r2.Point) r2.Point {
	u, v := r.Axes()
	return r.Center.Add(u.Mul(local.X)).Add(v.Mul(local.Y))
}

// Contains reports whether p lies in the closed rectangle.
func (r Rect) Contains(p r2.Point) bool {
	l := r.Local(p)
	return math.Abs(l.X) <= r.HalfW+Eps && math.Abs(l.Y) <= r.HalfD+Eps
}

// BackMid returns the midpoint of the back edge (opposite the heading).
func (r Rect) BackMid() r2.Point {
	u, _ := r.Axes()
	return r.Center.Sub(u.Mul(r.HalfW))
}

// Heading returns the unit heading vector.
func (r Rect) Heading() r2.Point {
	u, _ := r.Axes()
	return u
}

// Polygon returns the corners as a slice, suitable for clipping.
func (r Rect) Polygon() []r2.Point {
	c := r.Corners()
	return c[:]
}

// WrapAngle maps a onto (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
