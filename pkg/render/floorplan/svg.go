// Package floorplan draws a top-down SVG of a scene: the boundary, asset
// footprints with a heading tick, reachability anchors and walkways.
package floorplan

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/golang/geo/r2"

	"github.com/matzehuels/floorsolve/pkg/reach"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// DefaultScale is the number of SVG units per meter.
const DefaultScale = 80.0

const margin = 24.0

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	scale     float64
	poses     scene.Snapshot
	graph     *reach.Graph
	violating map[string]bool
	labels    bool
}

// WithScale sets the SVG units per meter.
func WithScale(s float64) Option { return func(r *renderer) { r.scale = s } }

// WithPoses draws the given poses instead of the scene's current ones.
func WithPoses(p scene.Snapshot) Option { return func(r *renderer) { r.poses = p } }

// WithClearance overlays the clearance graph: anchors as dots and walkways
// as bands of the clearance width, red when blocked.
func WithClearance(g reach.Graph) Option { return func(r *renderer) { r.graph = &g } }

// WithViolations highlights the given assets.
func WithViolations(ids []string) Option {
	return func(r *renderer) {
		r.violating = make(map[string]bool, len(ids))
		for _, id := range ids {
			r.violating[id] = true
		}
	}
}

// WithLabels writes asset ids at their centers.
func WithLabels() Option { return func(r *renderer) { r.labels = true } }

// RenderSVG draws s. World y points up; the SVG is flipped accordingly.
func RenderSVG(s *scene.Scene, opts ...Option) []byte {
	r := renderer{scale: DefaultScale}
	for _, opt := range opts {
		opt(&r)
	}
	var view scene.PoseReader = s
	if r.poses != nil {
		view = s.With(r.poses)
	}

	lo, hi := s.Polygon().Bound()
	width := (hi.X-lo.X)*r.scale + 2*margin
	height := (hi.Y-lo.Y)*r.scale + 2*margin
	pt := func(p r2.Point) (float64, float64) {
		return margin + (p.X-lo.X)*r.scale, margin + (hi.Y-p.Y)*r.scale
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	buf.WriteString(`  <rect width="100%" height="100%" fill="white"/>` + "\n")

	buf.WriteString(`  <polygon class="boundary" fill="#f7f4ee" stroke="#333" stroke-width="3" points="`)
	writePoints(&buf, s.Polygon().Vertices(), pt)
	buf.WriteString(`"/>` + "\n")

	for _, o := range s.Boundary().Openings {
		x, y := pt(r2.Point{X: o.X, Y: o.Y})
		half := o.Width / 2 * r.scale
		fmt.Fprintf(&buf, `  <circle class="opening" cx="%.1f" cy="%.1f" r="%.1f" fill="none" stroke="#4a90d9" stroke-dasharray="4 3"/>`+"\n",
			x, y, math.Max(half, 4))
	}

	if r.graph != nil {
		r.renderWalkways(&buf, pt)
	}

	for _, id := range s.IDs() {
		rect, ok := scene.Rect(view, id)
		if !ok {
			continue
		}
		fill, stroke := "#d8d2c4", "#555"
		switch {
		case r.violating[id]:
			fill, stroke = "#f4c7c3", "#b3261e"
		case s.Fixed(id):
			fill, stroke = "#bbbbbb", "#777"
		}
		fmt.Fprintf(&buf, `  <polygon class="asset" id="asset-%s" fill="%s" stroke="%s" stroke-width="1.5" points="`, html.EscapeString(id), fill, stroke)
		writePoints(&buf, rect.Polygon(), pt)
		buf.WriteString(`"/>` + "\n")

		// Heading tick from the center to the front edge.
		front := rect.World(r2.Point{X: rect.HalfW, Y: 0})
		cx, cy := pt(rect.Center)
		fx, fy := pt(front)
		fmt.Fprintf(&buf, `  <line class="heading" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`+"\n",
			cx, cy, fx, fy, stroke)

		if r.labels {
			fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" font-family="sans-serif" font-size="11" text-anchor="middle">%s</text>`+"\n",
				cx, cy-4, html.EscapeString(id))
		}
	}

	if r.graph != nil {
		for _, n := range r.graph.Nodes {
			x, y := pt(r2.Point{X: n.X, Y: n.Y})
			fmt.Fprintf(&buf, `  <circle class="anchor" id="anchor-%s" cx="%.1f" cy="%.1f" r="4" fill="#4a90d9"/>`+"\n", html.EscapeString(n.ID), x, y)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *renderer) renderWalkways(buf *bytes.Buffer, pt func(r2.Point) (float64, float64)) {
	pos := make(map[string]r2.Point, len(r.graph.Nodes))
	for _, n := range r.graph.Nodes {
		pos[n.ID] = r2.Point{X: n.X, Y: n.Y}
	}
	for _, e := range r.graph.Edges {
		color := "#2e7d32"
		if !e.Clear() {
			color = "#c62828"
		}
		x1, y1 := pt(pos[e.From])
		x2, y2 := pt(pos[e.To])
		fmt.Fprintf(buf, `  <line class="walkway" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-opacity="0.18" stroke-width="%.1f" stroke-linecap="round"/>`+"\n",
			x1, y1, x2, y2, color, 2*e.Clearance*r.scale)
		fmt.Fprintf(buf, `  <line class="path" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1.5" stroke-dasharray="6 4"/>`+"\n",
			x1, y1, x2, y2, color)
	}
}

func writePoints(buf *bytes.Buffer, pts []r2.Point, pt func(r2.Point) (float64, float64)) {
	for i, p := range pts {
		if i > 0 {
			buf.WriteByte(' ')
		}
		x, y := pt(p)
		fmt.Fprintf(buf, "%.1f,%.1f", x, y)
	}
}
