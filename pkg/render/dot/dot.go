package dot

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/reach"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

const (
	colorClear    = "forestgreen"
	colorBlocked  = "firebrick"
	colorFixed    = "lightgrey"
	colorViolated = "mistyrose"
)

// ClearanceDOT converts a clearance graph to DOT. Nodes are pinned at their
// floor coordinates (1 m = 1 inch) so neato and fdp keep the floor plan
// shape; dot ignores the positions.
func ClearanceDOT(g reach.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("graph clearance {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=10, width=0.3];\n")
	buf.WriteString("  edge [fontsize=9, penwidth=2];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		label := n.ID
		if n.Asset != "" {
			label += "\n@" + n.Asset
		}
		fmt.Fprintf(&buf, "  %q [label=%q, pos=\"%.3f,%.3f!\"];\n", n.ID, label, n.X, n.Y)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		color := colorClear
		if !e.Clear() {
			color = colorBlocked
		}
		fmt.Fprintf(&buf, "  %q -- %q [color=%s, label=%q];\n", e.From, e.To, color, edgeLabel(e))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func edgeLabel(e reach.Edge) string {
	gap := "inf"
	if !math.IsInf(e.Gap, 1) {
		gap = strconv.FormatFloat(e.Gap, 'f', 2, 64)
	}
	label := fmt.Sprintf("r=%.2f gap=%s", e.Clearance, gap)
	if len(e.Blocking) > 0 {
		label += "\nblocked by " + strings.Join(e.Blocking, ", ")
	}
	return label
}

// IncidenceDOT converts the constraint-incidence graph of cs to DOT.
// Assets listed in violating are filled red; fixed assets are grey.
// Constraints with more than two assets are drawn as a small hub node
// connected to each asset.
func IncidenceDOT(s *scene.Scene, cs []constraint.Constraint, violating []string) string {
	bad := make(map[string]bool, len(violating))
	for _, id := range violating {
		bad[id] = true
	}

	var buf bytes.Buffer
	buf.WriteString("graph incidence {\n")
	buf.WriteString("  layout=fdp;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("  edge [fontsize=9];\n")
	buf.WriteString("\n")

	for _, id := range s.IDs() {
		attrs := []string{fmt.Sprintf("label=%q", id)}
		switch {
		case bad[id]:
			attrs = append(attrs, "fillcolor="+colorViolated, "color="+colorBlocked)
		case s.Fixed(id):
			attrs = append(attrs, "fillcolor="+colorFixed, "style=\"rounded,filled,dashed\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range cs {
		scope := c.Scope()
		style := "solid"
		if !c.IsHard() {
			style = "dashed"
		}
		switch len(scope) {
		case 0, 1:
			continue
		case 2:
			fmt.Fprintf(&buf, "  %q -- %q [label=%q, style=%s];\n", scope[0], scope[1], string(c.Kind()), style)
		default:
			hub := "c:" + c.ID()
			fmt.Fprintf(&buf, "  %q [shape=point, width=0.08, xlabel=%q];\n", hub, c.ID())
			for _, id := range scope {
				fmt.Fprintf(&buf, "  %q -- %q [style=%s];\n", hub, id, style)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz. The layout engine
// named in the graph's layout attribute is honored.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	if engine := layoutOf(dot); engine != "" {
		gv.SetLayout(graphviz.Layout(engine))
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	layoutRe  = regexp.MustCompile(`(?m)^\s*layout=(\w+);`)
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func layoutOf(dot string) string {
	if m := layoutRe.FindStringSubmatch(dot); m != nil {
		return m[1]
	}
	return ""
}

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
