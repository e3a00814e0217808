// Package dot renders the graphs of a layout run with Graphviz.
//
// Two graphs are produced:
//
//   - The clearance graph ([ClearanceDOT]): anchors as nodes at their floor
//     positions, designated pairs as edges colored by whether the walkway is
//     clear, labeled with the current gap and the blocking assets.
//   - The constraint-incidence graph ([IncidenceDOT]): assets as nodes,
//     pair-scoped constraints as edges. This is the graph refinement walks
//     when it widens a selection, so violating assets are highlighted.
//
// # Usage
//
//	g, _ := module.Graph(s)
//	svg, err := dot.RenderSVG(ctx, dot.ClearanceDOT(g))
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion goes through [render.ToPDF] and
// [render.ToPNG].
//
// [render.ToPDF]: github.com/matzehuels/floorsolve/pkg/render.ToPDF
// [render.ToPNG]: github.com/matzehuels/floorsolve/pkg/render.ToPNG
package dot
