// Package render holds the visual outputs of a layout run and the shared
// format conversion they use.
//
// # Subpackages
//
//   - [floorplan]: top-down SVG of the boundary, asset footprints, anchors
//     and walkways
//   - [dot]: clearance graph and constraint-incidence graph as Graphviz DOT,
//     rendered to SVG in-process
//   - [plot]: energy curves of the optimization history as PNG
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG using the external rsvg-convert tool
// (from librsvg):
//
//	svg := floorplan.RenderSVG(s)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [floorplan]: github.com/matzehuels/floorsolve/pkg/render/floorplan
// [dot]: github.com/matzehuels/floorsolve/pkg/render/dot
// [plot]: github.com/matzehuels/floorsolve/pkg/render/plot
package render
