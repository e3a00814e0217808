// Package pkg provides the core libraries of floorsolve, a furniture layout
// solver.
//
// # Overview
//
// floorsolve places the assets of a room (furniture footprints inside a wall
// polygon) so that a weighted sum of constraint costs is minimized. Hard
// constraints keep assets inside the room and apart from each other; soft
// ones express design rules and walkway clearance. The pkg directory is
// organized into four areas:
//
//  1. Model: [scene], [geom], [reach]
//  2. Optimization: [constraint], [solver], [refine]
//  3. Orchestration: [problem], [pipeline]
//  4. Infrastructure: [cache], [archive], [observability], [errors], [render]
//
// # Architecture
//
// The data flow of a run:
//
//	Problem file (TOML)
//	         ↓
//	    [problem] package (decode, validate, build scene + constraints)
//	         ↓
//	    [solver] package (Adam over free asset poses)
//	         ↓
//	    [refine] package (violation report, scoped re-optimization)
//	         ↓
//	    [render] packages (floor plan SVG, Graphviz graphs, loss curves)
//
// # Quick Start
//
// Solve a problem file and refine what is left:
//
//	p, _ := problem.Load("studio.toml")
//	inst, _ := p.Build()
//
//	sv, _ := solver.New(inst.Scene, inst.Constraints, nil, p.Solver)
//	res, _ := sv.Run(ctx)
//
//	out, _ := refine.Refine(ctx, inst.Scene, inst.Constraints, p.Refine)
//	if !out.Residual.Empty() {
//	    fmt.Println("still violated:", out.Residual.Assets())
//	}
//
//	svg := floorplan.RenderSVG(inst.Scene, floorplan.WithLabels())
//
// [pipeline.Runner] runs the same stages with caching, logging hooks and
// run archiving. It is shared by the CLI and the HTTP API.
//
// # Main Packages
//
// [scene] - Boundary polygon, assets with footprints and poses, fixed assets
// and pose snapshots.
//
// [reach] - Walkway clearance between anchors: per-pair gaps, blocking
// assets and the clearance graph.
//
// [constraint] - Containment, collision, alignment, semantic and
// reachability constraints behind one interface, plus energy and
// feasibility helpers.
//
// [solver] - Deterministic Adam loop over free poses with finite-difference
// gradients. Ends as converged, stalled or at its iteration limit.
//
// [refine] - Detects residual violations, selects the assets around them and
// re-optimizes only those. Every other pose stays unchanged.
//
// [cache] - Null, file and Redis caches with scoped keys and TTLs.
//
// [archive] - Run history in memory or MongoDB.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/solver/...             # Specific package
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
//
// [scene]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/scene
// [geom]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/geom
// [reach]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/reach
// [constraint]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/constraint
// [solver]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/solver
// [refine]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/refine
// [problem]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/problem
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/cache
// [archive]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/archive
// [observability]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/errors
// [render]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/render
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/floorsolve/pkg/pipeline#Runner
package pkg
