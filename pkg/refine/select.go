package refine

import (
	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/geom"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Select picks the assets a refinement pass may move.
//
// Seeds are the non-fixed assets of the report. The selection then grows by
// opts.IncidenceDepth hops over the constraint-incidence graph, where assets
// are nodes and pair-scoped constraints are edges (reachability and other
// group constraints add no edges). Finally every non-fixed asset whose
// footprint lies within opts.NeighborRadius of a selected footprint is
// added; a radius of zero disables this step.
//
// The result follows scene order.
func Select(r Report, s *scene.Scene, cs []constraint.Constraint, opts Options) []string {
	selected := make(map[string]bool)
	var frontier []string
	for _, id := range r.Assets() {
		if s.Has(id) && !s.Fixed(id) && !selected[id] {
			selected[id] = true
			frontier = append(frontier, id)
		}
	}

	adj := incidence(s, cs)
	for hop := 0; hop < opts.IncidenceDepth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range adj[id] {
				if !selected[nb] {
					selected[nb] = true
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}

	if opts.NeighborRadius > 0 && len(selected) > 0 {
		var core []geom.Rect
		for _, id := range s.IDs() {
			if selected[id] {
				rect, _ := scene.Rect(s, id)
				core = append(core, rect)
			}
		}
		for _, id := range s.Free() {
			if selected[id] {
				continue
			}
			rect, _ := scene.Rect(s, id)
			for _, c := range core {
				if geom.RectDistance(rect, c) <= opts.NeighborRadius {
					selected[id] = true
					break
				}
			}
		}
	}

	var out []string
	for _, id := range s.IDs() {
		if selected[id] {
			out = append(out, id)
		}
	}
	return out
}

// incidence builds the asset adjacency of pair-scoped constraints, skipping
// fixed assets. Neighbor lists follow constraint order.
func incidence(s *scene.Scene, cs []constraint.Constraint) map[string][]string {
	adj := make(map[string][]string)
	for _, c := range cs {
		scope := c.Scope()
		if len(scope) != 2 || c.Kind() == constraint.KindReachability {
			continue
		}
		a, b := scope[0], scope[1]
		if a == b || s.Fixed(a) || s.Fixed(b) {
			continue
		}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	return adj
}
