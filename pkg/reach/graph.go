package reach

import (
	"math"

	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Node is a resolved anchor.
type Node struct {
	ID    string
	X, Y  float64
	Asset string
}

// Edge is a designated pair with its current clearance situation.
type Edge struct {
	From, To  string
	Clearance float64
	// Gap is the smallest signed distance between the path and any
	// candidate footprint; +Inf when the pair has no candidates.
	Gap      float64
	Blocking []string
}

// Clear reports whether the path keeps its clearance from every asset.
func (e Edge) Clear() bool { return len(e.Blocking) == 0 }

// Graph is the clearance graph for one set of poses.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Walkable reports whether every designated pair is clear.
func (g Graph) Walkable() bool {
	for _, e := range g.Edges {
		if !e.Clear() {
			return false
		}
	}
	return true
}

// Graph rebuilds the clearance graph from r's poses.
func (m *Module) Graph(r scene.PoseReader) (Graph, error) {
	var g Graph
	for _, id := range m.order {
		p, err := m.Resolve(r, id)
		if err != nil {
			return Graph{}, err
		}
		g.Nodes = append(g.Nodes, Node{ID: id, X: p.X, Y: p.Y, Asset: m.anchors[id].Asset})
	}
	for i, p := range m.pairs {
		e := Edge{From: p.From, To: p.To, Clearance: p.Clearance, Gap: math.Inf(1)}
		for _, id := range m.candidates[i] {
			sd, err := m.Gap(r, i, id)
			if err != nil {
				return Graph{}, err
			}
			e.Gap = math.Min(e.Gap, sd)
			if p.Clearance > 0 && sd < p.Clearance {
				e.Blocking = append(e.Blocking, id)
			}
		}
		g.Edges = append(g.Edges, e)
	}
	return g, nil
}
