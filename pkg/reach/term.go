package reach

import (
	"math"

	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Term is the clearance cost of one (pair, asset) combination. A pair
// without candidate assets yields a single term with an empty Asset whose
// cost is always zero.
type Term struct {
	m     *Module
	Pair  int
	Asset string
	// Scope lists the assets whose poses move this term: the candidate
	// asset and the owners of the pair's anchors.
	Scope []string
}

// Terms splits the cost into independent (pair, asset) summands, in pair
// order then candidate order.
func (m *Module) Terms() []Term {
	var out []Term
	for i, p := range m.pairs {
		owners := m.owners(p)
		if len(m.candidates[i]) == 0 {
			out = append(out, Term{m: m, Pair: i, Scope: owners})
			continue
		}
		for _, id := range m.candidates[i] {
			scope := append([]string{id}, owners...)
			out = append(out, Term{m: m, Pair: i, Asset: id, Scope: scope})
		}
	}
	return out
}

// Cost returns max(0, r - sd)² for this term, or zero when r is zero.
func (t Term) Cost(r scene.PoseReader) (float64, error) {
	if t.Asset == "" || t.m.pairs[t.Pair].Clearance == 0 {
		return 0, nil
	}
	sd, err := t.m.Gap(r, t.Pair, t.Asset)
	if err != nil {
		return 0, err
	}
	short := math.Max(0, t.m.pairs[t.Pair].Clearance-sd)
	return short * short, nil
}
