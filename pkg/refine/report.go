package refine

import (
	"sort"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/scene"
)

// Violation is one offending constraint.
type Violation struct {
	Constraint string          `json:"constraint"`
	Kind       constraint.Kind `json:"kind"`
	Cost       float64         `json:"cost"`
	Hard       bool            `json:"hard,omitempty"`
}

// Entry lists the violations an asset is implicated in.
type Entry struct {
	Asset      string      `json:"asset"`
	Violations []Violation `json:"violations"`
}

// Report is a ViolationReport: assets with at least one unsatisfied hard
// constraint or clearance shortfall, sorted by asset id.
type Report struct {
	Entries []Entry `json:"entries"`
}

// Empty reports whether nothing is violated.
func (r Report) Empty() bool { return len(r.Entries) == 0 }

// Assets returns the implicated asset ids, sorted.
func (r Report) Assets() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Asset
	}
	return out
}

// Constraints returns the distinct violated constraint ids, sorted.
func (r Report) Constraints() []string {
	seen := make(map[string]bool)
	for _, e := range r.Entries {
		for _, v := range e.Violations {
			seen[v.Constraint] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Detect evaluates cs under p and reports every hard constraint that is not
// satisfied at opts.Tolerance and every reachability constraint whose cost
// exceeds opts.ReachTolerance, hard or not. Assets are blamed through
// constraint.Implicated.
func Detect(p scene.PoseReader, cs []constraint.Constraint, opts Options) (Report, error) {
	opts.SetDefaults()
	byAsset := make(map[string][]Violation)

	for _, c := range cs {
		cost, err := c.Cost(p)
		if err != nil {
			return Report{}, err
		}
		violated := false
		if c.IsHard() {
			ok, err := c.Satisfied(p, opts.Tolerance)
			if err != nil {
				return Report{}, err
			}
			violated = !ok
		}
		if c.Kind() == constraint.KindReachability && cost > opts.ReachTolerance {
			violated = true
		}
		if !violated {
			continue
		}
		blamed, err := constraint.Implicated(c, p)
		if err != nil {
			return Report{}, err
		}
		v := Violation{Constraint: c.ID(), Kind: c.Kind(), Cost: cost, Hard: c.IsHard()}
		for _, id := range blamed {
			byAsset[id] = append(byAsset[id], v)
		}
	}

	ids := make([]string, 0, len(byAsset))
	for id := range byAsset {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	r := Report{Entries: make([]Entry, len(ids))}
	for i, id := range ids {
		r.Entries[i] = Entry{Asset: id, Violations: byAsset[id]}
	}
	return r, nil
}
