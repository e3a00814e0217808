// Package refine repairs the residual violations of a finished solve by
// re-optimizing only the assets involved in them.
//
// A refinement pass detects violations (see [Detect]), selects a small set
// of movable assets around them (see [Select]) and runs a fresh solver with
// only those assets free and only the constraints that touch them. Every
// other pose stays bit-for-bit unchanged. Residual violations after the pass
// are returned as data, never as an error.
package refine

import (
	"context"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/scene"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

const (
	// DefaultIterations is the update budget of one refinement solve.
	DefaultIterations = 150

	// DefaultReachTolerance is the reachability cost above which a clearance
	// shortfall is reported.
	DefaultReachTolerance = 1e-4

	// DefaultMaxAttempts is the number of refinement solves per pass.
	DefaultMaxAttempts = 1
)

// Options configures refinement.
type Options struct {
	Tolerance      float64 `json:"tolerance,omitempty" toml:"tolerance"`
	ReachTolerance float64 `json:"reach_tolerance,omitempty" toml:"reach_tolerance"`

	// IncidenceDepth is the number of constraint-incidence hops added
	// around the violating assets.
	IncidenceDepth int `json:"incidence_depth,omitempty" toml:"incidence_depth"`
	// NeighborRadius adds free assets whose footprint is this close to a
	// selected one. Zero disables it.
	NeighborRadius float64 `json:"neighbor_radius,omitempty" toml:"neighbor_radius"`

	Iterations int `json:"iterations,omitempty" toml:"iterations"`
	// MaxAttempts allows escalating passes, each widening the incidence
	// depth by one. A pass never reruns an asset set already tried.
	MaxAttempts int `json:"max_attempts,omitempty" toml:"max_attempts"`
	// Disabled skips refinement entirely.
	Disabled bool `json:"disabled,omitempty" toml:"disabled"`

	// Solver holds the base options of the scoped solver. MaxIterations is
	// replaced by Iterations.
	Solver solver.Options `json:"-" toml:"-"`
	Logger *log.Logger    `json:"-" toml:"-"`
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.Tolerance == 0 {
		o.Tolerance = solver.DefaultTolerance
	}
	if o.ReachTolerance == 0 {
		o.ReachTolerance = DefaultReachTolerance
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultIterations
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Attempt describes one scoped solve.
type Attempt struct {
	Assets      []string       `json:"assets"`
	Constraints int            `json:"constraints"`
	Result      *solver.Result `json:"result"`
}

// Outcome is the result of a refinement pass.
type Outcome struct {
	// Noop is set when there was nothing to refine; no pose was touched.
	Noop     bool      `json:"noop"`
	Initial  Report    `json:"initial"`
	Residual Report    `json:"residual"`
	Attempts []Attempt `json:"attempts,omitempty"`
}

// Refine runs a refinement pass on s. Errors are reserved for invalid input,
// cancellation and evaluation failures; unresolved violations are reported
// in Outcome.Residual.
func Refine(ctx context.Context, s *scene.Scene, cs []constraint.Constraint, opts Options) (*Outcome, error) {
	opts.SetDefaults()
	logger := opts.Logger

	report, err := Detect(s, cs, opts)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Initial: report, Residual: report}
	if report.Empty() || opts.Disabled {
		out.Noop = true
		return out, nil
	}

	tried := make(map[string]bool)
	for attempt := 0; attempt < opts.MaxAttempts && !report.Empty(); attempt++ {
		sel := opts
		sel.IncidenceDepth = opts.IncidenceDepth + attempt
		assets := Select(report, s, cs, sel)
		key := strings.Join(assets, "\x00")
		if len(assets) == 0 || tried[key] {
			break
		}
		tried[key] = true

		set := make(map[string]bool, len(assets))
		for _, id := range assets {
			set[id] = true
		}
		scoped := slices.DeleteFunc(slices.Clone(cs), func(c constraint.Constraint) bool {
			return !constraint.Touches(c, set)
		})

		logger.Info("refining",
			"attempt", attempt+1,
			"violations", len(report.Constraints()),
			"assets", assets,
			"constraints", len(scoped))

		so := opts.Solver
		so.MaxIterations = opts.Iterations
		if so.Logger == nil {
			so.Logger = logger
		}
		sv, err := solver.New(s, scoped, assets, so)
		if err != nil {
			return nil, err
		}
		res, err := sv.Run(ctx)
		if err != nil {
			return nil, err
		}
		out.Attempts = append(out.Attempts, Attempt{Assets: assets, Constraints: len(scoped), Result: res})

		report, err = Detect(s, cs, opts)
		if err != nil {
			return nil, err
		}
	}
	out.Residual = report
	if !report.Empty() {
		logger.Warn("residual violations", "assets", report.Assets())
	}
	return out, nil
}
