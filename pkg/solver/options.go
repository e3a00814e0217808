package solver

import (
	"io"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/floorsolve/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultLearningRate is the Adam step size.
	DefaultLearningRate = 0.02

	// DefaultMaxIterations bounds the number of updates of a full solve.
	DefaultMaxIterations = 1000

	// DefaultTolerance is the cost at or below which a hard constraint
	// counts as satisfied.
	DefaultTolerance = 1e-4

	// DefaultEnergyTol ends a feasible run outright.
	DefaultEnergyTol = 1e-8

	// DefaultRelTol is the relative energy improvement that resets the
	// patience counters.
	DefaultRelTol = 1e-4

	// DefaultPatience is the number of non-improving feasible iterations
	// before a run counts as converged.
	DefaultPatience = 20

	// DefaultStallPatience is the number of non-improving infeasible
	// iterations before a run counts as stalled.
	DefaultStallPatience = 100

	// DefaultGradClip caps the global gradient norm.
	DefaultGradClip = 1.0

	// DefaultProjectInterval is how often (in updates) escaped centers are
	// projected back inside the boundary.
	DefaultProjectInterval = 10

	// DefaultProjectMargin is how far inside the boundary a projected center
	// lands.
	DefaultProjectMargin = 1e-3

	// DefaultJitter is the magnitude of the initial symmetry-breaking noise.
	DefaultJitter = 1e-3

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultStep is the finite-difference step.
	DefaultStep = 1e-6

	// DefaultLogInterval is the number of iterations between debug progress
	// lines.
	DefaultLogInterval = 50
)

// Options configures a solver run. Zero values select the defaults above.
// GradClip, ProjectInterval and Jitter are disabled by negative values.
type Options struct {
	LearningRate float64 `json:"learning_rate,omitempty" toml:"learning_rate"`
	// Decay shrinks the step as lr/(1 + Decay·t).
	Decay   float64 `json:"decay,omitempty" toml:"decay"`
	Beta1   float64 `json:"beta1,omitempty" toml:"beta1"`
	Beta2   float64 `json:"beta2,omitempty" toml:"beta2"`
	Epsilon float64 `json:"epsilon,omitempty" toml:"epsilon"`

	GradClip      float64       `json:"grad_clip,omitempty" toml:"grad_clip"`
	MaxIterations int           `json:"max_iterations,omitempty" toml:"max_iterations"`
	TimeLimit     time.Duration `json:"time_limit,omitempty" toml:"time_limit"`

	Tolerance     float64 `json:"tolerance,omitempty" toml:"tolerance"`
	EnergyTol     float64 `json:"energy_tol,omitempty" toml:"energy_tol"`
	RelTol        float64 `json:"rel_tol,omitempty" toml:"rel_tol"`
	Patience      int     `json:"patience,omitempty" toml:"patience"`
	StallPatience int     `json:"stall_patience,omitempty" toml:"stall_patience"`

	ProjectInterval int     `json:"project_interval,omitempty" toml:"project_interval"`
	ProjectMargin   float64 `json:"project_margin,omitempty" toml:"project_margin"`
	Jitter          float64 `json:"jitter,omitempty" toml:"jitter"`
	Seed            uint64  `json:"seed,omitempty" toml:"seed"`
	Step            float64 `json:"step,omitempty" toml:"step"`

	// Workers limits concurrent term evaluation. Results do not depend on it.
	Workers          int `json:"workers,omitempty" toml:"workers"`
	SnapshotInterval int `json:"snapshot_interval,omitempty" toml:"snapshot_interval"`
	LogInterval      int `json:"log_interval,omitempty" toml:"log_interval"`

	// Runtime options (not serialized)
	Logger   *log.Logger `json:"-" toml:"-"`
	Progress func(State) `json:"-" toml:"-"`
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.LearningRate == 0 {
		o.LearningRate = DefaultLearningRate
	}
	if o.Beta1 == 0 {
		o.Beta1 = 0.9
	}
	if o.Beta2 == 0 {
		o.Beta2 = 0.999
	}
	if o.Epsilon == 0 {
		o.Epsilon = 1e-8
	}
	if o.GradClip == 0 {
		o.GradClip = DefaultGradClip
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.EnergyTol == 0 {
		o.EnergyTol = DefaultEnergyTol
	}
	if o.RelTol == 0 {
		o.RelTol = DefaultRelTol
	}
	if o.Patience == 0 {
		o.Patience = DefaultPatience
	}
	if o.StallPatience == 0 {
		o.StallPatience = DefaultStallPatience
	}
	if o.ProjectInterval == 0 {
		o.ProjectInterval = DefaultProjectInterval
	}
	if o.ProjectMargin == 0 {
		o.ProjectMargin = DefaultProjectMargin
	}
	if o.Jitter == 0 {
		o.Jitter = DefaultJitter
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Step == 0 {
		o.Step = DefaultStep
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.LogInterval == 0 {
		o.LogInterval = DefaultLogInterval
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks option ranges. Call after SetDefaults.
func (o *Options) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"learning_rate", o.LearningRate},
		{"decay", o.Decay},
		{"epsilon", o.Epsilon},
		{"tolerance", o.Tolerance},
		{"energy_tol", o.EnergyTol},
		{"rel_tol", o.RelTol},
		{"project_margin", o.ProjectMargin},
		{"step", o.Step},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return errors.New(errors.ErrCodeInvalidOptions, "%s must be finite and non-negative, got %v", f.name, f.v)
		}
	}
	if o.LearningRate <= 0 || o.Step <= 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "learning_rate and step must be positive")
	}
	if o.Beta1 < 0 || o.Beta1 >= 1 || o.Beta2 < 0 || o.Beta2 >= 1 {
		return errors.New(errors.ErrCodeInvalidOptions, "beta1 and beta2 must be in [0, 1)")
	}
	if math.IsNaN(o.GradClip) || math.IsNaN(o.Jitter) {
		return errors.New(errors.ErrCodeInvalidOptions, "grad_clip and jitter must be numbers")
	}
	if o.MaxIterations < 0 || o.Patience < 0 || o.StallPatience < 0 || o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "iteration counts must be non-negative")
	}
	if o.TimeLimit < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "time_limit must be non-negative")
	}
	return nil
}
