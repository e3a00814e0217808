// Package pipeline runs a layout problem end to end.
//
// This package implements the build → solve → refine → render pipeline used
// by the CLI and the HTTP server. By centralizing this logic both entry
// points share caching, hooks, and logging.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Build: Validate the problem and create the scene and constraints
//  2. Solve: Optimize all free poses from their initial placement
//  3. Refine: Re-optimize only the assets left violating after the solve
//  4. Render: Produce floor plan, graph and loss-curve artifacts
//
// Solve and refine are cached together: the key covers the problem hash and
// every option that changes the outcome, so a rerun of the same problem
// restores the final poses without optimizing.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	p, _ := problem.Load("studio.toml")
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Problem:   p,
//	    Artifacts: []string{pipeline.ArtifactFloorplan},
//	})
//	svg := result.Artifacts["floorplan.svg"]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/floorsolve/pkg/problem"
	"github.com/matzehuels/floorsolve/pkg/refine"
	"github.com/matzehuels/floorsolve/pkg/render"
	"github.com/matzehuels/floorsolve/pkg/scene"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// =============================================================================
// Artifacts
// =============================================================================

// Artifact kinds.
const (
	ArtifactFloorplan = "floorplan"
	ArtifactClearance = "clearance"
	ArtifactIncidence = "incidence"
	ArtifactLoss      = "loss"
)

// ValidArtifacts maps each artifact kind to the formats it supports.
var ValidArtifacts = map[string][]string{
	ArtifactFloorplan: {render.FormatSVG, render.FormatPNG, render.FormatPDF},
	ArtifactClearance: {render.FormatSVG, render.FormatPNG, render.FormatPDF, render.FormatDOT},
	ArtifactIncidence: {render.FormatSVG, render.FormatPNG, render.FormatPDF, render.FormatDOT},
	ArtifactLoss:      {render.FormatPNG},
}

// DefaultFormat is the output format of every artifact that supports it.
const DefaultFormat = render.FormatSVG

// ArtifactName returns the file name an artifact is stored under, for
// example "floorplan.svg". The loss curve yields "loss.png" and
// "loss-log.png".
func ArtifactName(kind, format string) string {
	return kind + "." + format
}

// ValidateArtifact checks that kind is known and supports format.
func ValidateArtifact(kind, format string) error {
	formats, ok := ValidArtifacts[kind]
	if !ok {
		return fmt.Errorf("invalid artifact: %q (must be one of: floorplan, clearance, incidence, loss)", kind)
	}
	if !slices.Contains(formats, format) {
		return fmt.Errorf("artifact %s does not support format %q", kind, format)
	}
	return nil
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains the configuration of one pipeline run. Solver and
// refinement settings come from the problem's [solver] and [refine] tables.
type Options struct {
	Problem *problem.Problem `json:"-"`

	// RunID identifies the run. A random UUID is used when empty.
	RunID string `json:"run_id,omitempty"`

	// NoRefine skips the refinement stage.
	NoRefine bool `json:"no_refine,omitempty"`

	// Refresh ignores cached results (they are still written).
	Refresh bool `json:"refresh,omitempty"`

	// Artifacts lists the artifact kinds to render.
	Artifacts []string `json:"artifacts,omitempty"`
	// Format is the output format of Artifacts. The loss curve is always
	// PNG.
	Format string `json:"format,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger        `json:"-"`
	Progress func(solver.State) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Problem == nil {
		return fmt.Errorf("problem is required")
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	for _, kind := range o.Artifacts {
		format := o.Format
		if kind == ArtifactLoss {
			format = render.FormatPNG
		}
		if err := ValidateArtifact(kind, format); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run. It is the JSON run output
// of the CLI and the server.
type Result struct {
	RunID       string `json:"run_id"`
	Name        string `json:"name,omitempty"`
	ProblemHash string `json:"problem_hash"`

	// Status is the terminal status of the main solve.
	Status     solver.Status `json:"status"`
	Iterations int           `json:"iterations"`
	// Energy and Feasible describe the final poses, after refinement.
	Energy   float64        `json:"energy"`
	Feasible bool           `json:"feasible"`
	Poses    scene.Snapshot `json:"poses"`

	Solve      *solver.Result  `json:"solve"`
	Refinement *refine.Outcome `json:"refinement,omitempty"`
	// Residual lists the violations left after refinement.
	Residual refine.Report `json:"residual"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
	CreatedAt time.Time `json:"created_at"`

	// Artifacts contains rendered outputs keyed by ArtifactName.
	Artifacts map[string][]byte `json:"-"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Assets      int           `json:"assets"`
	Free        int           `json:"free"`
	Constraints int           `json:"constraints"`
	BuildTime   time.Duration `json:"build_time"`
	SolveTime   time.Duration `json:"solve_time"`
	RefineTime  time.Duration `json:"refine_time"`
	RenderTime  time.Duration `json:"render_time"`
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	SolveHit  bool `json:"solve_hit"`  // Whether solve and refine came from cache
	RenderHit bool `json:"render_hit"` // Whether all artifacts came from cache
}
