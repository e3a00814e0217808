package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/floorsolve/pkg/archive"
	"github.com/matzehuels/floorsolve/pkg/cache"
	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/observability"
	"github.com/matzehuels/floorsolve/pkg/problem"
	"github.com/matzehuels/floorsolve/pkg/refine"
	"github.com/matzehuels/floorsolve/pkg/scene"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, archive and logger - it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Archive records every finished run when set.
	Archive archive.Store
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → solve → refine → render pipeline with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	start := time.Now()

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	result := &Result{
		RunID:     runID,
		Name:      opts.Problem.Name,
		Artifacts: make(map[string][]byte),
		CreatedAt: start.UTC(),
	}
	hooks := observability.Pipeline()

	// Stage 1: Build
	buildStart := time.Now()
	hooks.OnBuildStart(ctx, runID)
	inst, err := opts.Problem.Build()
	if err == nil {
		result.ProblemHash, err = opts.Problem.Hash()
	}
	result.Stats.BuildTime = time.Since(buildStart)
	if err != nil {
		hooks.OnBuildComplete(ctx, runID, 0, 0, result.Stats.BuildTime, err)
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Stats.Assets = len(inst.Scene.IDs())
	result.Stats.Free = len(inst.Scene.Free())
	result.Stats.Constraints = len(inst.Constraints)
	hooks.OnBuildComplete(ctx, runID, result.Stats.Assets, result.Stats.Constraints, result.Stats.BuildTime, nil)

	opts.Logger.Info("built problem",
		"name", result.Name,
		"assets", result.Stats.Assets,
		"constraints", result.Stats.Constraints,
		"duration", result.Stats.BuildTime)

	// Stage 2 and 3: Solve and refine
	entry, hit, err := r.SolveWithCacheInfo(ctx, runID, inst, result.ProblemHash, opts)
	if err != nil {
		return nil, err
	}
	result.CacheInfo.SolveHit = hit
	result.Solve = entry.Solve
	result.Refinement = entry.Refinement
	result.Stats.SolveTime = entry.SolveTime
	result.Stats.RefineTime = entry.RefineTime
	result.Status = entry.Solve.Status
	result.Iterations = entry.Solve.Iterations
	result.Poses = inst.Scene.Snapshot()

	if err := r.summarize(result, inst, opts); err != nil {
		return nil, err
	}

	opts.Logger.Info("solved layout",
		"status", result.Status,
		"iterations", result.Iterations,
		"energy", result.Energy,
		"feasible", result.Feasible,
		"cached", hit)

	// Stage 4: Render
	if len(opts.Artifacts) > 0 {
		renderStart := time.Now()
		artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, inst, result, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(renderStart)
		result.CacheInfo.RenderHit = renderHit

		opts.Logger.Info("rendered outputs",
			"artifacts", opts.Artifacts,
			"format", opts.Format,
			"duration", result.Stats.RenderTime)
	}

	if r.Archive != nil {
		if err := r.Archive.Put(ctx, archiveRun(result, time.Since(start))); err != nil {
			// The solve succeeded; a lost history entry is not fatal.
			opts.Logger.Warn("archive run failed", "run", runID, "error", err)
		}
	}
	return result, nil
}

// summarize fills the energy, feasibility and residual report of the final
// poses.
func (r *Runner) summarize(result *Result, inst *problem.Instance, opts Options) error {
	energy, err := constraint.Energy(inst.Constraints, inst.Scene)
	if err != nil {
		return err
	}
	so := opts.Problem.Solver
	so.SetDefaults()
	feasible, err := constraint.Feasible(inst.Constraints, inst.Scene, so.Tolerance)
	if err != nil {
		return err
	}
	result.Energy = energy
	result.Feasible = feasible

	if result.Refinement != nil {
		result.Residual = result.Refinement.Residual
		return nil
	}
	result.Residual, err = refine.Detect(inst.Scene, inst.Constraints, r.refineOptions(opts))
	return err
}

// solveEntry is the cached outcome of the solve and refine stages.
type solveEntry struct {
	Solve      *solver.Result  `json:"solve"`
	Refinement *refine.Outcome `json:"refinement,omitempty"`
	Poses      scene.Snapshot  `json:"poses"`
	SolveTime  time.Duration   `json:"solve_time"`
	RefineTime time.Duration   `json:"refine_time"`
}

// SolveWithCacheInfo optimizes inst in place, then refines it unless
// disabled, and reports whether the outcome came from the cache. On a hit
// the cached final poses are applied to inst.Scene.
//
// Runs with a time limit are never cached since their result depends on
// the machine.
func (r *Runner) SolveWithCacheInfo(ctx context.Context, runID string, inst *problem.Instance, problemHash string, opts Options) (*solveEntry, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	cacheable := opts.Problem.Solver.TimeLimit <= 0
	cacheKey, err := r.solveKey(problemHash, opts)
	if err != nil {
		cacheable = false
	}

	if cacheable && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var entry solveEntry
			if err := json.Unmarshal(data, &entry); err == nil && entry.Solve != nil {
				if err := inst.Scene.Apply(entry.Poses); err == nil {
					observability.Cache().OnCacheHit(ctx, "solve")
					return &entry, true, nil // Cache hit
				}
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "solve")
	}

	entry, err := r.solve(ctx, runID, inst, opts)
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		if data, err := json.Marshal(entry); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLSolve); err == nil {
				observability.Cache().OnCacheSet(ctx, "solve", len(data))
			}
		}
	}
	return entry, false, nil // Cache miss
}

func (r *Runner) solve(ctx context.Context, runID string, inst *problem.Instance, opts Options) (*solveEntry, error) {
	hooks := observability.Pipeline()
	so := opts.Problem.Solver
	so.Logger = opts.Logger
	so.Progress = opts.Progress

	solveStart := time.Now()
	hooks.OnSolveStart(ctx, runID, len(inst.Scene.Free()), len(inst.Constraints))
	sv, err := solver.New(inst.Scene, inst.Constraints, nil, so)
	if err != nil {
		hooks.OnSolveComplete(ctx, runID, "", 0, time.Since(solveStart), err)
		return nil, fmt.Errorf("solve: %w", err)
	}
	res, err := sv.Run(ctx)
	entry := &solveEntry{SolveTime: time.Since(solveStart)}
	if err != nil {
		hooks.OnSolveComplete(ctx, runID, "", 0, entry.SolveTime, err)
		return nil, fmt.Errorf("solve: %w", err)
	}
	hooks.OnSolveComplete(ctx, runID, string(res.Status), res.Iterations, entry.SolveTime, nil)
	entry.Solve = res

	if !opts.NoRefine && !opts.Problem.Refine.Disabled {
		refineStart := time.Now()
		ro := r.refineOptions(opts)
		report, err := refine.Detect(inst.Scene, inst.Constraints, ro)
		if err != nil {
			return nil, fmt.Errorf("refine: %w", err)
		}
		hooks.OnRefineStart(ctx, runID, len(report.Entries))
		out, err := refine.Refine(ctx, inst.Scene, inst.Constraints, ro)
		entry.RefineTime = time.Since(refineStart)
		if err != nil {
			hooks.OnRefineComplete(ctx, runID, 0, entry.RefineTime, err)
			return nil, fmt.Errorf("refine: %w", err)
		}
		hooks.OnRefineComplete(ctx, runID, len(out.Residual.Entries), entry.RefineTime, nil)
		entry.Refinement = out
	}
	entry.Poses = inst.Scene.Snapshot()
	return entry, nil
}

// refineOptions returns the problem's refinement options, solving with the
// problem's solver settings.
func (r *Runner) refineOptions(opts Options) refine.Options {
	ro := opts.Problem.Refine
	ro.Solver = opts.Problem.Solver
	ro.Solver.Progress = nil
	ro.Logger = opts.Logger
	return ro
}

// solveKey derives the cache key of a solve from the problem hash and every
// setting that changes its outcome.
func (r *Runner) solveKey(problemHash string, opts Options) (string, error) {
	so := opts.Problem.Solver
	so.SetDefaults()
	// Reporting-only knobs.
	so.Workers, so.LogInterval = 0, 0
	settings, err := cache.HashValue(struct {
		Solver solver.Options `json:"solver"`
		Refine refine.Options `json:"refine"`
	}{so, opts.Problem.Refine})
	if err != nil {
		return "", err
	}
	return r.Keyer.SolveKey(problemHash, cache.SolveKeyOpts{
		Seed:          so.Seed,
		MaxIterations: so.MaxIterations,
		LearningRate:  so.LearningRate,
		Tolerance:     so.Tolerance,
		Refine:        !opts.NoRefine && !opts.Problem.Refine.Disabled,
		Settings:      settings,
	}), nil
}

// Close releases resources held by the runner (the cache and the archive).
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Archive != nil {
		if aerr := r.Archive.Close(context.Background()); err == nil {
			err = aerr
		}
	}
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func archiveRun(res *Result, d time.Duration) archive.Run {
	return archive.Run{
		ID:          res.RunID,
		Name:        res.Name,
		ProblemHash: res.ProblemHash,
		Status:      string(res.Status),
		Iterations:  res.Iterations,
		Energy:      res.Energy,
		Feasible:    res.Feasible,
		Refined:     res.Refinement != nil && !res.Refinement.Noop,
		Residual:    res.Residual.Assets(),
		Poses:       res.Poses,
		CacheHit:    res.CacheInfo.SolveHit,
		Duration:    d,
		CreatedAt:   res.CreatedAt,
	}
}
