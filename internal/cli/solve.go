package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/floorsolve/pkg/observability"
	"github.com/matzehuels/floorsolve/pkg/pipeline"
	"github.com/matzehuels/floorsolve/pkg/problem"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// solveOpts holds the command-line flags for the solve command. Solver and
// refinement flags override the problem's [solver] and [refine] tables only
// when set explicitly.
type solveOpts struct {
	output       string // JSON run output path, "-" for stdout
	writeProblem string // solved problem file path
	artifacts    string // comma-separated artifact kinds
	format       string // artifact format
	outDir       string // artifact directory
	tui          bool
	refresh      bool
	noRefine     bool

	seed          uint64
	maxIterations int
	learningRate  float64
	timeLimit     time.Duration
	tolerance     float64
	workers       int

	incidenceDepth   int
	neighborRadius   float64
	refineIterations int
	maxAttempts      int

	backend backendOpts
}

// solveCommand creates the solve command.
func (c *CLI) solveCommand() *cobra.Command {
	var opts solveOpts

	cmd := &cobra.Command{
		Use:   "solve [problem.toml]",
		Short: "Optimize the layout of a problem file",
		Long: `Solve optimizes every free asset of the problem, then refines the assets
that still violate a hard constraint or block a walkway.

The run summary goes to stdout. Use -o to write the full JSON run output,
--write-problem to save the problem with the solved poses and --render to
draw the result.`,
		Example: `  floorsolve solve examples/studio.toml
  floorsolve solve room.toml --seed 7 --max-iterations 3000 -o run.json
  floorsolve solve room.toml --render floorplan,loss --out-dir out/
  floorsolve solve room.toml --tui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSolve(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON run output to a file (- for stdout)")
	cmd.Flags().StringVar(&opts.writeProblem, "write-problem", "", "write the problem with the solved poses to a TOML file")
	cmd.Flags().StringVar(&opts.artifacts, "render", "", "artifacts to draw: floorplan, clearance, incidence, loss (comma-separated)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", pipeline.DefaultFormat, "artifact format: svg, png, pdf, dot")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "artifact directory (default: next to the problem file)")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show live progress in a terminal UI")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&opts.noRefine, "no-refine", false, "skip the refinement stage")

	cmd.Flags().Uint64Var(&opts.seed, "seed", solver.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", solver.DefaultMaxIterations, "update budget of the main solve")
	cmd.Flags().Float64Var(&opts.learningRate, "learning-rate", solver.DefaultLearningRate, "Adam step size")
	cmd.Flags().DurationVar(&opts.timeLimit, "time-limit", 0, "wall-clock budget of the main solve (disables caching)")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", solver.DefaultTolerance, "cost at which a hard constraint counts as satisfied")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent constraint evaluations (default: number of CPUs)")

	cmd.Flags().IntVar(&opts.incidenceDepth, "incidence-depth", 0, "constraint hops added around violating assets")
	cmd.Flags().Float64Var(&opts.neighborRadius, "neighbor-radius", 0, "also refine free assets within this distance (m)")
	cmd.Flags().IntVar(&opts.refineIterations, "refine-iterations", 0, "update budget of a refinement solve")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "escalating refinement passes")

	addBackendFlags(cmd, &opts.backend)

	return cmd
}

// apply copies explicitly set flags into p.
func (o *solveOpts) apply(cmd *cobra.Command, p *problem.Problem) {
	set := cmd.Flags().Changed
	if set("seed") {
		p.Solver.Seed = o.seed
	}
	if set("max-iterations") {
		p.Solver.MaxIterations = o.maxIterations
	}
	if set("learning-rate") {
		p.Solver.LearningRate = o.learningRate
	}
	if set("time-limit") {
		p.Solver.TimeLimit = o.timeLimit
	}
	if set("tolerance") {
		p.Solver.Tolerance = o.tolerance
		p.Refine.Tolerance = o.tolerance
	}
	if set("workers") {
		p.Solver.Workers = o.workers
	}
	if set("incidence-depth") {
		p.Refine.IncidenceDepth = o.incidenceDepth
	}
	if set("neighbor-radius") {
		p.Refine.NeighborRadius = o.neighborRadius
	}
	if set("refine-iterations") {
		p.Refine.Iterations = o.refineIterations
	}
	if set("max-attempts") {
		p.Refine.MaxAttempts = o.maxAttempts
	}
}

// pipelineOptions converts the flags to pipeline options.
func (o *solveOpts) pipelineOptions(p *problem.Problem) pipeline.Options {
	opts := pipeline.Options{
		Problem:  p,
		NoRefine: o.noRefine,
		Refresh:  o.refresh,
		Format:   o.format,
	}
	if o.artifacts != "" {
		opts.Artifacts = strings.Split(o.artifacts, ",")
	}
	return opts
}

func (c *CLI) runSolve(cmd *cobra.Command, path string, opts *solveOpts) error {
	ctx := cmd.Context()
	prog := newProgress(c.Logger)

	p, err := problem.Load(path)
	if err != nil {
		return err
	}
	opts.apply(cmd, p)
	popts := opts.pipelineOptions(p)
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.backend)
	if err != nil {
		return err
	}
	defer runner.Close()
	observability.SetPipelineHooks(observability.LogPipelineHooks{Logger: c.Logger})

	res, err := c.execute(ctx, runner, popts, opts.tui)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Solved %s", path))

	if opts.output != "-" {
		printResult(res)
	}
	return writeOutputs(path, res, p, opts)
}

// execute runs the pipeline with the progress display the flags select:
// the TUI, streamed debug logs, or a spinner.
func (c *CLI) execute(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, tui bool) (*pipeline.Result, error) {
	maxIter := opts.Problem.Solver.MaxIterations
	if maxIter <= 0 {
		maxIter = solver.DefaultMaxIterations
	}
	if tui {
		return c.runSolveTUI(ctx, runner, opts, maxIter)
	}
	if c.Logger.GetLevel() <= log.DebugLevel {
		opts.Logger = c.Logger
		return runner.Execute(ctx, opts)
	}

	spinner := newSpinnerWithContext(ctx, "Solving...")
	spinner.Start()
	opts.Progress = throttle(progressInterval, func(m progressMsg) {
		spinner.Update(fmt.Sprintf("Solving... iteration %d/%d, energy %s", m.Iteration, maxIter, formatFloat(m.Energy)))
	})
	opts.Logger = quietLogger()
	res, err := runner.Execute(ctx, opts)
	spinner.Stop()
	return res, err
}

// writeOutputs writes the JSON run output, the solved problem and the
// artifacts requested by opts.
func writeOutputs(input string, res *pipeline.Result, p *problem.Problem, opts *solveOpts) error {
	if opts.output != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode run output: %w", err)
		}
		data = append(data, '\n')
		if opts.output == "-" {
			_, err = out.Write(data)
			return err
		}
		if err := os.WriteFile(opts.output, data, 0o644); err != nil {
			return err
		}
		printFile(opts.output)
	}

	if opts.writeProblem != "" {
		f, err := os.Create(opts.writeProblem)
		if err != nil {
			return err
		}
		if err := problem.Encode(f, p.WithPoses(res.Poses)); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		printFile(opts.writeProblem)
	}

	return writeArtifacts(input, opts.outDir, res.Artifacts)
}

// writeArtifacts writes each artifact as <dir>/<input base>.<name>.
func writeArtifacts(input, dir string, artifacts map[string][]byte) error {
	if len(artifacts) == 0 {
		return nil
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		path := filepath.Join(dir, base+"."+name)
		if err := os.WriteFile(path, artifacts[name], 0o644); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}
