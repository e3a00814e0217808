package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/floorsolve/pkg/pipeline"
	"github.com/matzehuels/floorsolve/pkg/problem"
	"github.com/matzehuels/floorsolve/pkg/refine"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	kinds  string // comma-separated artifact kinds
	format string // output format
	outDir string // output directory
}

// renderCommand creates the render command, which draws a problem file as
// it is. Combined with solve --write-problem it redraws solved layouts.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		kinds:  pipeline.ArtifactFloorplan,
		format: pipeline.DefaultFormat,
	}

	cmd := &cobra.Command{
		Use:   "render [problem.toml]",
		Short: "Draw the current poses of a problem file",
		Example: `  floorsolve render room.toml
  floorsolve render solved.toml --kind floorplan,clearance --format png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.kinds, "kind", "k", opts.kinds, "artifacts: floorplan, clearance, incidence (comma-separated)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, png, pdf, dot")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "output directory (default: next to the problem file)")

	return cmd
}

func runRender(ctx context.Context, path string, opts renderOpts) error {
	kinds := strings.Split(opts.kinds, ",")
	if slices.Contains(kinds, pipeline.ArtifactLoss) {
		return fmt.Errorf("the loss curve needs a solve; use solve --render loss")
	}

	p, err := problem.Load(path)
	if err != nil {
		return err
	}
	popts := pipeline.Options{Problem: p, Artifacts: kinds, Format: opts.format}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	inst, err := p.Build()
	if err != nil {
		return err
	}
	report, err := refine.Detect(inst.Scene, inst.Constraints, p.Refine)
	if err != nil {
		return err
	}

	res := &pipeline.Result{Name: p.Name, Poses: inst.Scene.Snapshot(), Residual: report}
	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	artifacts, err := pipeline.RenderArtifacts(ctx, inst, res, popts)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return ctx.Err()
		}
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %s", StyleTitle.Render(path)))
	return writeArtifacts(path, opts.outDir, artifacts)
}
