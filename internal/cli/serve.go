package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/floorsolve/internal/server"
	"github.com/matzehuels/floorsolve/pkg/cache"
	"github.com/matzehuels/floorsolve/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		cfg     server.Config
		backend backendOpts
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes the solver over HTTP:

  POST /v1/solve       solve a TOML (or JSON) problem
  GET  /v1/runs        list archived runs
  GET  /v1/runs/{id}   fetch an archived run
  GET  /v1/version     build information
  GET  /healthz        liveness check

Runs are archived in MongoDB with --archive-uri, in memory otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runner, err := c.newRunner(ctx, backend)
			if err != nil {
				return err
			}
			defer runner.Close()
			// Server keys must not collide with CLI entries in a shared Redis.
			runner.Keyer = cache.NewScopedKeyer(runner.Keyer, "server:")

			observability.SetPipelineHooks(observability.LogPipelineHooks{Logger: c.Logger})

			srv := server.New(cfg, runner, runner.Archive, c.Logger)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().DurationVar(&cfg.SolveTimeout, "solve-timeout", server.DefaultSolveTimeout, "time budget of one solve request")
	cmd.Flags().Int64Var(&cfg.MaxBody, "max-body", server.DefaultMaxBody, "largest accepted problem document in bytes")
	addBackendFlags(cmd, &backend)

	return cmd
}
