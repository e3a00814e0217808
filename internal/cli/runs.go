package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/floorsolve/pkg/archive"
)

// runsCommand creates the runs command for inspecting archived runs.
func (c *CLI) runsCommand() *cobra.Command {
	var uri string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived runs",
		Long: `Runs lists and shows solves recorded in the MongoDB archive. Solves are
recorded when solve or serve runs with --archive-uri.`,
	}
	cmd.PersistentFlags().StringVar(&uri, "archive-uri", "", "MongoDB archive (default: $"+envArchiveURI+")")

	cmd.AddCommand(c.runsListCommand(&uri))
	cmd.AddCommand(c.runsShowCommand(&uri))

	return cmd
}

// runsListCommand creates the "runs list" subcommand.
func (c *CLI) runsListCommand(uri *string) *cobra.Command {
	var (
		opts   archive.ListOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openArchive(ctx, *uri)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			runs, err := store.List(ctx, opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(runs)
			}
			if len(runs) == 0 {
				printInfo("No runs archived")
				return nil
			}
			printRuns(runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ProblemHash, "problem", "", "only runs of this problem hash")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", archive.DefaultListLimit, "maximum number of runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

// runsShowCommand creates the "runs show" subcommand.
func (c *CLI) runsShowCommand(uri *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print an archived run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openArchive(ctx, *uri)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(run)
		},
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
