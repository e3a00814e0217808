package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/floorsolve/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "floorsolve arranges furniture in a room by gradient descent",
		Long:         `floorsolve places the assets of a room so that they stay inside the walls, do not overlap, respect design rules and keep walkways clear. Problems are TOML files; results are JSON reports, solved problem files and drawings.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.solveCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// addBackendFlags registers the cache and archive flags shared by solve and
// serve.
func addBackendFlags(cmd *cobra.Command, opts *backendOpts) {
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the solve cache")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", os.Getenv(envRedisAddr), "cache in Redis at host:port instead of the cache directory")
	cmd.Flags().StringVar(&opts.archiveURI, "archive-uri", os.Getenv(envArchiveURI), "record runs in MongoDB (mongodb://...)")
}
