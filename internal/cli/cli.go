// Package cli implements the floorsolve command-line interface.
//
// # Commands
//
// The main commands are:
//   - solve: Optimize a problem file and write poses, reports and artifacts
//   - check: Validate a problem file and report its current violations
//   - render: Draw a problem file as a floor plan or graph without solving
//   - serve: Run the HTTP API
//   - runs: Inspect archived runs
//   - cache: Manage the solve cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// streams solver progress lines.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/floorsolve/pkg/archive"
	"github.com/matzehuels/floorsolve/pkg/cache"
	"github.com/matzehuels/floorsolve/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "floorsolve"

	// envRedisAddr and envArchiveURI provide defaults for the backend flags.
	envRedisAddr  = "FLOORSOLVE_REDIS_ADDR"
	envArchiveURI = "FLOORSOLVE_ARCHIVE_URI"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// backendOpts selects the cache and archive backends of a runner.
type backendOpts struct {
	noCache    bool
	redisAddr  string
	archiveURI string
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, opts backendOpts) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(cc, nil, c.Logger)
	if opts.archiveURI != "" {
		store, err := archive.NewMongoStore(ctx, archive.MongoOptions{URI: opts.archiveURI})
		if err != nil {
			_ = cc.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		runner.Archive = store
	}
	return runner, nil
}

func (c *CLI) newCache(ctx context.Context, opts backendOpts) (cache.Cache, error) {
	switch {
	case opts.noCache:
		return cache.NewNullCache(), nil
	case opts.redisAddr != "":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: opts.redisAddr, Prefix: appName + ":"})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// openArchive opens the archive named by uri, falling back to the
// environment.
func openArchive(ctx context.Context, uri string) (archive.Store, error) {
	if uri == "" {
		uri = os.Getenv(envArchiveURI)
	}
	if uri == "" {
		return nil, fmt.Errorf("no archive configured (use --archive-uri or %s)", envArchiveURI)
	}
	return archive.NewMongoStore(ctx, archive.MongoOptions{URI: uri})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/floorsolve/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
