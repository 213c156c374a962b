// Command koe-no-search is the CLI application layer over internal/core's
// Engine: every operation it exposes (search, index, rebuild, watch,
// stats, config) is also available programmatically through the Engine
// itself, per spec §6's "the core exposes the same operations
// programmatically" note.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AlestackOverglow/koe-no-search/internal/config"
	"github.com/AlestackOverglow/koe-no-search/internal/core"
	"github.com/AlestackOverglow/koe-no-search/internal/logging"
)

// Version, BuildTime and GitCommit are overridden at link time via
// -ldflags, matching the teacher's version-reporting flags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	verbose    bool
	quiet      bool
	daemon     bool
)

// appContext bundles the state every subcommand needs, built once in
// PersistentPreRunE from the global flags.
type appContext struct {
	cfg *config.Config
	log *logging.Logger
}

var app appContext

func newEngine() *core.Engine {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	snapshot := filepath.Join(dir, "koe-no-search", "index.snapshot")
	return core.New(app.cfg, app.log, nil, snapshot)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, matching the
// teacher's Ctrl-C handling in cmd/cli/main.go generalized from one search
// command to every long-running subcommand.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func main() {
	root := &cobra.Command{
		Use:     "koe-no-search",
		Short:   "Local filesystem search: crawl, watch and query a live file index",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app.cfg = cfg

			logDir, err := os.UserCacheDir()
			if err != nil {
				logDir = os.TempDir()
			}
			log, err := logging.New(filepath.Join(logDir, "koe-no-search"), "cli.log")
			if err != nil {
				log = logging.NewDiscard()
			}
			app.log = log
			return nil
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("koe-no-search %s (built %s, commit %s)\n", Version, BuildTime, GitCommit))

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default: search standard locations)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "print per-result/per-event detail")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress output")
	root.PersistentFlags().BoolVar(&daemon, "daemon", false, "run watch in the background without interactive output")

	root.AddCommand(newSearchCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newRebuildCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newFileopCmd())
	root.AddCommand(newBrowseCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
