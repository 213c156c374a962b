package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/AlestackOverglow/koe-no-search/internal/core"
	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
)

// runIndex drives one crawl to completion, rendering a progressbar/v3 bar
// off the crawler's Progress callback the way the teacher's cmd/cli drove
// one off search results, and checkpoints the gateway so a later `search`
// or `stats` invocation can Restore this run's results.
func runIndex(cmd *cobra.Command, drives []string) error {
	e := newEngine()
	defer e.Shutdown()

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.Default(-1, "indexing")
	}

	e.SetCallbacks(engineCallbacks(bar))

	ctx, cancel := signalContext()
	defer cancel()

	if err := e.Index(ctx, drives); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err := e.Checkpoint(ctx); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	stats := e.Stats()
	if !quiet {
		fmt.Printf("indexed %d files, %d directories (%s)\n",
			stats.Index.TotalFiles, stats.Index.TotalDirs, formatSize(int64(stats.Index.TotalSize)))
	}
	return nil
}

func engineCallbacks(bar *progressbar.ProgressBar) core.Callbacks {
	return core.Callbacks{
		Progress: func(p crawler.Progress) {
			if bar == nil {
				return
			}
			bar.Describe(fmt.Sprintf("%s: %s", p.Phase, p.CurrentPath))
			bar.Set64(int64(p.FilesIndexed + p.DirsIndexed))
		},
		IndexingComplete: func(success bool, message string) {
			if verbose {
				fmt.Printf("indexing_complete: success=%v message=%s\n", success, message)
			}
		},
	}
}

func newIndexCmd() *cobra.Command {
	var drives []string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Crawl the configured (or given) drives and build the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, drives)
		},
	}
	cmd.Flags().StringSliceVar(&drives, "drives", nil, "roots to crawl (default: config's include_drives, or every OS root)")
	return cmd
}

func newRebuildCmd() *cobra.Command {
	var drives []string
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Discard the current index and crawl from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, drives)
		},
	}
	cmd.Flags().StringSliceVar(&drives, "drives", nil, "roots to crawl (default: config's include_drives, or every OS root)")
	return cmd
}
