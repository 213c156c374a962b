package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlestackOverglow/koe-no-search/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var noWatch bool
	var drives []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Index, then watch for changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine()
			defer e.Shutdown()

			if err := e.Restore(cmd.Context()); err != nil {
				app.log.Warn("watch: restore from persistence failed: %v", err)
			}

			e.SetCallbacks(engineCallbacks(nil))

			ctx, cancel := signalContext()
			defer cancel()

			if err := e.Index(ctx, drives); err != nil {
				return fmt.Errorf("index: %w", err)
			}
			if err := e.Checkpoint(ctx); err != nil {
				return fmt.Errorf("checkpoint: %w", err)
			}

			if noWatch {
				return nil
			}

			roots := drives
			if len(roots) == 0 {
				roots = []string{"/"}
			}
			cb := engineCallbacks(nil)
			cb.FileChange = func(ev watcher.Event) {
				if verbose {
					fmt.Printf("file_change: %s %s\n", ev.Kind, ev.Path)
				}
			}
			e.SetCallbacks(cb)
			if err := e.Watch(ctx, roots, watcher.NewFilterRules(nil, nil, nil, 0, 0)); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			if !quiet && !daemon {
				fmt.Println("watching for changes; press Ctrl+C to stop")
			}

			<-ctx.Done()
			e.StopWatch()
			if !quiet {
				fmt.Println("watch stopped")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "index once and exit without starting the watch loop")
	cmd.Flags().StringSliceVar(&drives, "drives", nil, "roots to index and watch (default: every OS root)")
	return cmd
}
