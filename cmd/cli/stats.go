package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index totals and cache hit ratios",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine()
			defer e.Shutdown()
			if err := e.Restore(cmd.Context()); err != nil {
				app.log.Warn("stats: restore from persistence failed: %v", err)
			}

			s := e.Stats()
			fmt.Printf("files:       %d\n", s.Index.TotalFiles)
			fmt.Printf("directories: %d\n", s.Index.TotalDirs)
			fmt.Printf("total size:  %s\n", formatSize(int64(s.Index.TotalSize)))
			fmt.Printf("index memory (estimated): %s\n", formatSize(int64(s.Memory)))
			fmt.Printf("cache hit ratio  file-by-id=%.2f  queries=%.2f  children=%.2f\n",
				s.FileByID.HitRatio, s.Queries.HitRatio, s.Children.HitRatio)

			if verbose {
				if violations := e.ValidateIntegrity(); len(violations) > 0 {
					fmt.Println("integrity violations:")
					for _, v := range violations {
						fmt.Printf("  - %s\n", v)
					}
				}
			}
			return nil
		},
	}
}
