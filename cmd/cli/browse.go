package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
)

func parsePreloadStrategy(s string) crawler.PreloadStrategy {
	switch strings.ToLower(s) {
	case "dfs":
		return crawler.PreloadDFS
	case "frequency":
		return crawler.PreloadFrequency
	default:
		return crawler.PreloadBFS
	}
}

// newBrowseCmd lazily lists one directory without requiring a prior bulk
// crawl, per spec §4.5's progressive loading mode for interactive use.
func newBrowseCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "browse <path>",
		Short: "Lazily list a directory's children without a full crawl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			e := newEngine()
			defer e.Shutdown()

			b := e.Browse()
			defer b.Close()

			b.Expand(path)

			deadline := time.Now().Add(5 * time.Second)
			for b.State(path) != crawler.Loaded && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}

			dirs, files, loaded := b.Listing(path)
			if !loaded {
				return fmt.Errorf("browse: timed out loading %s", path)
			}
			b.Preload(cmd.Context(), path, parsePreloadStrategy(strategy))
			for _, d := range dirs {
				fmt.Printf("%s/\n", d)
			}
			for _, f := range files {
				if verbose {
					fmt.Printf("%s  %s\n", f.FullPath, formatSize(f.Size))
				} else {
					fmt.Println(f.FullPath)
				}
			}
			if !quiet {
				fmt.Printf("%d director(ies), %d file(s)\n", len(dirs), len(files))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "preload", "bfs", "neighbour preload strategy: bfs, dfs or frequency")
	return cmd
}
