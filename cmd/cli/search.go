package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// formatSize formats a byte count in human-readable form, kept from the
// teacher's cmd/cli/main.go helper of the same name.
func formatSize(size int64) string {
	switch {
	case size >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB", float64(size)/(1024*1024*1024))
	case size >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func parseMode(s string) (model.QueryMode, error) {
	switch strings.ToLower(s) {
	case "", "exact":
		return model.ModeExact, nil
	case "fuzzy":
		return model.ModeFuzzy, nil
	case "wildcard":
		return model.ModeWildcard, nil
	case "regex":
		return model.ModeRegex, nil
	default:
		return 0, fmt.Errorf("unknown search mode %q (want exact, fuzzy, wildcard or regex)", s)
	}
}

func newSearchCmd() *cobra.Command {
	var mode string
	var maxResults int
	var drives []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the live index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queryMode, err := parseMode(mode)
			if err != nil {
				return err
			}

			e := newEngine()
			defer e.Shutdown()
			if err := e.Restore(cmd.Context()); err != nil {
				app.log.Warn("search: restore from persistence failed: %v", err)
			}

			q := model.SearchQuery{Text: args[0], Mode: queryMode, MaxResults: maxResults}
			if len(drives) > 0 {
				q.IncludeDrives = make(map[model.DriveID]struct{}, len(drives))
				for _, root := range drives {
					if id, ok := e.DriveIDForPath(root); ok {
						q.IncludeDrives[id] = struct{}{}
					}
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			results, err := e.Search(ctx, q)
			if err != nil {
				return err
			}

			for _, r := range results {
				if verbose {
					fmt.Printf("%s  %s  score=%.3f  modified=%s\n",
						r.Record.FullPath, formatSize(r.Record.Size), r.Score, r.Record.LastModified.Format("2006-01-02 15:04"))
				} else {
					fmt.Println(r.Record.FullPath)
				}
			}
			if !quiet {
				fmt.Printf("%d result(s)\n", len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "exact", "search mode: exact, fuzzy, wildcard or regex")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "cap returned results (0: use config default)")
	cmd.Flags().StringSliceVar(&drives, "drives", nil, "restrict to these previously-indexed root paths")
	return cmd
}
