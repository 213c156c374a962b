package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlestackOverglow/koe-no-search/internal/config"
)

func newConfigCmd() *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if write != "" {
				if err := config.Save(app.cfg, write); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				fmt.Printf("wrote config to %s\n", write)
				return nil
			}

			cfg := app.cfg
			fmt.Printf("include_drives:       %v\n", cfg.IncludeDrives)
			fmt.Printf("exclude_paths:        %v\n", cfg.ExcludePaths)
			fmt.Printf("exclude_extensions:   %v\n", cfg.ExcludeExtensions)
			fmt.Printf("index_hidden_files:   %v\n", cfg.IndexHiddenFiles)
			fmt.Printf("index_system_files:   %v\n", cfg.IndexSystemFiles)
			fmt.Printf("default_search_mode:  %s\n", cfg.DefaultSearchMode)
			fmt.Printf("max_search_results:   %d\n", cfg.MaxSearchResults)
			fmt.Printf("enable_fuzzy_search:  %v\n", cfg.EnableFuzzySearch)
			fmt.Printf("fuzzy_threshold:      %.2f\n", cfg.FuzzyThreshold)
			fmt.Printf("indexing_threads:     %d\n", cfg.IndexingThreads)
			fmt.Printf("max_memory_usage:     %d MB\n", cfg.MaxMemoryUsageMB)
			fmt.Printf("enable_cache:         %v\n", cfg.EnableCache)
			fmt.Printf("cache_size:           %d MB\n", cfg.CacheSizeMB)
			fmt.Printf("enable_wal:           %v\n", cfg.EnableWAL)
			fmt.Printf("cache_pages:          %d\n", cfg.CachePages)
			return nil
		},
	}

	cmd.Flags().StringVar(&write, "write", "", "write the effective config as YAML to this path instead of printing it")
	return cmd
}
