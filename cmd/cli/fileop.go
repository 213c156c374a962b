package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AlestackOverglow/koe-no-search/internal/crawler"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

func parseConflictPolicy(s string) (crawler.ConflictPolicy, error) {
	switch strings.ToLower(s) {
	case "", "skip":
		return crawler.ConflictSkip, nil
	case "overwrite":
		return crawler.ConflictOverwrite, nil
	case "rename":
		return crawler.ConflictRename, nil
	default:
		return 0, fmt.Errorf("unknown conflict policy %q (want skip, overwrite or rename)", s)
	}
}

// newFileopCmd acts on a single previously-indexed search result: copy,
// move or delete, resolved against the live index rather than a raw path
// so the ID has to have come from a search result first.
func newFileopCmd() *cobra.Command {
	var op, target, conflict string

	cmd := &cobra.Command{
		Use:   "fileop <file-id>",
		Short: "Copy, move or delete a previously-indexed file by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid file id %q: %w", args[0], err)
			}

			var operation crawler.Operation
			switch strings.ToLower(op) {
			case "copy":
				operation = crawler.OpCopy
			case "move":
				operation = crawler.OpMove
			case "delete":
				operation = crawler.OpDelete
			default:
				return fmt.Errorf("unknown operation %q (want copy, move or delete)", op)
			}
			if operation != crawler.OpDelete && target == "" {
				return fmt.Errorf("--target is required for copy/move")
			}

			policy, err := parseConflictPolicy(conflict)
			if err != nil {
				return err
			}

			e := newEngine()
			defer e.Shutdown()
			if err := e.Restore(cmd.Context()); err != nil {
				app.log.Warn("fileop: restore from persistence failed: %v", err)
			}

			err = e.ApplyFileOp(cmd.Context(), model.ID(id), crawler.FileOpOptions{
				Operation: operation,
				TargetDir: target,
				Conflict:  policy,
			})
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Printf("%s applied to file %d\n", op, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&op, "op", "", "operation: copy, move or delete")
	cmd.Flags().StringVar(&target, "target", "", "destination directory for copy/move")
	cmd.Flags().StringVar(&conflict, "conflict", "skip", "conflict policy: skip, overwrite or rename")
	return cmd
}
