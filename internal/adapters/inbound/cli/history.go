package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reforge/reforge/internal/adapters/outbound/tui"
)

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history [path]",
		Short: "Show past apply, chain and rollback runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(args, 0)
			if err != nil {
				return err
			}
			svc, err := newService(opts)
			if err != nil {
				return err
			}
			entries, err := svc.History(path)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
			if opts.json {
				return renderJSON(cmd, entries)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(entries))
			return nil
		},
	}
}

func newRollbackCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <backup-id> [path]",
		Short: "Restore the files saved by an earlier apply or chain",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(args, 1)
			if err != nil {
				return err
			}
			svc, err := newService(opts)
			if err != nil {
				return err
			}
			if err := svc.Rollback(cmd.Context(), path, args[0]); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored backup %s\n", args[0])
			return nil
		},
	}
}
