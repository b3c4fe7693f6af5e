package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reforge/reforge/internal/adapters/outbound/tui"
)

func newPlanCmd(opts *options) *cobra.Command {
	var minOpportunities int

	cmd := &cobra.Command{
		Use:   "plan [path]",
		Short: "List refactoring opportunities ranked by severity",
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

			plan, err := svc.Plan(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}

			if opts.json {
				if err := renderJSON(cmd, plan); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderPlan(plan))
			}

			if minOpportunities > 0 && len(plan.Opportunities) >= minOpportunities {
				return fmt.Errorf("%d opportunities found (limit %d)", len(plan.Opportunities), minOpportunities)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minOpportunities, "fail-at", 0, "Exit non-zero when at least this many opportunities are found")
	return cmd
}

func newCohesionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cohesion [path]",
		Short: "Report LCOM4 and responsibility clusters for every struct",
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

			docs, err := svc.Cohesion(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("cohesion analysis failed: %w", err)
			}
			if opts.json {
				return renderJSON(cmd, docs)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			for _, d := range docs {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderCohesion(d.DocumentID, d.Reports))
			}
			return nil
		},
	}
}
