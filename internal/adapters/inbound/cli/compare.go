package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reforge/reforge/internal/adapters/outbound/tui"
	"github.com/reforge/reforge/internal/application"
	"github.com/reforge/reforge/internal/domain"
)

type targetFlags struct {
	file  string
	index int
}

func (f *targetFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "Only consider opportunities in this file (relative to the project)")
	cmd.Flags().IntVar(&f.index, "index", 1, "Which opportunity to use, 1-based, in plan order")
}

// compareTarget plans the project and runs the comparison for the selected
// opportunity.
func compareTarget(ctx context.Context, svc *application.RefactorService, path string, f targetFlags) (*domain.StrategyComparison, error) {
	plan, err := svc.Plan(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	opp, err := pickOpportunity(plan, f.file, f.index)
	if err != nil {
		return nil, err
	}
	snap, err := svc.LoadSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	cmp, err := svc.Compare(ctx, snap, opp)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}
	return cmp, nil
}

func newCompareCmd(opts *options) *cobra.Command {
	var target targetFlags

	cmd := &cobra.Command{
		Use:   "compare [path]",
		Short: "Try every applicable strategy on a virtual branch and rank them",
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
			cmp, err := compareTarget(cmd.Context(), svc, path, target)
			if err != nil {
				return err
			}
			if opts.json {
				return renderJSON(cmd, cmp)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderComparison(cmp))
			return nil
		},
	}
	target.bind(cmd)
	return cmd
}

func newApplyCmd(opts *options) *cobra.Command {
	var target targetFlags

	cmd := &cobra.Command{
		Use:   "apply [path]",
		Short: "Compare strategies and write the best one to disk",
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
			cmp, err := compareTarget(cmd.Context(), svc, path, target)
			if err != nil {
				return err
			}

			res, err := svc.ApplyBest(cmd.Context(), path, cmp)
			if errors.Is(err, domain.ErrNoQualifyingResult) {
				if opts.json {
					return renderJSON(cmd, cmp)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderComparison(cmp))
				return err
			}
			if err != nil {
				return fmt.Errorf("apply failed: %w", err)
			}

			if opts.json {
				if err := renderJSON(cmd, res); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderResult(res))
			}
			if !res.Success {
				return fmt.Errorf("apply failed: %s", res.Error)
			}
			return nil
		},
	}
	target.bind(cmd)
	return cmd
}
