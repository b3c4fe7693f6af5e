package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reforge/reforge/internal/adapters/outbound/tui"
	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/composer"
)

// resolveChain builds the chain named by --name or spelled out by
// --strategies. Exactly one of the two must be set.
func resolveChain(name, strategies string) (domain.StrategyChain, error) {
	switch {
	case name != "" && strategies != "":
		return domain.StrategyChain{}, errors.New("use either --name or --strategies, not both")
	case name != "":
		chain, ok := composer.PredefinedChain(name)
		if !ok {
			var names []string
			for _, c := range composer.PredefinedChains() {
				names = append(names, c.Name)
			}
			return domain.StrategyChain{}, fmt.Errorf("unknown chain %q (known: %s)", name, strings.Join(names, ", "))
		}
		return composer.Normalize(chain), nil
	case strategies != "":
		var types []domain.RefactoringType
		for _, s := range strings.Split(strategies, ",") {
			t, err := domain.ParseRefactoringType(s)
			if err != nil {
				return domain.StrategyChain{}, err
			}
			types = append(types, t)
		}
		return composer.NewChain(types), nil
	default:
		return domain.StrategyChain{}, errors.New("one of --name or --strategies is required")
	}
}

func newChainCmd(opts *options) *cobra.Command {
	var name, strategies string

	cmd := &cobra.Command{
		Use:   "chain <file> [path]",
		Short: "Apply a sequence of strategies to one file, stopping on regression",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := resolveChain(name, strategies)
			if err != nil {
				return err
			}
			path, err := projectPath(args, 1)
			if err != nil {
				return err
			}
			svc, err := newService(opts)
			if err != nil {
				return err
			}

			id := domain.DocumentID(filepath.ToSlash(strings.TrimPrefix(args[0], "./")))
			res, err := svc.ApplyChain(cmd.Context(), path, id, chain)
			if err != nil {
				return fmt.Errorf("chain failed: %w", err)
			}
			if opts.json {
				return renderJSON(cmd, res)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderChainResult(res))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Predefined chain (god_class, long_method, testability, complexity)")
	cmd.Flags().StringVar(&strategies, "strategies", "", "Comma-separated strategies, e.g. extract_interface,extract_class")
	return cmd
}

func newChainsCmd(opts *options) *cobra.Command {
	var maxLen int

	cmd := &cobra.Command{
		Use:   "chains [path]",
		Short: "List every valid strategy chain by estimated impact",
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
			chains, err := svc.Chains(path, maxLen)
			if err != nil {
				return err
			}
			if opts.json {
				return renderJSON(cmd, chains)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderChains(chains))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLen, "max-len", 0, "Longest chain to list (defaults to max_chain_length from config)")
	return cmd
}
