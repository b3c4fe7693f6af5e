package cli

import (
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// options are the persistent flags shared by every command.
type options struct {
	json    bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "reforge",
		Short:         "Compare refactoring strategies before touching your code",
		Long:          "reforge finds code smells, tries competing refactorings on isolated virtual branches, scores them and applies the winner or a whole chain.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline steps to stderr")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newPlanCmd(opts))
	cmd.AddCommand(newCohesionCmd(opts))
	cmd.AddCommand(newCompareCmd(opts))
	cmd.AddCommand(newApplyCmd(opts))
	cmd.AddCommand(newChainCmd(opts))
	cmd.AddCommand(newChainsCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newRollbackCmd(opts))
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newMCPCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}
