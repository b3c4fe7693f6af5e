package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reforge/reforge/internal/adapters/outbound/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate a .reforge.yaml configuration file",
		Long:  "Create a commented .reforge.yaml with the default thresholds and orchestrator settings.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectPath(args, 0)
			if err != nil {
				return err
			}
			if _, err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.FileName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing .reforge.yaml")
	return cmd
}
