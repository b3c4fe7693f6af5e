package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/reforge/reforge/internal/adapters/inbound/mcp"
)

func newMCPCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the reforge MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(opts))
	return cmd
}

func newMCPServeCmd(opts *options) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reforge MCP server (stdio)",
		Long:  "Start the reforge MCP server over stdio so coding assistants can query plans, cohesion reports, chains and strategy comparisons.",
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := projectPath([]string{path}, 0)
			if err != nil {
				return err
			}
			svc, err := newService(opts)
			if err != nil {
				return err
			}
			return server.ServeStdio(mcpadapter.NewServer(svc, abs))
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Project path")
	return cmd
}
