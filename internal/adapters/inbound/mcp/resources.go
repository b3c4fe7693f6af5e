package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/reforge/reforge/internal/application"
)

func registerResources(s *server.MCPServer, svc *application.RefactorService, projectPath string) {
	s.AddResource(
		mcplib.NewResource(
			"reforge://plan",
			"Refactoring Plan",
			mcplib.WithResourceDescription("Current refactoring opportunities for the project"),
			mcplib.WithMIMEType("application/json"),
		),
		jsonResource("reforge://plan", func(ctx context.Context) (any, error) {
			return svc.Plan(ctx, projectPath)
		}),
	)

	s.AddResource(
		mcplib.NewResource(
			"reforge://history",
			"Run History",
			mcplib.WithResourceDescription("Past apply, chain and rollback runs"),
			mcplib.WithMIMEType("application/json"),
		),
		jsonResource("reforge://history", func(context.Context) (any, error) {
			return svc.History(projectPath)
		}),
	)
}

func jsonResource(uri string, load func(context.Context) (any, error)) server.ResourceHandlerFunc {
	return func(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", uri, err)
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", uri, err)
		}
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
