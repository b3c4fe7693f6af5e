package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/reforge/reforge/internal/application"
)

// NewServer creates an MCP server with the reforge tools and resources
// registered against the project at projectPath.
func NewServer(svc *application.RefactorService, projectPath string) *server.MCPServer {
	s := server.NewMCPServer(
		"reforge",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, svc, projectPath)
	registerResources(s, svc, projectPath)

	return s
}
