package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/reforge/reforge/internal/application"
	"github.com/reforge/reforge/internal/domain"
)

func registerTools(s *server.MCPServer, svc *application.RefactorService, projectPath string) {
	s.AddTool(
		mcplib.NewTool("reforge_plan",
			mcplib.WithDescription("Returns the refactoring plan: code smells ranked by severity with the strategies that address them"),
		),
		handlePlan(svc, projectPath),
	)

	s.AddTool(
		mcplib.NewTool("reforge_cohesion",
			mcplib.WithDescription("Returns LCOM4 and responsibility clusters for every struct, optionally for one file"),
			mcplib.WithString("file", mcplib.Description("Relative path of a file to restrict the report to")),
		),
		handleCohesion(svc, projectPath),
	)

	s.AddTool(
		mcplib.NewTool("reforge_chains",
			mcplib.WithDescription("Lists every valid strategy chain ordered by estimated impact"),
			mcplib.WithNumber("max_len", mcplib.Description("Longest chain to list (default: max_chain_length from config)")),
		),
		handleChains(svc, projectPath),
	)

	s.AddTool(
		mcplib.NewTool("reforge_compare",
			mcplib.WithDescription("Runs every applicable strategy for one opportunity on isolated virtual branches and ranks them. Nothing is written to disk."),
			mcplib.WithString("file", mcplib.Description("Relative path of the file whose opportunities to consider")),
			mcplib.WithNumber("index", mcplib.Description("1-based opportunity index in plan order (default 1)")),
		),
		handleCompare(svc, projectPath),
	)
}

func handlePlan(svc *application.RefactorService, projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		plan, err := svc.Plan(ctx, projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("planning failed: %v", err)), nil
		}
		return jsonResult(plan)
	}
}

func handleCohesion(svc *application.RefactorService, projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		docs, err := svc.Cohesion(ctx, projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("cohesion analysis failed: %v", err)), nil
		}
		if file := normalizeFile(argString(request, "file")); file != "" {
			var filtered []application.DocumentCohesion
			for _, d := range docs {
				if string(d.DocumentID) == file {
					filtered = append(filtered, d)
				}
			}
			if len(filtered) == 0 {
				return errorResult(fmt.Sprintf("no Go file %q in project", file)), nil
			}
			docs = filtered
		}
		return jsonResult(docs)
	}
}

func handleChains(svc *application.RefactorService, projectPath string) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		chains, err := svc.Chains(projectPath, argInt(request, "max_len", 0))
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return jsonResult(chains)
	}
}

func handleCompare(svc *application.RefactorService, projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		file := normalizeFile(argString(request, "file"))
		index := argInt(request, "index", 1)

		plan, err := svc.Plan(ctx, projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("planning failed: %v", err)), nil
		}
		opp, ok := selectOpportunity(plan, file, index)
		if !ok {
			return errorResult(fmt.Sprintf("no opportunity #%d found", index)), nil
		}
		snap, err := svc.LoadSnapshot(ctx, projectPath)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		cmp, err := svc.Compare(ctx, snap, opp)
		if err != nil {
			return errorResult(fmt.Sprintf("comparison failed: %v", err)), nil
		}
		return jsonResult(cmp)
	}
}

func selectOpportunity(plan *domain.RefactoringPlan, file string, index int) (domain.RefactoringOpportunity, bool) {
	n := 0
	for _, opp := range plan.Opportunities {
		if file != "" && string(opp.DocumentID) != file {
			continue
		}
		if n++; n == index {
			return opp, true
		}
	}
	return domain.RefactoringOpportunity{}, false
}

func argString(request mcplib.CallToolRequest, name string) string {
	v, _ := request.GetArguments()[name].(string)
	return v
}

// argInt reads a numeric argument; JSON numbers arrive as float64.
func argInt(request mcplib.CallToolRequest, name string, def int) int {
	switch v := request.GetArguments()[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func normalizeFile(file string) string {
	return filepath.ToSlash(strings.TrimPrefix(strings.TrimSpace(file), "./"))
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
