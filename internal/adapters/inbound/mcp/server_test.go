package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpadapter "github.com/reforge/reforge/internal/adapters/inbound/mcp"
	"github.com/reforge/reforge/internal/bootstrap"
	"github.com/reforge/reforge/internal/domain"
)

const fixtureDir = "../../../../testdata/godclass"

func newServer(t *testing.T) *server.MCPServer {
	t.Helper()
	svc, err := bootstrap.NewRefactorService(nil)
	require.NoError(t, err)
	return mcpadapter.NewServer(svc, fixtureDir)
}

// call invokes a tool through the JSON-RPC entry point and returns the text
// content of the result and its error flag.
func call(t *testing.T, s *server.MCPServer, tool string, args map[string]any) (string, bool) {
	t.Helper()
	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), req))
	require.NoError(t, err)
	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotEmpty(t, resp.Result.Content, string(raw))
	return resp.Result.Content[0].Text, resp.Result.IsError
}

func TestServerHasTools(t *testing.T) {
	tools := newServer(t).ListTools()
	expected := []string{"reforge_plan", "reforge_cohesion", "reforge_chains", "reforge_compare"}
	for _, name := range expected {
		_, exists := tools[name]
		assert.True(t, exists, "tool %q should be registered", name)
	}
	assert.Len(t, tools, len(expected))
}

func TestPlanTool(t *testing.T) {
	text, isErr := call(t, newServer(t), "reforge_plan", nil)
	require.False(t, isErr, text)

	var plan domain.RefactoringPlan
	require.NoError(t, json.Unmarshal([]byte(text), &plan))
	assert.NotEmpty(t, plan.Opportunities)
}

func TestCohesionTool_FiltersByFile(t *testing.T) {
	s := newServer(t)
	text, isErr := call(t, s, "reforge_cohesion", map[string]any{"file": "./store/store.go"})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"class": "Store"`)
	assert.Contains(t, text, `"lcom4": 2`)

	text, isErr = call(t, s, "reforge_cohesion", map[string]any{"file": "nope.go"})
	assert.True(t, isErr)
	assert.Contains(t, text, "nope.go")
}

func TestChainsTool(t *testing.T) {
	text, isErr := call(t, newServer(t), "reforge_chains", map[string]any{"max_len": 1})
	require.False(t, isErr, text)

	var chains []domain.StrategyChain
	require.NoError(t, json.Unmarshal([]byte(text), &chains))
	assert.Len(t, chains, len(domain.AllRefactoringTypes))
}

func TestCompareTool_UnknownIndex(t *testing.T) {
	text, isErr := call(t, newServer(t), "reforge_compare", map[string]any{"index": 99})
	assert.True(t, isErr)
	assert.Contains(t, text, "#99")
}
