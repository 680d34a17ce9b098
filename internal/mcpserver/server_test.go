package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"api-tester-mcp/internal/config"
	"api-tester-mcp/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spec = `
openapi: 3.0.3
info: {title: Pets, version: "1"}
security: [{bearerAuth: []}]
components:
  securitySchemes:
    bearerAuth: {type: http, scheme: bearer}
paths:
  /pets/{petId}:
    get:
      parameters:
        - {name: petId, in: path, required: true, schema: {type: integer}}
      responses:
        "200": {description: ok}
`

func newServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Reporting.OutputDir = t.TempDir()
	return New(service.New(cfg, nil), nil, "test")
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func decode(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, text(t, result))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	return out
}

func TestToolFlow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleIngestSpec(ctx, call(map[string]any{"spec_type": "openapi", "content": spec}))
	require.NoError(t, err)
	ingest := decode(t, res)
	sessionID := ingest["session_id"].(string)
	assert.Equal(t, float64(1), ingest["endpoints_count"])

	// session_id defaults to the last ingested session
	res, err = s.handleGetEnvVarSuggestions(ctx, call(nil))
	require.NoError(t, err)
	suggestions := decode(t, res)
	assert.Equal(t, sessionID, suggestions["session_id"])
	assert.Equal(t, float64(2), suggestions["required_missing_count"])

	res, err = s.handleSetEnvVars(ctx, call(map[string]any{
		"session_id": sessionID,
		"variables":  map[string]any{"baseUrl": "http://127.0.0.1:1", "auth_bearer": "very-secret"},
	}))
	require.NoError(t, err)
	assert.NotContains(t, text(t, res), "very-secret")
	set := decode(t, res)
	assert.Equal(t, "***", set["current_variables"].(map[string]any)["auth_bearer"])

	res, err = s.handleGenerateScenarios(ctx, call(map[string]any{"include_edge_cases": false}))
	require.NoError(t, err)
	scenarios := decode(t, res)
	assert.Equal(t, float64(2), scenarios["scenarios_count"])

	res, err = s.handleGetSessionStatus(ctx, call(map[string]any{"session_id": sessionID}))
	require.NoError(t, err)
	status := decode(t, res)
	assert.Equal(t, float64(2), status["scenarios_count"])
	assert.Empty(t, status["required_missing"])
}

func TestToolErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleGetSessionStatus(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "ingest_spec first")

	res, err = s.handleIngestSpec(ctx, call(map[string]any{"spec_type": "openapi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleIngestSpec(ctx, call(map[string]any{"spec_type": "postman", "content": `{"info": {}}`}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Failed to parse specification")

	res, err = s.handleRunAPITests(ctx, call(map[string]any{"session_id": "unknown"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Session not found")

	res, err = s.handleSetEnvVars(ctx, call(map[string]any{"session_id": "unknown", "variables": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "must be an object")
}

func TestToolsRegistered(t *testing.T) {
	s := newServer(t)
	tools := s.MCPServer().ListTools()
	for _, name := range []string{"ingest_spec", "get_env_var_suggestions", "set_env_vars", "generate_scenarios", "run_api_tests", "get_session_status"} {
		assert.Contains(t, tools, name)
	}
}
