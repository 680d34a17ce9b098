package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"api-tester-mcp/internal/parser"
	"api-tester-mcp/internal/scenario"
	"api-tester-mcp/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

func (s *Server) handleIngestSpec(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specType, err := request.RequireString("spec_type")
	if err != nil {
		return mcp.NewToolResultError("spec_type argument is required"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required"), nil
	}

	result, err := s.svc.IngestSpec(ctx, specType, content)
	if err != nil {
		return s.toolError("ingest_spec", err), nil
	}

	s.mu.Lock()
	s.lastSession = result.SessionID
	s.mu.Unlock()
	return jsonResult(result)
}

func (s *Server) handleGetEnvVarSuggestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.sessionID(request)
	if errResult != nil {
		return errResult, nil
	}
	result, err := s.svc.GetEnvVarSuggestions(id)
	if err != nil {
		return s.toolError("get_env_var_suggestions", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleSetEnvVars(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.sessionID(request)
	if errResult != nil {
		return errResult, nil
	}

	raw, ok := request.GetArguments()["variables"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("variables argument must be an object"), nil
	}
	vars := make(map[string]string, len(raw))
	for name, v := range raw {
		switch t := v.(type) {
		case string:
			vars[name] = t
		case nil:
			vars[name] = ""
		case float64, bool:
			vars[name] = fmt.Sprint(t)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("variable %q must be a string", name)), nil
		}
	}

	result, err := s.svc.SetEnvVars(id, vars)
	if err != nil {
		return s.toolError("set_env_vars", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGenerateScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.sessionID(request)
	if errResult != nil {
		return errResult, nil
	}

	args := request.GetArguments()
	opts := scenario.DefaultOptions()
	if v, ok := args["include_negative_tests"].(bool); ok {
		opts.IncludeNegative = v
	}
	if v, ok := args["include_edge_cases"].(bool); ok {
		opts.IncludeEdge = v
	}

	result, err := s.svc.GenerateScenarios(ctx, id, opts)
	if err != nil {
		return s.toolError("generate_scenarios", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRunAPITests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.sessionID(request)
	if errResult != nil {
		return errResult, nil
	}
	result, err := s.svc.RunAPITests(ctx, id)
	if err != nil {
		return s.toolError("run_api_tests", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGetSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := s.sessionID(request)
	if errResult != nil {
		return errResult, nil
	}
	result, err := s.svc.GetSessionStatus(id)
	if err != nil {
		return s.toolError("get_session_status", err), nil
	}
	return jsonResult(result)
}

// sessionID returns the requested session or the most recently ingested one
func (s *Server) sessionID(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	if id, ok := request.GetArguments()["session_id"].(string); ok && id != "" {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSession == "" {
		return "", mcp.NewToolResultError("no session: call ingest_spec first or pass session_id")
	}
	return s.lastSession, nil
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))

	var pe *parser.ParseError
	switch {
	case errors.As(err, &pe):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse specification: %v", err))
	case errors.Is(err, service.ErrSessionNotFound):
		return mcp.NewToolResultError("Session not found. Call ingest_spec first.")
	case errors.Is(err, service.ErrRunInProgress):
		return mcp.NewToolResultError("A test run is already in progress for this session.")
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
