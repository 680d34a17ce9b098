// Package mcpserver exposes the service operations as MCP tools over stdio.
package mcpserver

import (
	"sync"

	"api-tester-mcp/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server wraps the service and registers one tool per boundary operation.
// Tools that take a session_id fall back to the most recently ingested
// session when it is omitted.
type Server struct {
	svc       *service.Service
	logger    *zap.Logger
	mcpServer *server.MCPServer

	mu          sync.Mutex
	lastSession string
}

// New creates the MCP server
func New(svc *service.Service, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		logger: logger.Named("mcp"),
		mcpServer: server.NewMCPServer(
			"api-tester-mcp",
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP requests on stdin/stdout
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.mcpServer, server.WithErrorLogger(zap.NewStdLog(s.logger)))
}

// MCPServer returns the underlying server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("ingest_spec",
		mcp.WithDescription("Ingest an OpenAPI (JSON/YAML) or Postman collection (JSON) specification, "+
			"open a test session and analyze the environment variables it needs"),
		mcp.WithString("spec_type",
			mcp.Required(),
			mcp.Description("Specification format"),
			mcp.Enum("openapi", "swagger", "postman"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Raw specification document"),
		),
	), s.handleIngestSpec)

	s.mcpServer.AddTool(mcp.NewTool("get_env_var_suggestions",
		mcp.WithDescription("List the variables a session needs, which are set, and how to set the missing ones"),
		sessionIDParam(),
	), s.handleGetEnvVarSuggestions)

	s.mcpServer.AddTool(mcp.NewTool("set_env_vars",
		mcp.WithDescription("Set environment variables (baseUrl, auth_bearer, auth_apikey, auth_basic or detected names) "+
			"for a session. An empty value removes the variable. Credential values are never echoed."),
		sessionIDParam(),
		mcp.WithObject("variables",
			mcp.Required(),
			mcp.Description("Map of variable name to string value"),
		),
	), s.handleSetEnvVars)

	s.mcpServer.AddTool(mcp.NewTool("generate_scenarios",
		mcp.WithDescription("Generate positive, negative (unauthorized) and edge case scenarios for every endpoint"),
		sessionIDParam(),
		mcp.WithBoolean("include_negative_tests",
			mcp.Description("Generate unauthorized scenarios for protected endpoints (default true)"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("include_edge_cases",
			mcp.Description("Generate one edge scenario per required field (default true)"),
			mcp.DefaultBool(true),
		),
	), s.handleGenerateScenarios)

	s.mcpServer.AddTool(mcp.NewTool("run_api_tests",
		mcp.WithDescription("Resolve the session's scenarios into HTTP test cases, run them and render the reports"),
		sessionIDParam(),
	), s.handleRunAPITests)

	s.mcpServer.AddTool(mcp.NewTool("get_session_status",
		mcp.WithDescription("Summarize a session: counts, missing variables, last run summary and report files"),
		sessionIDParam(),
	), s.handleGetSessionStatus)
}

func sessionIDParam() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Description("Session returned by ingest_spec; defaults to the most recently ingested session"),
	)
}
