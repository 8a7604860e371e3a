// Package server is the composition root for the MCP surface: it
// creates the server instance and registers every tool. No business
// logic lives here.
package server

import (
	"github.com/mark3labs/mcp-go/server"

	"hedge-mcp/internal/common/observability"
	"hedge-mcp/internal/tools"
	"hedge-mcp/pkg/registry"
)

// New builds the MCP server with all four tools registered against the
// given service.
func New(name, version string, service tools.Service, reg *registry.Registry, obs *observability.Observability) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	promptTool := tools.NewPromptTool(service, reg, obs)
	s.AddTool(promptTool.Definition(), promptTool.Handle)

	queryTool := tools.NewQueryTool(service, reg, obs)
	s.AddTool(queryTool.Definition(), queryTool.Handle)

	healthTool := tools.NewHealthTool(service, obs)
	s.AddTool(healthTool.Definition(), healthTool.Handle)

	cacheTool := tools.NewCacheTool(service, reg, obs)
	s.AddTool(cacheTool.Definition(), cacheTool.Handle)

	return s
}
