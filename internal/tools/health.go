package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"hedge-mcp/internal/common/observability"
)

// HealthTool handles the get_system_health MCP tool.
type HealthTool struct {
	service Service
	obs     *observability.Observability
}

func NewHealthTool(service Service, obs *observability.Observability) *HealthTool {
	return &HealthTool{service: service, obs: obs}
}

// Definition returns the MCP tool definition for get_system_health.
func (t *HealthTool) Definition() mcp.Tool {
	return mcp.NewTool("get_system_health",
		mcp.WithDescription(
			"Report component reachability, uptime, version and request counters.",
		),
	)
}

// Handle processes the get_system_health tool call.
func (t *HealthTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	health := t.service.Health(ctx)

	status := "success"
	if health.Status != "healthy" {
		status = "degraded"
	}
	t.obs.RecordRequest(ctx, "get_system_health", status)
	t.obs.RecordRequestDuration(ctx, time.Since(start), "get_system_health")

	return resultJSON(health)
}
