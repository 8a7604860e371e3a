package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/common/observability"
	"hedge-mcp/pkg/registry"
)

// CacheTool handles the manage_cache MCP tool.
type CacheTool struct {
	service  Service
	registry *registry.Registry
	obs      *observability.Observability
}

func NewCacheTool(service Service, reg *registry.Registry, obs *observability.Observability) *CacheTool {
	return &CacheTool{service: service, registry: reg, obs: obs}
}

// Definition returns the MCP tool definition for manage_cache.
func (t *CacheTool) Definition() mcp.Tool {
	return mcp.NewTool("manage_cache",
		mcp.WithDescription(
			"Inspect cache statistics or clear cached entries for a currency.",
		),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("stats, info or clear_currency"),
		),
		mcp.WithString("currency",
			mcp.Description("Currency to clear; required for clear_currency"),
		),
	)
}

// Handle processes the manage_cache tool call.
func (t *CacheTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	args := req.GetArguments()

	if res := validateArgs(t.registry, "manage_cache", args); res != nil {
		return res, nil
	}

	stats, err := t.service.ManageCache(ctx,
		req.GetString("operation", ""),
		req.GetString("currency", ""))
	if err != nil {
		t.obs.RecordRequest(ctx, "manage_cache", "error")
		t.obs.RecordRequestDuration(ctx, time.Since(start), "manage_cache")
		return resultJSON(apperrors.ToPayload(apperrors.Normalize(err)))
	}

	t.obs.RecordRequest(ctx, "manage_cache", "success")
	t.obs.RecordRequestDuration(ctx, time.Since(start), "manage_cache")
	return resultJSON(stats)
}
