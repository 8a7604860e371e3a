package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"hedge-mcp/internal/common/observability"
	"hedge-mcp/internal/store"
	"hedge-mcp/pkg/registry"
)

// QueryTool handles the query_supabase_data MCP tool.
type QueryTool struct {
	service  Service
	registry *registry.Registry
	obs      *observability.Observability
}

func NewQueryTool(service Service, reg *registry.Registry, obs *observability.Observability) *QueryTool {
	return &QueryTool{service: service, registry: reg, obs: obs}
}

// Definition returns the MCP tool definition for query_supabase_data.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("query_supabase_data",
		mcp.WithDescription(
			"Run a validated select, insert, update or delete against an allow-listed table. "+
				"Views are read-only; writes require filters or data as appropriate.",
		),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("Target table or view"),
		),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("select, insert, update or delete"),
		),
		mcp.WithObject("filters",
			mcp.Description("Column filters; values may be scalars or range operator maps (gte, lte, gt, lt, neq)"),
		),
		mcp.WithObject("data",
			mcp.Description("Column values for insert and update"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Row cap for selects, 1 to 200 (default 100)"),
		),
		mcp.WithString("order_by",
			mcp.Description("Column to order by, optionally followed by desc"),
		),
		mcp.WithString("stage_mode",
			mcp.Description("auto, 1A, 2 or 3 (default auto)"),
		),
	)
}

// Handle processes the query_supabase_data tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	args := req.GetArguments()

	if res := validateArgs(t.registry, "query_supabase_data", args); res != nil {
		return res, nil
	}

	qr := &store.QueryRequest{
		Table:     req.GetString("table_name", ""),
		Operation: req.GetString("operation", ""),
		Limit:     int(req.GetFloat("limit", 0)),
		OrderBy:   req.GetString("order_by", ""),
	}
	if raw, ok := args["filters"]; ok {
		if filters, ok := raw.(map[string]interface{}); ok {
			qr.Filters = filters
		}
	}
	if raw, ok := args["data"]; ok {
		if data, ok := raw.(map[string]interface{}); ok {
			qr.Data = data
		}
	}

	result := t.service.QueryData(ctx, qr, req.GetString("stage_mode", ""))
	observe(ctx, t.obs, "query_supabase_data", start, result)
	return resultJSON(result)
}
