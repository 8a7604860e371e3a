// Package tools exposes the service over MCP. Each tool is a thin
// adapter: validate the raw arguments against the registry schema, map
// them onto the orchestrator's request types, and serialize the result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"hedge-mcp/internal/common/observability"
	"hedge-mcp/internal/hedge/orchestrator"
	"hedge-mcp/internal/models"
	"hedge-mcp/internal/store"
	"hedge-mcp/pkg/registry"
)

// Service is what the tools need from the orchestrator.
type Service interface {
	Process(ctx context.Context, req *orchestrator.Request) *models.Result
	QueryData(ctx context.Context, qr *store.QueryRequest, stageMode string) *models.Result
	Health(ctx context.Context) *models.HealthStatus
	ManageCache(ctx context.Context, operation, currency string) (*models.CacheStats, error)
}

// resultJSON renders any payload as the tool's text content.
func resultJSON(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serializing result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// validateArgs runs the registry schema for a tool and renders any
// violations as a validation error payload.
func validateArgs(reg *registry.Registry, tool string, args map[string]interface{}) *mcp.CallToolResult {
	violations, err := reg.ValidateInput(tool, args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("input validation: %v", err))
	}
	if len(violations) > 0 {
		return mcp.NewToolResultError("invalid input: " + strings.Join(violations, "; "))
	}
	return nil
}

// observe records one tool invocation for the metrics pipeline.
func observe(ctx context.Context, obs *observability.Observability, tool string, start time.Time, res *models.Result) {
	status := "success"
	if res != nil && res.Status == models.StatusError {
		status = "error"
	}
	obs.RecordRequest(ctx, tool, status)
	obs.RecordRequestDuration(ctx, time.Since(start), tool)
}
