package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"hedge-mcp/internal/common/observability"
	"hedge-mcp/internal/hedge/orchestrator"
	"hedge-mcp/pkg/registry"
)

// PromptTool handles the process_hedge_prompt MCP tool.
type PromptTool struct {
	service  Service
	registry *registry.Registry
	obs      *observability.Observability
}

func NewPromptTool(service Service, reg *registry.Registry, obs *observability.Observability) *PromptTool {
	return &PromptTool{service: service, registry: reg, obs: obs}
}

// Definition returns the MCP tool definition for process_hedge_prompt.
func (t *PromptTool) Definition() mcp.Tool {
	return mcp.NewTool("process_hedge_prompt",
		mcp.WithDescription(
			"Resolve a natural-language hedge prompt: extract parameters, classify intent, "+
				"enforce stage permissions, and return data, a booking result, or an answer.",
		),
		mcp.WithString("user_prompt",
			mcp.Required(),
			mcp.Description("The free-text prompt to process"),
		),
		mcp.WithString("template_category",
			mcp.Description("Optional template category that overrides intent classification"),
		),
		mcp.WithString("currency",
			mcp.Description("ISO 4217 currency code; overrides any currency found in the prompt"),
		),
		mcp.WithString("entity_id",
			mcp.Description("Entity identifier; overrides any entity found in the prompt"),
		),
		mcp.WithString("nav_type",
			mcp.Description("NAV type the request applies to"),
		),
		mcp.WithNumber("amount",
			mcp.Description("Notional amount; overrides any amount found in the prompt"),
		),
		mcp.WithBoolean("use_cache",
			mcp.Description("Whether to probe and populate the result cache (default true)"),
		),
		mcp.WithString("operation_type",
			mcp.Description("read, write, amend, mx_booking or gl_posting (default read)"),
		),
		mcp.WithString("stage_mode",
			mcp.Description("auto, 1A, 2 or 3 (default auto)"),
		),
		mcp.WithObject("write_data",
			mcp.Description("Column values for write operations"),
		),
		mcp.WithString("instruction_id",
			mcp.Description("Target instruction for rollover and termination"),
		),
		mcp.WithString("user_id",
			mcp.Description("Caller identity used for per-user cache scoping"),
		),
	)
}

// Handle processes the process_hedge_prompt tool call.
func (t *PromptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	args := req.GetArguments()

	if res := validateArgs(t.registry, "process_hedge_prompt", args); res != nil {
		return res, nil
	}

	orchReq := &orchestrator.Request{
		UserPrompt:       req.GetString("user_prompt", ""),
		TemplateCategory: req.GetString("template_category", ""),
		Currency:         req.GetString("currency", ""),
		EntityID:         req.GetString("entity_id", ""),
		NAVType:          req.GetString("nav_type", ""),
		UseCache:         req.GetBool("use_cache", true),
		OperationType:    req.GetString("operation_type", ""),
		StageMode:        req.GetString("stage_mode", ""),
		InstructionID:    req.GetString("instruction_id", ""),
		UserID:           req.GetString("user_id", ""),
	}
	if raw, ok := args["amount"]; ok {
		if amount, ok := raw.(float64); ok {
			orchReq.Amount = &amount
		}
	}
	if raw, ok := args["write_data"]; ok {
		if data, ok := raw.(map[string]interface{}); ok {
			orchReq.WriteData = data
		}
	}

	result := t.service.Process(ctx, orchReq)
	observe(ctx, t.obs, "process_hedge_prompt", start, result)
	return resultJSON(result)
}
