// Package orchestrator ties the prompt pipeline together: extraction,
// intent resolution, stage gating, cache probe, data fan-out and write
// routing. Every inbound operation of the service terminates here.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"hedge-mcp/internal/cache"
	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/common/logger"
	"hedge-mcp/internal/common/metrics"
	"hedge-mcp/internal/hedge/cachekey"
	"hedge-mcp/internal/hedge/extract"
	"hedge-mcp/internal/hedge/intent"
	"hedge-mcp/internal/hedge/stagegate"
	"hedge-mcp/internal/models"
	"hedge-mcp/internal/store"
)

// recentInstructionLimit bounds the "recent trades" branch of the
// read fan-out.
const recentInstructionLimit = 20

// LLMClient completes a prompt that the local pipeline could not answer
// from structured data alone.
type LLMClient interface {
	Complete(ctx context.Context, query string, contextBlob map[string]interface{}) (string, error)
}

// cachedResult is the cache payload: the fan-out data plus, for prompts
// that needed synthesis, the answer. Caching the answer means a hit
// serves the full prior response without another model round trip.
type cachedResult struct {
	Data   map[string]interface{} `json:"data"`
	Answer string                 `json:"answer,omitempty"`
}

// Request mirrors the process_hedge_prompt input surface. Zero values
// mean "not supplied"; StageMode and OperationType default to auto/read.
type Request struct {
	UserPrompt       string                 `json:"userPrompt"`
	TemplateCategory string                 `json:"templateCategory,omitempty"`
	Currency         string                 `json:"currency,omitempty"`
	EntityID         string                 `json:"entityId,omitempty"`
	NAVType          string                 `json:"navType,omitempty"`
	Amount           *float64               `json:"amount,omitempty"`
	UseCache         bool                   `json:"useCache"`
	OperationType    string                 `json:"operationType,omitempty"`
	StageMode        string                 `json:"stageMode,omitempty"`
	WriteData        map[string]interface{} `json:"writeData,omitempty"`
	InstructionID    string                 `json:"instructionId,omitempty"`
	UserID           string                 `json:"userId,omitempty"`
}

// Orchestrator owns the pipeline components. It is safe for concurrent
// use; all mutable state is atomic.
type Orchestrator struct {
	extractor  *extract.Extractor
	classifier *intent.Classifier
	gate       *stagegate.Gate
	keys       *cachekey.Strategy
	cache      *cache.Store
	store      *store.RowStore
	llm        LLMClient
	logger     logger.Logger

	fundID    string
	version   string
	startTime time.Time
	requests  atomic.Int64
}

func New(keys *cachekey.Strategy, cacheStore *cache.Store, rowStore *store.RowStore, llmClient LLMClient, fundID, version string, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		extractor:  extract.New(),
		classifier: intent.New(),
		gate:       stagegate.New(),
		keys:       keys,
		cache:      cacheStore,
		store:      rowStore,
		llm:        llmClient,
		logger:     log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		fundID:     fundID,
		version:    version,
		startTime:  time.Now(),
	}
}

// Process runs the full prompt pipeline. It never returns a Go error:
// failures are normalized into the result's error payload so the
// transport layer stays a thin shell.
func (o *Orchestrator) Process(ctx context.Context, req *Request) *models.Result {
	start := time.Now()
	o.requests.Add(1)

	requestID := uuid.New().String()
	log := o.logger.WithFields(map[string]interface{}{"requestId": requestID})

	stage, op, err := o.validateRequest(req)
	if err != nil {
		return o.errorResult(requestID, models.IntentGenericRead, stage, op, start, err)
	}

	params := o.resolveParameters(req)
	if params.Currency != "" && !extract.IsKnownCurrency(params.Currency) {
		return o.errorResult(requestID, models.IntentGenericRead, stage, op,
			start, apperrors.NewUnknownCurrencyError(params.Currency))
	}

	resolvedIntent, err := o.resolveIntent(req)
	if err != nil {
		return o.errorResult(requestID, models.IntentGenericRead, stage, op, start, err)
	}
	metrics.PromptRequests.WithLabelValues(string(resolvedIntent)).Inc()

	if resolvedIntent.IsWriteIntent() && op == models.OperationRead {
		return o.errorResult(requestID, resolvedIntent, stage, op, start,
			apperrors.NewRequestValidationError(
				fmt.Sprintf("intent %s mutates data and cannot run with operation_type read", resolvedIntent)))
	}

	// Permission check before any I/O.
	if err := o.gate.Check(stage, op); err != nil {
		return o.errorResult(requestID, resolvedIntent, stage, op, start, err)
	}

	log.Info("prompt resolved", map[string]interface{}{
		"intent":    string(resolvedIntent),
		"stage":     string(stage),
		"operation": string(op),
		"currency":  params.Currency,
	})

	if resolvedIntent.IsWriteIntent() || op != models.OperationRead {
		result, err := o.performWrite(ctx, resolvedIntent, op, req)
		if err != nil {
			return o.errorResult(requestID, resolvedIntent, stage, op, start, err)
		}
		res := o.successResult(requestID, resolvedIntent, stage, op, start)
		res.Data = map[string]interface{}{
			"write":      result,
			"parameters": params,
		}
		metrics.PromptDuration.WithLabelValues(string(resolvedIntent)).Observe(time.Since(start).Seconds())
		return res
	}

	queryType := string(resolvedIntent)
	cacheKey := o.keys.Key(queryType, o.scopeID(req), keyParams(params))

	if req.UseCache {
		if raw, hit, err := o.cache.Get(ctx, cacheKey, queryType); err == nil && hit {
			var cached cachedResult
			if json.Unmarshal(raw, &cached) == nil && cached.Data != nil {
				res := o.successResult(requestID, resolvedIntent, stage, op, start)
				res.Data = cached.Data
				res.Answer = cached.Answer
				res.Metadata.CacheUsed = true
				res.Metadata.CacheKey = cacheKey
				metrics.PromptDuration.WithLabelValues(string(resolvedIntent)).Observe(time.Since(start).Seconds())
				return res
			}
		} else if err != nil {
			log.Warn("cache probe failed, falling through to store", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	data, partial := o.fetchForIntent(ctx, resolvedIntent, params)
	data["parameters"] = params

	res := o.successResult(requestID, resolvedIntent, stage, op, start)
	res.Metadata.CacheKey = cacheKey
	res.Metadata.PartialSources = partial

	if resolvedIntent == models.IntentGenericRead {
		answer, err := o.llm.Complete(ctx, req.UserPrompt, data)
		if err != nil {
			return o.errorResult(requestID, resolvedIntent, stage, op, start, err)
		}
		res.Answer = answer
		res.Metadata.LLMInvoked = true
	}
	res.Data = data

	if req.UseCache && len(partial) == 0 {
		if err := o.cache.Set(ctx, cacheKey, queryType, cachedResult{Data: data, Answer: res.Answer}); err != nil {
			log.Warn("result cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	metrics.PromptDuration.WithLabelValues(string(resolvedIntent)).Observe(time.Since(start).Seconds())
	return res
}

// QueryData runs a single validated row-store operation for the
// query_supabase_data surface. Stage gating applies the same way it
// does for prompts.
func (o *Orchestrator) QueryData(ctx context.Context, qr *store.QueryRequest, stageMode string) *models.Result {
	start := time.Now()
	o.requests.Add(1)
	requestID := uuid.New().String()

	stage := models.StageAuto
	if stageMode != "" {
		stage = models.StageMode(stageMode)
	}
	if !models.KnownStageModes[stage] {
		return o.errorResult(requestID, models.IntentGenericRead, stage, models.OperationRead,
			start, apperrors.NewRequestValidationError(fmt.Sprintf("unknown stage mode %q", stageMode)))
	}

	op := models.OperationRead
	switch qr.Operation {
	case "insert":
		op = models.OperationWrite
	case "update":
		op = models.OperationAmend
	case "delete":
		op = models.OperationWrite
	}
	if err := o.gate.Check(stage, op); err != nil {
		return o.errorResult(requestID, models.IntentGenericRead, stage, op, start, err)
	}

	result, err := o.store.Execute(ctx, qr)
	if err != nil {
		return o.errorResult(requestID, models.IntentGenericRead, stage, op, start, err)
	}

	res := o.successResult(requestID, models.IntentGenericRead, stage, op, start)
	res.Data = map[string]interface{}{
		"table":  qr.Table,
		"result": result,
	}
	return res
}

// Health reports component reachability. A failing dependency degrades
// the status but never errors the call.
func (o *Orchestrator) Health(ctx context.Context) *models.HealthStatus {
	components := map[string]string{
		"database": "healthy",
		"cache":    "healthy",
	}
	status := "healthy"

	if err := o.store.Ping(ctx); err != nil {
		components["database"] = "unreachable"
		status = "degraded"
	}
	if err := o.cache.Ping(ctx); err != nil {
		components["cache"] = "unreachable"
		status = "degraded"
	}

	return &models.HealthStatus{
		Status:        status,
		Version:       o.version,
		UptimeSeconds: int64(time.Since(o.startTime).Seconds()),
		Components:    components,
		Requests:      o.requests.Load(),
		CacheHits:     o.cache.Hits(),
		Timestamp:     time.Now().UTC(),
	}
}

// ManageCache handles the stats/info/clear_currency admin operations.
func (o *Orchestrator) ManageCache(ctx context.Context, operation, currency string) (*models.CacheStats, error) {
	switch operation {
	case "stats", "info":
		stats, err := o.cache.Stats(ctx)
		if err != nil {
			return nil, err
		}
		stats.Operation = operation
		return &stats, nil

	case "clear_currency":
		if currency == "" {
			return nil, apperrors.NewRequestValidationError("clear_currency requires a currency")
		}
		if !extract.IsKnownCurrency(currency) {
			return nil, apperrors.NewUnknownCurrencyError(currency)
		}
		cleared, err := o.cache.ClearCurrency(ctx, currency)
		if err != nil {
			return nil, err
		}
		return &models.CacheStats{
			Operation:   operation,
			ClearedKeys: cleared,
			Currency:    currency,
			Timestamp:   time.Now().UTC(),
		}, nil

	default:
		return nil, apperrors.NewRequestValidationError(
			fmt.Sprintf("unknown cache operation %q", operation))
	}
}

// ==========================================================================
// Pipeline steps
// ==========================================================================

func (o *Orchestrator) validateRequest(req *Request) (models.StageMode, models.OperationType, error) {
	stage := models.StageAuto
	if req.StageMode != "" {
		stage = models.StageMode(req.StageMode)
	}
	op := models.OperationRead
	if req.OperationType != "" {
		op = models.OperationType(req.OperationType)
	}

	if strings.TrimSpace(req.UserPrompt) == "" {
		return stage, op, apperrors.NewRequestValidationError("user_prompt is required")
	}
	if !models.KnownStageModes[stage] {
		return stage, op, apperrors.NewRequestValidationError(
			fmt.Sprintf("unknown stage mode %q", req.StageMode))
	}
	if !models.KnownOperationTypes[op] {
		return stage, op, apperrors.NewRequestValidationError(
			fmt.Sprintf("unknown operation type %q", req.OperationType))
	}
	return stage, op, nil
}

// resolveParameters merges explicit request fields over the lexical
// extraction. Explicit values always win.
func (o *Orchestrator) resolveParameters(req *Request) models.ResolvedParameters {
	pc := models.PromptContext{
		RawText:          req.UserPrompt,
		ExplicitCurrency: strings.ToUpper(req.Currency),
		ExplicitAmount:   req.Amount,
	}
	if req.EntityID != "" {
		pc.ExplicitEntityIDs = []string{req.EntityID}
	}

	extracted := o.extractor.Extract(pc.RawText)

	resolved := models.ResolvedParameters{
		Currency:  extracted.Currency,
		Amount:    extracted.Amount,
		EntityIDs: extracted.EntityIDs,
		Date:      extracted.Date,
		NAVType:   req.NAVType,
	}
	if pc.ExplicitCurrency != "" {
		resolved.Currency = pc.ExplicitCurrency
	}
	if pc.ExplicitAmount != nil {
		resolved.Amount = pc.ExplicitAmount
	}
	if len(pc.ExplicitEntityIDs) > 0 {
		resolved.EntityIDs = pc.ExplicitEntityIDs
	}
	return resolved
}

func (o *Orchestrator) resolveIntent(req *Request) (models.Intent, error) {
	if req.TemplateCategory != "" {
		resolved, ok := intent.ResolveTemplateCategory(req.TemplateCategory)
		if !ok {
			return "", apperrors.NewRequestValidationError(
				fmt.Sprintf("unknown template category %q", req.TemplateCategory))
		}
		return resolved, nil
	}
	return o.classifier.Classify(req.UserPrompt), nil
}

// scopeID picks the per-user cache scope. Anonymous callers share the
// fund-wide scope; shared-scope query types override it inside the key
// strategy either way.
func (o *Orchestrator) scopeID(req *Request) string {
	if req.UserID != "" {
		return req.UserID
	}
	return o.fundID
}

// keyParams flattens resolved parameters into the digest input.
func keyParams(p models.ResolvedParameters) map[string]string {
	params := map[string]string{}
	if p.Currency != "" {
		params["currency"] = p.Currency
	}
	if p.Amount != nil {
		params["amount"] = fmt.Sprintf("%g", *p.Amount)
	}
	if len(p.EntityIDs) > 0 {
		ids := append([]string(nil), p.EntityIDs...)
		sort.Strings(ids)
		params["entities"] = strings.Join(ids, ",")
	}
	if p.Date != nil {
		params["date"] = p.Date.Format("2006-01-02")
	}
	if p.NAVType != "" {
		params["nav_type"] = p.NAVType
	}
	return params
}

// ==========================================================================
// Read fan-out
// ==========================================================================

// fetchSource is one branch of the fan-out.
type fetchSource struct {
	name string
	req  *store.QueryRequest
}

// fetchForIntent runs every source for the intent concurrently. A
// failed branch contributes an empty slice and its name in the partial
// list; the request as a whole still succeeds.
func (o *Orchestrator) fetchForIntent(ctx context.Context, in models.Intent, params models.ResolvedParameters) (map[string]interface{}, []string) {
	sources := o.sourcesForIntent(in, params)

	data := make(map[string]interface{}, len(sources))
	var partial []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src fetchSource) {
			defer wg.Done()

			result, err := o.store.Execute(ctx, src.req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.logger.Warn("fan-out source failed", map[string]interface{}{
					"source": src.name,
					"error":  err.Error(),
				})
				data[src.name] = []map[string]interface{}{}
				partial = append(partial, src.name)
				return
			}
			data[src.name] = result.Rows
		}(src)
	}
	wg.Wait()

	sort.Strings(partial)
	return data, partial
}

// sourcesForIntent maps an intent to the read set that answers it.
func (o *Orchestrator) sourcesForIntent(in models.Intent, params models.ResolvedParameters) []fetchSource {
	currencyFilter := map[string]interface{}{}
	if params.Currency != "" {
		currencyFilter["currency"] = params.Currency
	}

	switch in {
	case models.IntentCapacitySummary:
		return []fetchSource{
			{"capacity", &store.QueryRequest{Table: "v_entity_capacity", Operation: "select", Filters: currencyFilter}},
			{"utilization", &store.QueryRequest{Table: "v_utilization_summary", Operation: "select", Filters: currencyFilter}},
			{"market_data", &store.QueryRequest{Table: "market_data_rates", Operation: "select", Filters: currencyFilter}},
		}
	case models.IntentUtilizationCheck:
		return []fetchSource{
			{"utilization", &store.QueryRequest{Table: "v_utilization_summary", Operation: "select", Filters: currencyFilter}},
			{"positions", &store.QueryRequest{Table: "v_hedge_positions_fast", Operation: "select", Filters: currencyFilter}},
			{"recent_instructions", &store.QueryRequest{
				Table: "hedge_instructions", Operation: "select",
				Filters: currencyFilter, OrderBy: "created_at desc", Limit: recentInstructionLimit,
			}},
		}
	case models.IntentPBDepositSummary:
		return []fetchSource{
			{"deposit_summary", &store.QueryRequest{Table: "v_pb_deposit_summary", Operation: "select", Filters: currencyFilter}},
			{"deposits", &store.QueryRequest{Table: "pb_deposits", Operation: "select", Filters: currencyFilter}},
		}
	default:
		return []fetchSource{
			{"positions", &store.QueryRequest{Table: "v_hedge_positions_fast", Operation: "select", Filters: currencyFilter}},
			{"recent_instructions", &store.QueryRequest{
				Table: "hedge_instructions", Operation: "select",
				Filters: currencyFilter, OrderBy: "created_at desc", Limit: recentInstructionLimit,
			}},
			{"risk", &store.QueryRequest{Table: "v_risk_metrics", Operation: "select", Filters: currencyFilter}},
			{"market_data", &store.QueryRequest{Table: "market_data_rates", Operation: "select", Filters: currencyFilter}},
		}
	}
}

// ==========================================================================
// Write routing
// ==========================================================================

// performWrite routes a mutating request to its target table. Booking
// operations route by operation type, lifecycle intents by intent.
func (o *Orchestrator) performWrite(ctx context.Context, in models.Intent, op models.OperationType, req *Request) (*store.QueryResult, error) {
	switch op {
	case models.OperationMXBooking:
		if len(req.WriteData) == 0 {
			return nil, apperrors.NewRequestValidationError("mx_booking requires write_data")
		}
		return o.store.Execute(ctx, &store.QueryRequest{
			Table: "murex_bookings", Operation: "insert", Data: req.WriteData,
		})
	case models.OperationGLPosting:
		if len(req.WriteData) == 0 {
			return nil, apperrors.NewRequestValidationError("gl_posting requires write_data")
		}
		return o.store.Execute(ctx, &store.QueryRequest{
			Table: "gl_entries", Operation: "insert", Data: req.WriteData,
		})
	}

	switch in {
	case models.IntentInception:
		if len(req.WriteData) == 0 {
			return nil, apperrors.NewRequestValidationError("inception requires write_data")
		}
		return o.store.Execute(ctx, &store.QueryRequest{
			Table: "hedge_instructions", Operation: "insert", Data: req.WriteData,
		})
	case models.IntentUtilisation:
		if len(req.WriteData) == 0 {
			return nil, apperrors.NewRequestValidationError("utilisation requires write_data")
		}
		return o.store.Execute(ctx, &store.QueryRequest{
			Table: "allocation_records", Operation: "insert", Data: req.WriteData,
		})
	case models.IntentRollover, models.IntentTermination:
		if req.InstructionID == "" {
			return nil, apperrors.NewRequestValidationError(
				fmt.Sprintf("%s requires instruction_id", in))
		}
		data := req.WriteData
		if in == models.IntentTermination && len(data) == 0 {
			data = map[string]interface{}{"status": "terminated"}
		}
		if len(data) == 0 {
			return nil, apperrors.NewRequestValidationError(
				fmt.Sprintf("%s requires write_data", in))
		}
		return o.store.Execute(ctx, &store.QueryRequest{
			Table:     "hedge_instructions",
			Operation: "update",
			Data:      data,
			Filters:   map[string]interface{}{"instruction_id": req.InstructionID},
		})
	}

	return nil, apperrors.NewBusinessRuleError("unsupported write",
		fmt.Sprintf("no write route for intent %s with operation %s", in, op))
}

// ==========================================================================
// Result assembly
// ==========================================================================

func (o *Orchestrator) successResult(requestID string, in models.Intent, stage models.StageMode, op models.OperationType, start time.Time) *models.Result {
	return &models.Result{
		Status: models.StatusSuccess,
		Metadata: models.ProcessingMetadata{
			RequestID: requestID,
			Intent:    in,
			Stage:     stage,
			Operation: op,
			ElapsedMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
		},
	}
}

func (o *Orchestrator) errorResult(requestID string, in models.Intent, stage models.StageMode, op models.OperationType, start time.Time, err error) *models.Result {
	stdErr := apperrors.Normalize(err)
	metrics.PromptErrors.WithLabelValues(string(stdErr.Code)).Inc()

	payload := apperrors.ToPayload(stdErr)
	payload.Stage = stage
	payload.Operation = op

	o.logger.Error("prompt processing failed", map[string]interface{}{
		"requestId": requestID,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
	})

	return &models.Result{
		Status: models.StatusError,
		Error:  payload,
		Metadata: models.ProcessingMetadata{
			RequestID: requestID,
			Intent:    in,
			Stage:     stage,
			Operation: op,
			ElapsedMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
		},
	}
}
