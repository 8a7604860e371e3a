// internal/models/result.go
package models

import "time"

// ResultStatus is the coarse outcome of a processed request.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// ProcessingMetadata describes how a result was produced.
type ProcessingMetadata struct {
	RequestID      string        `json:"requestId"`
	Intent         Intent        `json:"intent"`
	Stage          StageMode     `json:"stage"`
	Operation      OperationType `json:"operation"`
	CacheUsed      bool          `json:"cacheUsed"`
	CacheKey       string        `json:"cacheKey,omitempty"`
	ElapsedMs      int64         `json:"elapsedMs"`
	LLMInvoked     bool          `json:"llmInvoked,omitempty"`
	PartialSources []string      `json:"partialSources,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Result is what every inbound operation returns. Data holds fetched or
// derived rows; Error is set only when Status is StatusError.
type Result struct {
	Status   ResultStatus           `json:"status"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Answer   string                 `json:"answer,omitempty"`
	Error    *ErrorPayload          `json:"error,omitempty"`
	Metadata ProcessingMetadata     `json:"metadata"`
}

// ErrorPayload is the structured error surface exposed to the transport
// layer: a stable numeric code, a readable message, and context fields.
// Never a stack trace.
type ErrorPayload struct {
	Code      int                    `json:"code"`
	ErrorCode string                 `json:"errorCode"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Stage     StageMode              `json:"stage,omitempty"`
	Operation OperationType          `json:"operation,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// HealthStatus is the get_system_health payload.
type HealthStatus struct {
	Status        string            `json:"status"` // "healthy" or "degraded"
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Components    map[string]string `json:"components"`
	Requests      int64             `json:"requests"`
	CacheHits     int64             `json:"cacheHits"`
	Timestamp     time.Time         `json:"timestamp"`
}

// CacheStats is the manage_cache payload.
type CacheStats struct {
	Operation   string    `json:"operation"`
	Keys        int64     `json:"keys,omitempty"`
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Promoted    int64     `json:"promoted"`
	ClearedKeys int64     `json:"clearedKeys,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
