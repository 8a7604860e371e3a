// Package errors provides standardized error handling for the hedge
// prompt pipeline and its tool surface.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hedge-mcp/internal/models"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRequestValidation ErrorCode = "REQUEST_VALIDATION_ERROR"
	ErrCodeUnknownTable      ErrorCode = "UNKNOWN_TABLE"
	ErrCodeReadOnlyTable     ErrorCode = "READ_ONLY_TABLE"
	ErrCodeStageViolation    ErrorCode = "STAGE_OPERATION_NOT_ALLOWED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeBusinessRule    ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeUnknownCurrency ErrorCode = "UNKNOWN_CURRENCY"
	ErrCodeUnknownEntity   ErrorCode = "UNKNOWN_ENTITY"

	ErrCodeLLMFailed  ErrorCode = "LLM_SYNTHESIS_FAILED"
	ErrCodeLLMTimeout ErrorCode = "LLM_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Stage     models.StageMode       `json:"stage,omitempty"`
	Operation models.OperationType   `json:"operation,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithStage attaches the stage/operation context the error occurred under.
func (e *StandardError) WithStage(stage models.StageMode, op models.OperationType) *StandardError {
	e.Stage = stage
	e.Operation = op
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRequestValidationError creates a non-retryable validation error.
func NewRequestValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestValidation,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownTableError creates a non-retryable error for a table name
// outside the fixed allow-list.
func NewUnknownTableError(tableName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownTable,
		Message:   "Table is not in the known-tables allow-list",
		Details:   fmt.Sprintf("table: %s", tableName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReadOnlyTableError creates a non-retryable error for a write
// attempted against a read-only view.
func NewReadOnlyTableError(tableName string, op models.OperationType) *StandardError {
	return &StandardError{
		Code:      ErrCodeReadOnlyTable,
		Message:   "Write operation attempted against a read-only view",
		Details:   fmt.Sprintf("table: %s, operation: %s", tableName, op),
		Retryable: false,
		Operation: op,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageViolationError creates a non-retryable stage permission error
// carrying the offending stage and operation.
func NewStageViolationError(stage models.StageMode, op models.OperationType) *StandardError {
	return &StandardError{
		Code:      ErrCodeStageViolation,
		Message:   "Operation not permitted in this pipeline stage",
		Details:   fmt.Sprintf("stage: %s, operation: %s", stage, op),
		Retryable: false,
		Stage:     stage,
		Operation: op,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(tableName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("table: %s, error: %s", tableName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(tableName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("table: %s", tableName),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError marks a cache failure. The cache is a pure
// accelerator: callers log this and proceed without it.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache unavailable, proceeding without cache",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBusinessRuleError creates a non-retryable business rule error.
func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBusinessRule,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownCurrencyError creates a non-retryable currency error.
func NewUnknownCurrencyError(currency string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownCurrency,
		Message:   "Currency is not configured for hedging",
		Details:   fmt.Sprintf("currency: %s", currency),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownEntityError creates a non-retryable entity error.
func NewUnknownEntityError(entityID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownEntity,
		Message:   "Entity not found in entity master",
		Details:   fmt.Sprintf("entityId: %s", entityID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMFailedError creates a retryable LLM synthesis error.
func NewLLMFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMFailed,
		Message:   "LLM completion API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "LLM completion timeout",
		Details:   "upstream call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError creates the catch-all error. Original message is kept
// in Details for diagnostics.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Numeric RPC Code Mapping
// ==========================

// RPCCodeMapping maps internal error codes to the stable numeric codes
// exposed to the transport layer. Validation errors share the JSON-RPC
// invalid-params code; the rest live in the server-error range.
var RPCCodeMapping = map[ErrorCode]int{
	ErrCodeRequestValidation: -32602,
	ErrCodeUnknownTable:      -32602,
	ErrCodeReadOnlyTable:     -32602,
	ErrCodeStageViolation:    -32602,

	ErrCodeDatabaseConnectionFailed: -32001,
	ErrCodeQueryExecutionFailed:     -32001,
	ErrCodeQueryTimeout:             -32002,

	ErrCodeCacheUnavailable: -32003,

	ErrCodeBusinessRule:    -32004,
	ErrCodeUnknownCurrency: -32004,
	ErrCodeUnknownEntity:   -32004,

	ErrCodeLLMFailed:  -32005,
	ErrCodeLLMTimeout: -32002,

	ErrCodeInternal: -32000,
}

// RPCCode returns the numeric code for an error code, falling back to
// the generic internal code.
func RPCCode(code ErrorCode) int {
	if n, ok := RPCCodeMapping[code]; ok {
		return n
	}
	return -32000
}

// ToPayload converts a StandardError into the transport-facing payload.
func ToPayload(stdErr *StandardError) *models.ErrorPayload {
	return &models.ErrorPayload{
		Code:      RPCCode(stdErr.Code),
		ErrorCode: string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Stage:     stdErr.Stage,
		Operation: stdErr.Operation,
		Context:   stdErr.Metadata,
		Timestamp: stdErr.Timestamp,
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// Normalize ensures we always have a StandardError. Typed errors pass
// through; anything else becomes an internal error.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsValidation reports whether the error maps to the validation category.
func IsValidation(err error) bool {
	return GetErrorCategory(Normalize(err).Code) == "VALIDATION"
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "TABLE") || strings.Contains(codeStr, "STAGE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "BUSINESS") || strings.Contains(codeStr, "CURRENCY") || strings.Contains(codeStr, "ENTITY"):
		return "BUSINESS"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	default:
		return "OTHER"
	}
}
