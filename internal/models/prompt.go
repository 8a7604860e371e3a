// internal/models/prompt.go
package models

import "time"

// PromptContext carries one incoming request's free text plus any
// structured overrides supplied by the caller. It is built once per
// request and never mutated afterwards; explicit fields always win over
// whatever the extractor finds in RawText.
type PromptContext struct {
	RawText           string     `json:"rawText"`
	ExplicitCurrency  string     `json:"currency,omitempty"`
	ExplicitEntityIDs []string   `json:"entityIds,omitempty"`
	ExplicitAmount    *float64   `json:"amount,omitempty"`
	ExplicitDate      *time.Time `json:"date,omitempty"`
}

// ExtractedParameters is the lexical extractor's output. Amount, when
// present, is already unit-expanded (k/m/b suffixes resolved) and
// non-negative. EntityIDs preserve order of first appearance with
// duplicates removed.
type ExtractedParameters struct {
	Currency   string     `json:"currency,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	EntityIDs  []string   `json:"entityIds"`
	Date       *time.Time `json:"date,omitempty"`
	Confidence float64    `json:"confidence"`
}

// ResolvedParameters is the merge of explicit overrides over extracted
// values, the effective inputs the orchestrator works with.
type ResolvedParameters struct {
	Currency  string     `json:"currency,omitempty"`
	Amount    *float64   `json:"amount,omitempty"`
	EntityIDs []string   `json:"entityIds"`
	Date      *time.Time `json:"date,omitempty"`
	NAVType   string     `json:"navType,omitempty"`
}
