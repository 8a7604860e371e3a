// Package intent maps free-text prompts to a fixed set of named intents
// with priority-ordered keyword buckets.
package intent

import (
	"strings"

	"hedge-mcp/internal/models"
)

// keywordBucket associates an intent with the phrases that select it.
type keywordBucket struct {
	intent   models.Intent
	keywords []string
}

// buckets are checked in order. Utilization phrasing is checked before
// the PB-deposit and capacity buckets so that a prompt mentioning both
// ("utilization of our HKD capacity") resolves to the earlier bucket;
// ties always go to whichever bucket is checked first.
var buckets = []keywordBucket{
	{
		intent: models.IntentUtilizationCheck,
		keywords: []string{
			"utilization", "utilisation", "can we hedge", "headroom",
			"how much more", "remaining room",
		},
	},
	{
		intent: models.IntentPBDepositSummary,
		keywords: []string{
			"pb deposit", "prime broker", "deposit summary", "pb balance",
			"broker deposit",
		},
	},
	{
		intent: models.IntentCapacitySummary,
		keywords: []string{
			"capacity", "available to hedge", "hedgeable amount",
		},
	},
}

// templateCategories maps an explicit template/category override from the
// caller straight to an intent, bypassing keyword classification.
var templateCategories = map[string]models.Intent{
	"utilization_check":  models.IntentUtilizationCheck,
	"pb_deposit_summary": models.IntentPBDepositSummary,
	"capacity_summary":   models.IntentCapacitySummary,
	"inception":          models.IntentInception,
	"utilisation":        models.IntentUtilisation,
	"rollover":           models.IntentRollover,
	"termination":        models.IntentTermination,
	"generic_read":       models.IntentGenericRead,
}

// Classifier resolves prompts to intents.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

// Classify returns exactly one intent for rawText, falling back to
// generic_read when no bucket matches. It never returns an empty intent.
func (c *Classifier) Classify(rawText string) models.Intent {
	text := strings.ToLower(rawText)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(text, kw) {
				return b.intent
			}
		}
	}
	return models.IntentGenericRead
}

// ResolveTemplateCategory maps an explicit category override to its
// intent. The second return is false for unknown categories.
func ResolveTemplateCategory(category string) (models.Intent, bool) {
	in, ok := templateCategories[strings.ToLower(strings.TrimSpace(category))]
	return in, ok
}
