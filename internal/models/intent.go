// internal/models/intent.go
package models

// Intent is the resolved purpose of a hedge prompt.
type Intent string

const (
	IntentUtilizationCheck Intent = "utilization_check"
	IntentPBDepositSummary Intent = "pb_deposit_summary"
	IntentCapacitySummary  Intent = "capacity_summary"
	IntentInception        Intent = "inception"
	IntentUtilisation      Intent = "utilisation"
	IntentRollover         Intent = "rollover"
	IntentTermination      Intent = "termination"
	IntentGenericRead      Intent = "generic_read"
)

// KnownIntents lists every intent the classifier or a template
// category override may produce.
var KnownIntents = map[Intent]bool{
	IntentUtilizationCheck: true,
	IntentPBDepositSummary: true,
	IntentCapacitySummary:  true,
	IntentInception:        true,
	IntentUtilisation:      true,
	IntentRollover:         true,
	IntentTermination:      true,
	IntentGenericRead:      true,
}

// IsWriteIntent reports whether the intent books or mutates instructions
// rather than answering a read-only question.
func (i Intent) IsWriteIntent() bool {
	switch i {
	case IntentInception, IntentUtilisation, IntentRollover, IntentTermination:
		return true
	}
	return false
}
