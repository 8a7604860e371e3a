// internal/store/tables.go
package store

// baseTables is the fixed allow-list of writable base tables. Requests
// naming anything outside this set (or the view list below) are
// rejected before any network call.
var baseTables = map[string]bool{
	"allocation_records":        true,
	"audit_log":                 true,
	"buffer_configuration":      true,
	"business_events":           true,
	"capacity_overrides":        true,
	"car_master":                true,
	"currency_configuration":    true,
	"deposit_ledger":            true,
	"entity_master":             true,
	"entity_nav_history":        true,
	"fund_master":               true,
	"fx_forward_contracts":      true,
	"fx_rates":                  true,
	"gl_accounts":               true,
	"gl_entries":                true,
	"gl_posting_batches":        true,
	"hedge_adjustments":         true,
	"hedge_allocations":         true,
	"hedge_effectiveness_tests": true,
	"hedge_instructions":        true,
	"hedge_relationships":       true,
	"hedging_framework":         true,
	"instruction_amendments":    true,
	"instruction_events":        true,
	"liquidity_snapshots":       true,
	"market_data_rates":         true,
	"murex_booking_events":      true,
	"murex_bookings":            true,
	"nav_adjustments":           true,
	"nav_types":                 true,
	"overlay_positions":         true,
	"pb_accounts":               true,
	"pb_deposits":               true,
	"pnl_daily":                 true,
	"portfolio_positions":       true,
	"position_snapshots":        true,
	"rollover_schedules":        true,
	"stage_events":              true,
	"template_catalog":          true,
	"termination_requests":      true,
	"threshold_configuration":   true,
	"trade_tickets":             true,
	"usage_stats":               true,
	"user_preferences":          true,
	"waterfall_allocations":     true,
}

// readOnlyViews may only be selected from; write operations against
// them fail validation.
var readOnlyViews = map[string]bool{
	"v_allocation_summary":   true,
	"v_buffer_status":        true,
	"v_capacity_by_currency": true,
	"v_car_summary":          true,
	"v_deposit_balances":     true,
	"v_entity_capacity":      true,
	"v_fund_utilization":     true,
	"v_hedge_effectiveness":  true,
	"v_hedge_positions_fast": true,
	"v_instruction_pipeline": true,
	"v_liquidity_summary":    true,
	"v_market_data_latest":   true,
	"v_nav_latest":           true,
	"v_pb_deposit_summary":   true,
	"v_risk_metrics":         true,
	"v_rollover_calendar":    true,
	"v_utilization_summary":  true,
}

// IsKnownTable reports whether name is a base table or a view.
func IsKnownTable(name string) bool {
	return baseTables[name] || readOnlyViews[name]
}

// IsReadOnlyView reports whether name is a read-only view.
func IsReadOnlyView(name string) bool {
	return readOnlyViews[name]
}
