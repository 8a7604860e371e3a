// internal/models/stage.go
package models

// StageMode identifies the pipeline stage a request claims to run under.
// "auto" performs no restriction and defers to downstream business rules.
type StageMode string

const (
	StageAuto StageMode = "auto"
	Stage1A   StageMode = "1A"
	Stage2    StageMode = "2"
	Stage3    StageMode = "3"
)

// OperationType is the category of work a request performs.
type OperationType string

const (
	OperationRead      OperationType = "read"
	OperationWrite     OperationType = "write"
	OperationAmend     OperationType = "amend"
	OperationMXBooking OperationType = "mx_booking"
	OperationGLPosting OperationType = "gl_posting"
)

// KnownStageModes and KnownOperationTypes bound what the transport layer
// may pass in; anything else is a validation error before any work starts.
var KnownStageModes = map[StageMode]bool{
	StageAuto: true,
	Stage1A:   true,
	Stage2:    true,
	Stage3:    true,
}

var KnownOperationTypes = map[OperationType]bool{
	OperationRead:      true,
	OperationWrite:     true,
	OperationAmend:     true,
	OperationMXBooking: true,
	OperationGLPosting: true,
}
