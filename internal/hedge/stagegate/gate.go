// Package stagegate restricts which operation types may run under a
// given pipeline stage.
package stagegate

import (
	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/models"
)

// permissions is the fixed stage/operation table. StageAuto is absent
// on purpose: it allows everything and defers enforcement to downstream
// business rules.
var permissions = map[models.StageMode]map[models.OperationType]bool{
	models.Stage1A: {
		models.OperationRead:  true,
		models.OperationWrite: true,
		models.OperationAmend: true,
	},
	models.Stage2: {
		models.OperationRead:      true,
		models.OperationMXBooking: true,
	},
	models.Stage3: {
		models.OperationRead:      true,
		models.OperationGLPosting: true,
	},
}

// Gate answers stage permission questions.
type Gate struct{}

func New() *Gate {
	return &Gate{}
}

// IsAllowed reports whether op may run under stage. StageAuto always
// allows; unknown stages always deny.
func (g *Gate) IsAllowed(stage models.StageMode, op models.OperationType) bool {
	if stage == models.StageAuto {
		return true
	}
	allowed, ok := permissions[stage]
	if !ok {
		return false
	}
	return allowed[op]
}

// Check returns a structured validation error carrying the offending
// stage and operation when the combination is not permitted.
func (g *Gate) Check(stage models.StageMode, op models.OperationType) error {
	if !models.KnownStageModes[stage] {
		return apperrors.NewRequestValidationError("unknown stage mode: " + string(stage))
	}
	if !models.KnownOperationTypes[op] {
		return apperrors.NewRequestValidationError("unknown operation type: " + string(op))
	}
	if !g.IsAllowed(stage, op) {
		return apperrors.NewStageViolationError(stage, op)
	}
	return nil
}
