package stagegate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/models"
)

func TestIsAllowed(t *testing.T) {
	g := New()

	tests := []struct {
		stage   models.StageMode
		op      models.OperationType
		allowed bool
	}{
		{models.Stage1A, models.OperationRead, true},
		{models.Stage1A, models.OperationWrite, true},
		{models.Stage1A, models.OperationAmend, true},
		{models.Stage1A, models.OperationMXBooking, false},
		{models.Stage1A, models.OperationGLPosting, false},

		{models.Stage2, models.OperationRead, true},
		{models.Stage2, models.OperationMXBooking, true},
		{models.Stage2, models.OperationWrite, false},
		{models.Stage2, models.OperationAmend, false},
		{models.Stage2, models.OperationGLPosting, false},

		{models.Stage3, models.OperationRead, true},
		{models.Stage3, models.OperationGLPosting, true},
		{models.Stage3, models.OperationWrite, false},
		{models.Stage3, models.OperationAmend, false},
		{models.Stage3, models.OperationMXBooking, false},

		{models.StageAuto, models.OperationRead, true},
		{models.StageAuto, models.OperationWrite, true},
		{models.StageAuto, models.OperationAmend, true},
		{models.StageAuto, models.OperationMXBooking, true},
		{models.StageAuto, models.OperationGLPosting, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage)+"/"+string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.allowed, g.IsAllowed(tt.stage, tt.op))
		})
	}
}

func TestIsAllowedUnknownStage(t *testing.T) {
	g := New()
	assert.False(t, g.IsAllowed(models.StageMode("5"), models.OperationRead))
}

func TestCheck(t *testing.T) {
	g := New()

	t.Run("allowed combination passes", func(t *testing.T) {
		assert.NoError(t, g.Check(models.Stage2, models.OperationMXBooking))
	})

	t.Run("denied combination is a stage violation", func(t *testing.T) {
		err := g.Check(models.Stage2, models.OperationGLPosting)
		require.Error(t, err)

		var stdErr *apperrors.StandardError
		require.True(t, errors.As(err, &stdErr))
		assert.Equal(t, apperrors.ErrCodeStageViolation, stdErr.Code)
		assert.Equal(t, models.Stage2, stdErr.Stage)
		assert.Equal(t, models.OperationGLPosting, stdErr.Operation)
	})

	t.Run("unknown stage is a validation error", func(t *testing.T) {
		err := g.Check(models.StageMode("9"), models.OperationRead)
		require.Error(t, err)

		var stdErr *apperrors.StandardError
		require.True(t, errors.As(err, &stdErr))
		assert.Equal(t, apperrors.ErrCodeRequestValidation, stdErr.Code)
	})

	t.Run("unknown operation is a validation error", func(t *testing.T) {
		err := g.Check(models.Stage1A, models.OperationType("purge"))
		require.Error(t, err)

		var stdErr *apperrors.StandardError
		require.True(t, errors.As(err, &stdErr))
		assert.Equal(t, apperrors.ErrCodeRequestValidation, stdErr.Code)
	})
}
