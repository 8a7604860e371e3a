package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/common/logger"
)

func newTestStore(t *testing.T) (*RowStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRowStore(db, 5*time.Second, logger.NewNoOpLogger()), mock
}

func TestValidate(t *testing.T) {
	s, _ := newTestStore(t)

	tests := []struct {
		name     string
		req      *QueryRequest
		wantCode apperrors.ErrorCode
	}{
		{
			"missing table",
			&QueryRequest{Operation: "select"},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"unknown table",
			&QueryRequest{Table: "secret_stuff", Operation: "select"},
			apperrors.ErrCodeUnknownTable,
		},
		{
			"insert into view",
			&QueryRequest{Table: "v_hedge_positions_fast", Operation: "insert", Data: map[string]interface{}{"a": 1}},
			apperrors.ErrCodeReadOnlyTable,
		},
		{
			"unsupported operation",
			&QueryRequest{Table: "hedge_instructions", Operation: "truncate"},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"limit above cap",
			&QueryRequest{Table: "hedge_instructions", Operation: "select", Limit: 500},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"bad order_by column",
			&QueryRequest{Table: "hedge_instructions", Operation: "select", OrderBy: "created_at; DROP TABLE x"},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"bad filter column",
			&QueryRequest{Table: "hedge_instructions", Operation: "select", Filters: map[string]interface{}{"1=1 OR col": "x"}},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"unknown filter operator",
			&QueryRequest{Table: "hedge_instructions", Operation: "select", Filters: map[string]interface{}{"created_at": map[string]interface{}{"before": "2020-01-01"}}},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"empty operator map",
			&QueryRequest{Table: "hedge_instructions", Operation: "select", Filters: map[string]interface{}{"created_at": map[string]interface{}{}}},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"insert without data",
			&QueryRequest{Table: "hedge_instructions", Operation: "insert"},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"update without filters",
			&QueryRequest{Table: "hedge_instructions", Operation: "update", Data: map[string]interface{}{"status": "done"}},
			apperrors.ErrCodeRequestValidation,
		},
		{
			"delete without filters",
			&QueryRequest{Table: "hedge_instructions", Operation: "delete"},
			apperrors.ErrCodeRequestValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.req)
			require.Error(t, err)

			var stdErr *apperrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}

func TestValidatePasses(t *testing.T) {
	s, _ := newTestStore(t)

	assert.NoError(t, s.Validate(&QueryRequest{
		Table:     "hedge_instructions",
		Operation: "select",
		Filters:   map[string]interface{}{"currency": "HKD"},
		OrderBy:   "created_at desc",
		Limit:     20,
	}))
	assert.NoError(t, s.Validate(&QueryRequest{
		Table:     "v_utilization_summary",
		Operation: "select",
	}))
}

// Validation rejects before any SQL is issued: sqlmock has no
// expectations set, so a database round trip would fail the test.
func TestExecuteValidatesFirst(t *testing.T) {
	s, mock := newTestStore(t)

	_, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "v_hedge_positions_fast",
		Operation: "delete",
		Filters:   map[string]interface{}{"currency": "HKD"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeReadOnlyTable, apperrors.Normalize(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A delete whose only filter uses a mistyped operator must be rejected
// before any SQL is built; dropping the clause instead would delete the
// whole table. No sqlmock expectations are set, so a database round
// trip fails the test.
func TestDeleteUnknownOperatorRejected(t *testing.T) {
	s, mock := newTestStore(t)

	_, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "hedge_instructions",
		Operation: "delete",
		Filters: map[string]interface{}{
			"created_at": map[string]interface{}{"before": "2020-01-01"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRequestValidation, apperrors.Normalize(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM v_utilization_summary WHERE currency = $1 LIMIT 100")).
		WithArgs("HKD").
		WillReturnRows(sqlmock.NewRows([]string{"currency", "utilization"}).
			AddRow("HKD", 0.75).
			AddRow("HKD", 0.60))

	result, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "v_utilization_summary",
		Operation: "select",
		Filters:   map[string]interface{}{"currency": "HKD"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "HKD", result.Rows[0]["currency"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectOrderAndLimit(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM hedge_instructions ORDER BY created_at desc LIMIT 20")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	result, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "hedge_instructions",
		Operation: "select",
		OrderBy:   "created_at desc",
		Limit:     20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectRangeFilters(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM hedge_instructions WHERE amount >= $1 AND currency = $2 LIMIT 100")).
		WithArgs(100000.0, "HKD").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "hedge_instructions",
		Operation: "select",
		Filters: map[string]interface{}{
			"currency": "HKD",
			"amount":   map[string]interface{}{"gte": 100000.0},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO hedge_instructions (amount, currency) VALUES ($1, $2)")).
		WithArgs(50000.0, "HKD").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "hedge_instructions",
		Operation: "insert",
		Data: map[string]interface{}{
			"currency": "HKD",
			"amount":   50000.0,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE hedge_instructions SET status = $1 WHERE instruction_id = $2")).
		WithArgs("terminated", "HI-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "hedge_instructions",
		Operation: "update",
		Data:      map[string]interface{}{"status": "terminated"},
		Filters:   map[string]interface{}{"instruction_id": "HI-001"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM allocation_records WHERE allocation_id = $1")).
		WithArgs("AL-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "allocation_records",
		Operation: "delete",
		Filters:   map[string]interface{}{"allocation_id": "AL-9"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteDriverError(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM hedge_instructions LIMIT 100")).
		WillReturnError(errors.New("connection reset"))

	_, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "hedge_instructions",
		Operation: "select",
	})
	require.Error(t, err)

	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestByteColumnsDecodeToString(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM entity_master LIMIT 100")).
		WillReturnRows(sqlmock.NewRows([]string{"entity_name"}).
			AddRow([]byte("Fund Alpha")))

	result, err := s.Execute(context.Background(), &QueryRequest{
		Table:     "entity_master",
		Operation: "select",
	})
	require.NoError(t, err)
	assert.Equal(t, "Fund Alpha", result.Rows[0]["entity_name"])
}

func TestTableAllowLists(t *testing.T) {
	assert.True(t, IsKnownTable("hedge_instructions"))
	assert.True(t, IsKnownTable("v_utilization_summary"))
	assert.False(t, IsKnownTable("pg_catalog"))

	assert.True(t, IsReadOnlyView("v_hedge_positions_fast"))
	assert.False(t, IsReadOnlyView("hedge_instructions"))
}
