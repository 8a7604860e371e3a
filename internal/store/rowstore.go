// Package store executes filtered reads and whitelisted writes against
// the upstream Postgres row store. Table names are validated against
// the fixed allow-lists before any SQL is built, and every failure is
// surfaced as a typed error so the orchestrator never has to inspect
// message strings.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/common/logger"
	"hedge-mcp/internal/common/metrics"
	"hedge-mcp/internal/models"
)

// MaxLimit caps row counts on every select.
const MaxLimit = 200

// DefaultLimit applies when the caller does not set one.
const DefaultLimit = 100

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// rangeOperators maps filter operator names to SQL.
var rangeOperators = map[string]string{
	"gte": ">=",
	"lte": "<=",
	"gt":  ">",
	"lt":  "<",
	"neq": "<>",
}

// QueryRequest describes one row-store operation.
type QueryRequest struct {
	Table     string                 `json:"tableName"`
	Operation string                 `json:"operation"` // select|insert|update|delete
	Filters   map[string]interface{} `json:"filters,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
	OrderBy   string                 `json:"orderBy,omitempty"`
}

// QueryResult is the outcome of a row-store operation.
type QueryResult struct {
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	RowCount     int                      `json:"rowCount"`
	RowsAffected int64                    `json:"rowsAffected,omitempty"`
	ElapsedMs    int64                    `json:"elapsedMs"`
}

// RowStore runs validated operations against *sql.DB.
type RowStore struct {
	db           *sql.DB
	queryTimeout time.Duration
	logger       logger.Logger
}

func NewRowStore(db *sql.DB, queryTimeout time.Duration, log logger.Logger) *RowStore {
	return &RowStore{
		db:           db,
		queryTimeout: queryTimeout,
		logger:       log.WithFields(map[string]interface{}{"component": "rowstore"}),
	}
}

// Validate checks the request against the allow-lists and shape rules
// without touching the database.
func (s *RowStore) Validate(req *QueryRequest) error {
	if req.Table == "" {
		return apperrors.NewRequestValidationError("table name is required")
	}
	if !IsKnownTable(req.Table) {
		return apperrors.NewUnknownTableError(req.Table)
	}

	switch req.Operation {
	case "select":
	case "insert", "update", "delete":
		if IsReadOnlyView(req.Table) {
			return apperrors.NewReadOnlyTableError(req.Table, models.OperationWrite)
		}
	default:
		return apperrors.NewRequestValidationError("unsupported operation: " + req.Operation)
	}

	if req.Limit < 0 || req.Limit > MaxLimit {
		return apperrors.NewRequestValidationError(fmt.Sprintf("limit must be between 0 and %d", MaxLimit))
	}
	if req.OrderBy != "" && !validOrderBy(req.OrderBy) {
		return apperrors.NewRequestValidationError("invalid order_by column: " + req.OrderBy)
	}
	for col, val := range req.Filters {
		if !identifierPattern.MatchString(col) {
			return apperrors.NewRequestValidationError("invalid filter column: " + col)
		}
		// An operator map with an unknown key must fail here, not fall
		// out of the WHERE clause: a dropped clause on update/delete
		// would hit the whole table.
		if ops, ok := val.(map[string]interface{}); ok {
			if len(ops) == 0 {
				return apperrors.NewRequestValidationError("empty operator map for filter column: " + col)
			}
			for op := range ops {
				if _, known := rangeOperators[op]; !known {
					return apperrors.NewRequestValidationError(
						fmt.Sprintf("unknown filter operator %q for column %s", op, col))
				}
			}
		}
	}
	for col := range req.Data {
		if !identifierPattern.MatchString(col) {
			return apperrors.NewRequestValidationError("invalid data column: " + col)
		}
	}

	switch req.Operation {
	case "insert":
		if len(req.Data) == 0 {
			return apperrors.NewRequestValidationError("insert requires data")
		}
	case "update":
		if len(req.Data) == 0 {
			return apperrors.NewRequestValidationError("update requires data")
		}
		if len(req.Filters) == 0 {
			return apperrors.NewRequestValidationError("update requires filters")
		}
	case "delete":
		if len(req.Filters) == 0 {
			return apperrors.NewRequestValidationError("delete requires filters")
		}
	}

	return nil
}

// Execute validates and runs the request. Context deadline expiry maps
// to a query-timeout error; everything else from the driver becomes a
// retryable execution error.
func (s *RowStore) Execute(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	metrics.StoreQueries.WithLabelValues(req.Table, req.Operation).Inc()
	start := time.Now()

	var result *QueryResult
	var err error
	switch req.Operation {
	case "select":
		result, err = s.doSelect(ctx, req)
	case "insert":
		result, err = s.doInsert(ctx, req)
	case "update":
		result, err = s.doUpdate(ctx, req)
	case "delete":
		result, err = s.doDelete(ctx, req)
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewQueryTimeoutError(req.Table)
		}
		return nil, apperrors.NewQueryExecutionFailedError(req.Table, err)
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result, nil
}

func (s *RowStore) doSelect(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	where, args := buildWhere(req.Filters, 1)

	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	query := "SELECT * FROM " + req.Table + where
	if req.OrderBy != "" {
		query += " ORDER BY " + req.OrderBy
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Rows: out, RowCount: len(out)}, nil
}

func (s *RowStore) doInsert(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	cols := sortedKeys(req.Data)
	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = req.Data[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		req.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &QueryResult{RowsAffected: affected}, nil
}

func (s *RowStore) doUpdate(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	cols := sortedKeys(req.Data)
	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(req.Filters))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, req.Data[col])
	}

	where, whereArgs := buildWhere(req.Filters, len(cols)+1)
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", req.Table, strings.Join(sets, ", "), where)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &QueryResult{RowsAffected: affected}, nil
}

func (s *RowStore) doDelete(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	where, args := buildWhere(req.Filters, 1)
	query := "DELETE FROM " + req.Table + where

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &QueryResult{RowsAffected: affected}, nil
}

// buildWhere renders filters as a WHERE clause with $n placeholders
// starting at startIdx. Plain values compare with equality; a map value
// like {"gte": 100} renders range operators. Columns are emitted in
// sorted order so the generated SQL is deterministic.
func buildWhere(filters map[string]interface{}, startIdx int) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}

	cols := sortedKeys(filters)
	clauses := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	idx := startIdx

	for _, col := range cols {
		switch v := filters[col].(type) {
		case map[string]interface{}:
			for _, op := range sortedKeys(v) {
				sqlOp, ok := rangeOperators[op]
				if !ok {
					continue
				}
				clauses = append(clauses, fmt.Sprintf("%s %s $%d", col, sqlOp, idx))
				args = append(args, v[op])
				idx++
			}
		default:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, idx))
			args = append(args, v)
			idx++
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanRows converts a generic result set into maps keyed by column name.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func validOrderBy(orderBy string) bool {
	parts := strings.Fields(orderBy)
	if len(parts) == 0 || len(parts) > 2 {
		return false
	}
	if !identifierPattern.MatchString(parts[0]) {
		return false
	}
	if len(parts) == 2 {
		dir := strings.ToLower(parts[1])
		return dir == "asc" || dir == "desc"
	}
	return true
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ping reports database reachability for health checks.
func (s *RowStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
