package dbdriver

import (
	"context"
	"database/sql"
	"time"

	"contractsearch-engine/internal/domain"
)

// temporalLayout is the canonical string form every native date/time value is
// normalized to before a record leaves the driver layer.
const temporalLayout = "2006-01-02 15:04:05"

// sqlConn adapts a database/sql handle to the Conn contract. Both concrete
// drivers share it; the per-client differences live in the translate hook,
// which maps each client's native error shape onto plain wrapped errors.
type sqlConn struct {
	db        *sql.DB
	translate func(error) error
}

func (c *sqlConn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return c.translate(err)
	}
	return nil
}

func (c *sqlConn) Prepare(ctx context.Context, query string) (Stmt, error) {
	st, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, c.translate(err)
	}
	return &sqlStmt{stmt: st, translate: c.translate}, nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

type sqlStmt struct {
	stmt      *sql.Stmt
	rows      *sql.Rows
	cols      []string
	translate func(error) error
}

func (s *sqlStmt) BindAndExecute(ctx context.Context, args ...any) error {
	rows, err := s.stmt.QueryContext(ctx, args...)
	if err != nil {
		return s.translate(err)
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return s.translate(err)
	}
	s.rows = rows
	s.cols = cols
	return nil
}

func (s *sqlStmt) FetchNext() (domain.Record, bool, error) {
	var rec domain.Record
	if s.rows == nil {
		return rec, false, errNotExecuted
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return rec, false, s.translate(err)
		}
		return rec, false, nil
	}

	vals := make([]any, len(s.cols))
	ptrs := make([]any, len(s.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return rec, false, s.translate(err)
	}
	for i, col := range s.cols {
		rec.Set(col, normalizeValue(vals[i]))
	}
	return rec, true, nil
}

func (s *sqlStmt) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	return s.stmt.Close()
}

// normalizeValue converts driver-native values into the small set the rest
// of the engine understands: string, number or nil. Temporal values become
// canonical strings so heterogeneous sources render uniformly.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(temporalLayout)
	case []byte:
		return string(t)
	default:
		return v
	}
}
