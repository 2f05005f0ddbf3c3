package dbdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// postgresDriver speaks to sources reachable through lib/pq. Unlike the
// sqlite client, pq reports failures as structured *pq.Error values with
// SQLSTATE codes; translate flattens those into plain wrapped errors so
// callers see one error shape from both drivers.
type postgresDriver struct{}

func Postgres() Driver { return postgresDriver{} }

func (postgresDriver) Name() string { return "postgres" }

func (postgresDriver) SupportsProcedures() bool { return true }

func (postgresDriver) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

// ProcCall renders a set-returning function invocation, which is how the
// legacy per-source procedures are exposed on the postgres side.
func (postgresDriver) ProcCall(name string, argc int) string {
	ph := make([]string, argc)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("SELECT * FROM %s(%s)", name, strings.Join(ph, ", "))
}

func (postgresDriver) Open(ctx context.Context, dsn string) (Conn, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, translatePQ(err)
	}
	return &sqlConn{db: db, translate: translatePQ}, nil
}

func translatePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres: %s (sqlstate %s)", pqErr.Message, pqErr.Code)
	}
	return fmt.Errorf("postgres: %w", err)
}
