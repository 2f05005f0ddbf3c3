package dbdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var errNotExecuted = errors.New("statement not executed")

// sqliteDriver speaks to sources reachable through the modernc sqlite client.
// SQLite has no stored procedures, so the executor falls back to raw SQL for
// sources bound to this driver even when procedure mode is configured.
type sqliteDriver struct{}

func SQLite() Driver { return sqliteDriver{} }

func (sqliteDriver) Name() string { return "sqlite" }

func (sqliteDriver) SupportsProcedures() bool { return false }

func (sqliteDriver) Placeholder(int) string { return "?" }

func (sqliteDriver) ProcCall(string, int) string { return "" }

func (sqliteDriver) Open(ctx context.Context, dsn string) (Conn, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// one logical connection per Open, no pooling
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &sqlConn{
		db: db,
		translate: func(err error) error {
			return fmt.Errorf("sqlite: %w", err)
		},
	}, nil
}
