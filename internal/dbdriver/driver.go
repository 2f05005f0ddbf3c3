// Package dbdriver normalizes the two supported database client APIs behind
// one prepare/bind/fetch contract so callers never branch on which client is
// in use. A driver is chosen once per source at startup, never re-detected
// per call.
package dbdriver

import (
	"context"
	"fmt"

	"contractsearch-engine/internal/domain"
)

// Stmt is a prepared statement. FetchNext yields one row at a time with a
// uniform (record, ok, err) contract regardless of how the underlying client
// reports failures.
type Stmt interface {
	BindAndExecute(ctx context.Context, args ...any) error
	FetchNext() (domain.Record, bool, error)
	Close() error
}

// Conn is a single connection to one source database.
type Conn interface {
	Prepare(ctx context.Context, query string) (Stmt, error)
	Ping(ctx context.Context) error
	Close() error
}

type Driver interface {
	Name() string
	// Open dials a fresh connection. Callers own the Conn and must Close it.
	Open(ctx context.Context, dsn string) (Conn, error)
	// Placeholder returns the dialect's positional parameter marker, 1-based.
	Placeholder(i int) string
	// SupportsProcedures reports whether stored-procedure mode works here.
	SupportsProcedures() bool
	// ProcCall renders the invocation of a stored procedure with argc
	// positional parameters. Empty when SupportsProcedures is false.
	ProcCall(name string, argc int) string
}

// Lookup returns the named driver from the given set.
func Lookup(name string, drivers []Driver) (Driver, error) {
	for _, d := range drivers {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown database driver %q", name)
}

// Probe tries each driver against the DSN and returns the first one that can
// open and round-trip a connection. Used when a source is configured with
// driver "auto".
func Probe(ctx context.Context, dsn string, drivers []Driver) (Driver, error) {
	var lastErr error
	for _, d := range drivers {
		conn, err := d.Open(ctx, dsn)
		if err != nil {
			lastErr = err
			continue
		}
		err = conn.Ping(ctx)
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return d, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no drivers registered")
	}
	return nil, fmt.Errorf("probe failed for all drivers: %w", lastErr)
}
