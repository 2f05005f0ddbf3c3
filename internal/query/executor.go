// Package query runs one logical search against one legacy source. It hides
// which database client a source is bound to and whether the query runs as a
// stored procedure or a hand-built parameterized statement.
package query

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"contractsearch-engine/internal/dbdriver"
	"contractsearch-engine/internal/domain"
)

// SourceSpec binds one source to a driver, a DSN and its opaque query
// template. Built once at startup; the active/method flags live in the
// registry snapshot, not here.
type SourceSpec struct {
	Name           string
	Driver         dbdriver.Driver
	DSN            string
	Table          string
	EntityColumn   string
	SupplierColumn string
	DateColumn     string
}

type Options struct {
	UseStoredProcedures bool
	Timeout             time.Duration // per-source execution budget
	RatePerSecond       float64
	Burst               int
}

// ConnectionError means the source database could not be reached or
// validated. The orchestrator treats it as fail-open.
type ConnectionError struct {
	Source string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("source %s: connection failed: %v", e.Source, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError means the source was reachable but the query itself failed.
// Same fail-open treatment as ConnectionError.
type QueryError struct {
	Source string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("source %s: query failed: %v", e.Source, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

type Executor struct {
	sources  map[string]SourceSpec
	limiters map[string]*rate.Limiter
	opts     Options
}

func NewExecutor(specs []SourceSpec, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	e := &Executor{
		sources:  make(map[string]SourceSpec, len(specs)),
		limiters: make(map[string]*rate.Limiter, len(specs)),
		opts:     opts,
	}
	for _, s := range specs {
		e.sources[s.Name] = s
		e.limiters[s.Name] = rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst)
	}
	return e
}

// Execute runs one query against one source and returns every matching row.
// A fresh connection is opened per call, validated with a round trip, and
// closed before returning. Failures are returned whole to the caller; there
// are no retries and no partial applications here.
func (e *Executor) Execute(ctx context.Context, src domain.Source, profile domain.ProfileType, dateFrom, dateTo time.Time, document string) ([]domain.Record, error) {
	if src.Method == domain.MethodAPI {
		// Intentional stub: the api transport was never wired up in the
		// legacy system, so it contributes zero rows without failing.
		log.Printf("[query] source=%s method=api stubbed, returning no rows", src.Name)
		return nil, nil
	}

	spec, ok := e.sources[src.Name]
	if !ok {
		return nil, &QueryError{Source: src.Name, Err: fmt.Errorf("source not configured")}
	}

	if lim := e.limiters[src.Name]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, &ConnectionError{Source: src.Name, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	conn, err := spec.Driver.Open(ctx, spec.DSN)
	if err != nil {
		return nil, &ConnectionError{Source: src.Name, Err: err}
	}
	defer conn.Close()
	if err := conn.Ping(ctx); err != nil {
		return nil, &ConnectionError{Source: src.Name, Err: err}
	}

	digits := domain.NormalizeDocument(document)
	from := dateFrom.Format(domain.DateLayout)
	to := dateTo.Format(domain.DateLayout)

	var q string
	var args []any
	if e.opts.UseStoredProcedures && spec.Driver.SupportsProcedures() {
		q = spec.Driver.ProcCall(ProcName(profile, src.Name), 3)
		args = []any{digits, from, to}
	} else {
		if e.opts.UseStoredProcedures {
			log.Printf("[query] source=%s driver=%s has no stored procedures, using raw query", src.Name, spec.Driver.Name())
		}
		q = buildRawQuery(spec.Driver, spec, profile)
		args = []any{"%" + digits + "%", from, to}
	}

	stmt, err := conn.Prepare(ctx, q)
	if err != nil {
		return nil, &QueryError{Source: src.Name, Err: err}
	}
	defer stmt.Close()

	if err := stmt.BindAndExecute(ctx, args...); err != nil {
		return nil, &QueryError{Source: src.Name, Err: err}
	}

	var out []domain.Record
	for {
		rec, more, err := stmt.FetchNext()
		if err != nil {
			return nil, &QueryError{Source: src.Name, Err: err}
		}
		if !more {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}

// ProcName follows the legacy naming convention Query<Entity|Supplier>By<Source>.
func ProcName(profile domain.ProfileType, source string) string {
	return fmt.Sprintf("Query%sBy%s", capitalize(string(profile)), capitalize(source))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildRawQuery(d dbdriver.Driver, s SourceSpec, profile domain.ProfileType) string {
	col := s.EntityColumn
	if profile == domain.ProfileSupplier {
		col = s.SupplierColumn
	}
	return fmt.Sprintf(
		"SELECT * FROM %s WHERE %s LIKE %s AND %s >= %s AND %s <= %s ORDER BY %s",
		s.Table,
		col, d.Placeholder(1),
		s.DateColumn, d.Placeholder(2),
		s.DateColumn, d.Placeholder(3),
		s.DateColumn,
	)
}
