package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"contractsearch-engine/internal/config"
	"contractsearch-engine/internal/dbdriver"
	"contractsearch-engine/internal/query"
	"contractsearch-engine/internal/scheduler"
	"contractsearch-engine/internal/secrets"
	"contractsearch-engine/internal/store"
)

// buildSourceSpecs resolves DSNs and binds a driver to every active database
// source. A source that cannot be resolved is skipped with a log line; the
// orchestrator then treats its queries as failed and moves on, which beats
// refusing to start over one broken legacy system.
func buildSourceSpecs(ctx context.Context, cfg config.Config, drivers []dbdriver.Driver) []query.SourceSpec {
	var specs []query.SourceSpec
	for _, name := range config.SourceOrder {
		sc, _ := cfg.SourceByName(name)
		if !sc.Active || sc.Method != "database" {
			continue
		}

		dsn, err := resolveDSN(name, sc)
		if err != nil {
			log.Printf("[main] source=%s disabled: %v", name, err)
			continue
		}

		drv, err := pickDriver(ctx, sc.Driver, dsn, drivers)
		if err != nil {
			log.Printf("[main] source=%s disabled: %v", name, err)
			continue
		}
		log.Printf("[main] source=%s driver=%s procs=%t", name, drv.Name(), drv.SupportsProcedures())

		specs = append(specs, query.SourceSpec{
			Name:           name,
			Driver:         drv,
			DSN:            dsn,
			Table:          sc.Table,
			EntityColumn:   sc.EntityColumn,
			SupplierColumn: sc.SupplierColumn,
			DateColumn:     sc.DateColumn,
		})
	}
	return specs
}

// resolveDSN reads the connection string from the configured env var and,
// when asked, fills its ${password} marker from the OS keychain.
func resolveDSN(name string, sc config.SourceConfig) (string, error) {
	dsn := os.Getenv(sc.DSNEnv)
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("env %s is empty", sc.DSNEnv)
	}
	if sc.PasswordFromKeyring {
		pw, err := secrets.GetSourcePassword(name)
		if err != nil {
			return "", err
		}
		dsn = strings.ReplaceAll(dsn, "${password}", pw)
	}
	return dsn, nil
}

// pickDriver selects the configured driver, or probes the DSN against every
// known driver when the config says auto. The choice is made once here and
// never re-detected per query.
func pickDriver(ctx context.Context, name, dsn string, drivers []dbdriver.Driver) (dbdriver.Driver, error) {
	if name != "auto" {
		return dbdriver.Lookup(name, drivers)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return dbdriver.Probe(pctx, dsn, drivers)
}

// retentionSweep deletes finished searches and old log rows per the
// configured retention windows.
func retentionSweep(db *store.DB, cfg config.Config) scheduler.Task {
	searchAge := time.Duration(cfg.Retention.SearchHours) * time.Hour
	logAge := time.Duration(cfg.Retention.LogDays) * 24 * time.Hour
	return func(ctx context.Context) error {
		n, err := db.DeleteSearchesOlderThan(ctx, searchAge)
		if err != nil {
			return err
		}
		m, err := db.PurgeSearchLogOlderThan(ctx, logAge)
		if err != nil {
			return err
		}
		if n > 0 || m > 0 {
			log.Printf("[retention] removed searches=%d log_rows=%d", n, m)
		}
		return nil
	}
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownHandler stops the engine when the desktop shell asks. Loopback plus
// a per-run token keeps anything else on the machine from killing it.
func shutdownHandler(token string, stop func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))
		go stop()
	}
}
