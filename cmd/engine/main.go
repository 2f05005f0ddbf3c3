package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"contractsearch-engine/internal/config"
	"contractsearch-engine/internal/dbdriver"
	"contractsearch-engine/internal/events"
	"contractsearch-engine/internal/httpapi"
	"contractsearch-engine/internal/orchestrator"
	"contractsearch-engine/internal/query"
	"contractsearch-engine/internal/registry"
	"contractsearch-engine/internal/scheduler"
	"contractsearch-engine/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Engine data dir: use env if provided (the desktop shell passes one),
	// else local folder.
	dataDir := os.Getenv("CONTRACTSEARCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; a second instance would race the SQLite file.
	lk := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lk.TryLock()
	if err != nil {
		log.Fatalf("instance lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running for %s", dataDir)
	}
	defer lk.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	rawCfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, vr := config.NormalizeAndValidate(rawCfg)
	for _, warn := range vr.Warnings {
		log.Printf("[config] warning: %s", warn)
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%s)", userCfgPath)
	}

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "contractsearch.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drivers := []dbdriver.Driver{dbdriver.SQLite(), dbdriver.Postgres()}
	specs := buildSourceSpecs(ctx, cfg, drivers)
	exec := query.NewExecutor(specs, query.Options{
		UseStoredProcedures: cfg.Query.UseStoredProcedures,
		Timeout:             time.Duration(cfg.Query.TimeoutSeconds) * time.Second,
		RatePerSecond:       cfg.Query.RatePerSecond,
		Burst:               cfg.Query.Burst,
	})

	hub := events.NewHub()
	reg := registry.New(&cfgVal)
	orc := orchestrator.New(db, exec, reg, hub)
	runner := orchestrator.NewRunner(orc, cfg.Workers.Count, cfg.Workers.QueueSize)

	deps := httpapi.Deps{
		Searches: orc,
		Queue:    runner,
		Logs:     db,
		Hub:      hub,
		CfgVal:   &cfgVal,
		CfgPath:  userCfgPath,
		Started:  time.Now(),
	}

	token, err := randomToken(16)
	if err != nil {
		log.Fatalf("token generation failed: %v", err)
	}
	tokenPath := filepath.Join(dataDir, "shutdown.token")
	if err := os.WriteFile(tokenPath, []byte(token), 0o600); err != nil {
		log.Fatalf("token write failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.Routes(deps))
	mux.HandleFunc("POST /shutdown", shutdownHandler(token, stop))

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.AccessLog,
		httpapi.Recover,
		httpapi.Cors,
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (data=%s config=%s)", addr, dataDir, userCfgPath)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runner.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		sweep := time.Duration(cfg.Retention.SweepMinutes) * time.Minute
		scheduler.Every(gctx, sweep, "retention", retentionSweep(db, cfg))
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		runner.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("engine stopped: %v", err)
	}
	log.Printf("engine stopped")
}
