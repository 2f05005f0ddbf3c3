// Package orchestrator drives the search job state machine: one job fans out
// to every active source in fixed order, per-source failures contribute zero
// rows instead of failing the job, and every progress step is persisted
// immediately so pollers observe monotonic progress mid-run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"contractsearch-engine/internal/domain"
	"contractsearch-engine/internal/events"
	"contractsearch-engine/internal/store"
)

// ErrNoActiveSources is returned by CreateJob when the configuration has
// every source switched off.
var ErrNoActiveSources = errors.New("no sources are active")

// ErrNotReady is returned by GetResults while the job is still running.
var ErrNotReady = errors.New("search is not finished yet")

// userErrorMessage is what pollers see on a fatal failure; the technical
// cause stays in the engine log.
const userErrorMessage = "search failed due to an internal error"

// JobStore is the persistence the orchestrator needs. *store.DB satisfies it.
type JobStore interface {
	CreateSearch(ctx context.Context, job *domain.SearchJob) error
	UpdateSearch(ctx context.Context, searchID string, upd store.SearchUpdate) error
	GetSearch(ctx context.Context, searchID string) (*domain.SearchJob, error)
	AppendSearchLog(ctx context.Context, e store.LogEntry) error
}

// Executor runs one query against one source.
type Executor interface {
	Execute(ctx context.Context, src domain.Source, profile domain.ProfileType, dateFrom, dateTo time.Time, document string) ([]domain.Record, error)
}

// Registry supplies the active source snapshot at job creation.
type Registry interface {
	ActiveSources() []domain.Source
}

type Publisher interface {
	Publish(evt string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string) {}

type Orchestrator struct {
	store JobStore
	exec  Executor
	reg   Registry
	hub   Publisher
	now   func() time.Time
}

func New(st JobStore, exec Executor, reg Registry, hub Publisher) *Orchestrator {
	if hub == nil {
		hub = noopPublisher{}
	}
	return &Orchestrator{store: st, exec: exec, reg: reg, hub: hub, now: time.Now}
}

// CreateJob validates the request, snapshots the active sources and persists
// a new job in started state. The caller hands the returned job to a Runner.
func (o *Orchestrator) CreateJob(ctx context.Context, req domain.SearchRequest) (*domain.SearchJob, error) {
	params, err := req.Validate(o.now())
	if err != nil {
		return nil, err
	}

	sources := o.reg.ActiveSources()
	if len(sources) == 0 {
		return nil, ErrNoActiveSources
	}

	now := o.now().UTC()
	job := &domain.SearchJob{
		SearchID:       uuid.NewString(),
		Profile:        params.Profile,
		DateFrom:       params.DateFrom,
		DateTo:         params.DateTo,
		DocumentNumber: params.DocumentNumber,
		ActiveSources:  sources,
		Status:         domain.StatusStarted,
		Results:        map[string][]domain.Record{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.store.CreateSearch(ctx, job); err != nil {
		return nil, fmt.Errorf("create search: %w", err)
	}

	o.hub.Publish(events.MakeEvent("", events.TypeSearchCreated, 1, map[string]any{
		"search_id": job.SearchID,
	}))
	return job, nil
}

// Run executes the whole pipeline for one job. It is called from exactly one
// worker goroutine per search_id; nothing else writes that row.
func (o *Orchestrator) Run(ctx context.Context, job *domain.SearchJob) error {
	started := o.now()
	n := len(job.ActiveSources)

	job.Status = domain.StatusProcessing
	if err := o.update(ctx, job, store.SearchUpdate{Status: &job.Status}); err != nil {
		return o.fail(job, err)
	}

	for i, src := range job.ActiveSources {
		// Only engine shutdown cancels this context; a client closing its
		// browser does not reach here.
		if err := ctx.Err(); err != nil {
			return o.fail(job, fmt.Errorf("aborted before source %s: %w", src.Name, err))
		}

		job.CurrentSource = src.Name
		job.ProgressPercent = i * 100 / n
		if err := o.update(ctx, job, store.SearchUpdate{
			CurrentSource:   &job.CurrentSource,
			ProgressPercent: &job.ProgressPercent,
		}); err != nil {
			return o.fail(job, err)
		}
		o.publishProgress(job)

		rows, err := o.exec.Execute(ctx, src, job.Profile, job.DateFrom, job.DateTo, job.DocumentNumber)
		if err != nil {
			// fail-open: one broken legacy system must not hide the others
			log.Printf("[orchestrator] search=%s source=%s failed, continuing: %v", job.SearchID, src.Name, err)
			rows = nil
		}
		if len(rows) > 0 {
			job.Results[src.Name] = rows
			job.TotalRecords += len(rows)
		}
		job.CompletedSources = append(job.CompletedSources, src.Name)
		job.ProgressPercent = (i + 1) * 100 / n
		if err := o.update(ctx, job, store.SearchUpdate{
			ProgressPercent:  &job.ProgressPercent,
			CompletedSources: job.CompletedSources,
			TotalRecords:     &job.TotalRecords,
			Results:          job.Results,
		}); err != nil {
			return o.fail(job, err)
		}
		o.publishProgress(job)
	}

	job.Status = domain.StatusNoResults
	if job.TotalRecords > 0 {
		job.Status = domain.StatusCompleted
	}
	job.CurrentSource = ""
	job.ProgressPercent = 100
	if err := o.update(ctx, job, store.SearchUpdate{
		Status:          &job.Status,
		CurrentSource:   &job.CurrentSource,
		ProgressPercent: &job.ProgressPercent,
		Results:         job.Results,
	}); err != nil {
		return o.fail(job, err)
	}

	o.appendLog(job, started)
	o.hub.Publish(events.MakeEvent("", events.TypeSearchFinished, 1, map[string]any{
		"search_id":     job.SearchID,
		"status":        job.Status,
		"total_records": job.TotalRecords,
	}))
	return nil
}

// fail moves the job to the error terminal state. The cause is logged, not
// shown to the user.
func (o *Orchestrator) fail(job *domain.SearchJob, cause error) error {
	log.Printf("[orchestrator] search=%s fatal: %v", job.SearchID, cause)

	job.Status = domain.StatusError
	job.CurrentSource = ""
	job.ErrorMessage = userErrorMessage

	// Best effort with a fresh context: the run context may already be dead.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.UpdateSearch(ctx, job.SearchID, store.SearchUpdate{
		Status:        &job.Status,
		CurrentSource: &job.CurrentSource,
		ErrorMessage:  &job.ErrorMessage,
	}); err != nil {
		log.Printf("[orchestrator] search=%s could not persist error state: %v", job.SearchID, err)
	}

	o.appendLog(job, o.now())
	o.hub.Publish(events.MakeEvent("", events.TypeSearchFinished, 1, map[string]any{
		"search_id": job.SearchID,
		"status":    job.Status,
	}))
	return cause
}

func (o *Orchestrator) update(ctx context.Context, job *domain.SearchJob, upd store.SearchUpdate) error {
	if err := o.store.UpdateSearch(ctx, job.SearchID, upd); err != nil {
		return fmt.Errorf("persist search %s: %w", job.SearchID, err)
	}
	return nil
}

func (o *Orchestrator) publishProgress(job *domain.SearchJob) {
	o.hub.Publish(events.MakeEvent("", events.TypeSearchProgress, 1, map[string]any{
		"search_id":         job.SearchID,
		"progress_percent":  job.ProgressPercent,
		"current_source":    job.CurrentSource,
		"completed_sources": len(job.CompletedSources),
		"total_records":     job.TotalRecords,
	}))
}

// appendLog records the terminal outcome for auditing. The job itself is
// already terminal, so a log write failure is logged and swallowed.
func (o *Orchestrator) appendLog(job *domain.SearchJob, started time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := o.store.AppendSearchLog(ctx, store.LogEntry{
		SearchID:       job.SearchID,
		ProfileType:    string(job.Profile),
		DateFrom:       job.DateFrom.Format(domain.DateLayout),
		DateTo:         job.DateTo.Format(domain.DateLayout),
		DocumentNumber: job.DocumentNumber,
		Status:         string(job.Status),
		TotalRecords:   job.TotalRecords,
		DurationMs:     o.now().Sub(started).Milliseconds(),
	})
	if err != nil {
		log.Printf("[orchestrator] search=%s search log write failed: %v", job.SearchID, err)
	}
}

// GetProgress returns the poll view for a job. Safe to call repeatedly.
func (o *Orchestrator) GetProgress(ctx context.Context, searchID string) (domain.ProgressView, error) {
	job, err := o.store.GetSearch(ctx, searchID)
	if err != nil {
		return domain.ProgressView{}, err
	}
	return domain.ProgressView{
		SearchID:         job.SearchID,
		Status:           job.Status,
		ProgressPercent:  job.ProgressPercent,
		CurrentSource:    job.CurrentSource,
		ActiveSources:    job.SourceNames(),
		CompletedSources: job.CompletedSources,
		TotalRecords:     job.TotalRecords,
		ErrorMessage:     job.ErrorMessage,
	}, nil
}

// GetResults returns the aggregated payload once the job is terminal.
func (o *Orchestrator) GetResults(ctx context.Context, searchID string) (domain.ResultView, error) {
	job, err := o.store.GetSearch(ctx, searchID)
	if err != nil {
		return domain.ResultView{}, err
	}
	if !job.Status.Terminal() {
		return domain.ResultView{}, ErrNotReady
	}
	return domain.ResultView{
		SearchID:     job.SearchID,
		HasResults:   job.TotalRecords > 0,
		Results:      job.Results,
		TotalRecords: job.TotalRecords,
	}, nil
}
