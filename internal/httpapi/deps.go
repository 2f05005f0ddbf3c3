// Package httpapi is the engine's local HTTP surface: start a search, poll
// its progress, fetch results, and a handful of operational endpoints. It is
// meant to be bound to loopback and consumed by the desktop shell.
package httpapi

import (
	"context"
	"sync/atomic"
	"time"

	"contractsearch-engine/internal/domain"
	"contractsearch-engine/internal/orchestrator"
	"contractsearch-engine/internal/secrets"
	"contractsearch-engine/internal/store"
)

// SearchService is what the handlers need from the orchestrator.
type SearchService interface {
	CreateJob(ctx context.Context, req domain.SearchRequest) (*domain.SearchJob, error)
	GetProgress(ctx context.Context, searchID string) (domain.ProgressView, error)
	GetResults(ctx context.Context, searchID string) (domain.ResultView, error)
}

// Queue accepts created jobs for background execution.
type Queue interface {
	Submit(job *domain.SearchJob) error
	Status() orchestrator.Status
}

// LogStore serves the search history endpoint.
type LogStore interface {
	ListSearchLog(ctx context.Context, limit int) ([]store.LogEntry, error)
}

// Subscriber is the SSE fan-out side of the event hub.
type Subscriber interface {
	Subscribe() chan string
	Unsubscribe(ch chan string)
}

// SecretStore stores per-source database passwords.
type SecretStore interface {
	Set(source, password string) error
	Delete(source string) error
}

type keyringStore struct{}

func (keyringStore) Set(source, password string) error {
	return secrets.SetSourcePassword(source, password)
}

func (keyringStore) Delete(source string) error {
	return secrets.DeleteSourcePassword(source)
}

// Deps is everything the HTTP layer is wired with. One value, built in
// cmd/engine, no package-level state.
type Deps struct {
	Searches SearchService
	Queue    Queue
	Logs     LogStore
	Hub      Subscriber

	CfgVal  *atomic.Value // holds config.Config
	CfgPath string
	Secrets SecretStore

	Started time.Time
}
