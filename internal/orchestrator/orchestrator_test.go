package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractsearch-engine/internal/domain"
	"contractsearch-engine/internal/query"
	"contractsearch-engine/internal/store"
)

// fakeStore keeps jobs in memory and records every progress write so tests
// can assert on the exact sequence a poller could observe.
type fakeStore struct {
	mu           sync.Mutex
	jobs         map[string]*domain.SearchJob
	progressSeen []int
	statusSeen   []domain.Status
	logEntries   []store.LogEntry
	failAfter    int // fail UpdateSearch after this many calls; 0 = never
	updates      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*domain.SearchJob)}
}

func (f *fakeStore) CreateSearch(ctx context.Context, job *domain.SearchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.SearchID]; ok {
		return store.ErrDuplicateID
	}
	cp := *job
	f.jobs[job.SearchID] = &cp
	return nil
}

func (f *fakeStore) UpdateSearch(ctx context.Context, id string, upd store.SearchUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failAfter > 0 && f.updates > f.failAfter {
		return errors.New("disk full")
	}
	job, ok := f.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.Status != nil {
		job.Status = *upd.Status
		f.statusSeen = append(f.statusSeen, *upd.Status)
	}
	if upd.ProgressPercent != nil {
		job.ProgressPercent = *upd.ProgressPercent
		f.progressSeen = append(f.progressSeen, *upd.ProgressPercent)
	}
	if upd.CurrentSource != nil {
		job.CurrentSource = *upd.CurrentSource
	}
	if upd.CompletedSources != nil {
		job.CompletedSources = append([]string(nil), upd.CompletedSources...)
	}
	if upd.TotalRecords != nil {
		job.TotalRecords = *upd.TotalRecords
	}
	if upd.Results != nil {
		job.Results = upd.Results
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = *upd.ErrorMessage
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) GetSearch(ctx context.Context, id string) (*domain.SearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeStore) AppendSearchLog(ctx context.Context, e store.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logEntries = append(f.logEntries, e)
	return nil
}

// fakeExecutor serves canned rows per source and can fail specific sources.
type fakeExecutor struct {
	rows map[string][]domain.Record
	errs map[string]error
}

func (f *fakeExecutor) Execute(ctx context.Context, src domain.Source, profile domain.ProfileType, from, to time.Time, doc string) ([]domain.Record, error) {
	if err := f.errs[src.Name]; err != nil {
		return nil, err
	}
	return f.rows[src.Name], nil
}

type fakeRegistry struct{ sources []domain.Source }

func (f *fakeRegistry) ActiveSources() []domain.Source { return f.sources }

func threeSources() []domain.Source {
	return []domain.Source{
		{Name: "secop1", Method: domain.MethodDatabase},
		{Name: "secop2", Method: domain.MethodDatabase},
		{Name: "tvec", Method: domain.MethodDatabase},
	}
}

func rows(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i].Set("numero", i)
	}
	return out
}

func validRequest() domain.SearchRequest {
	return domain.SearchRequest{
		ProfileType:    "entity",
		DateFrom:       "2024-01-01",
		DateTo:         "2024-01-31",
		DocumentNumber: "900.123.456",
	}
}

func TestCreateJob(t *testing.T) {
	st := newFakeStore()
	o := New(st, &fakeExecutor{}, &fakeRegistry{sources: threeSources()}, nil)

	job, err := o.CreateJob(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, job.SearchID)
	assert.Equal(t, domain.StatusStarted, job.Status)
	assert.Equal(t, "900123456", job.DocumentNumber)
	assert.Len(t, job.ActiveSources, 3)

	stored, err := st.GetSearch(context.Background(), job.SearchID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarted, stored.Status)
}

func TestCreateJobValidation(t *testing.T) {
	st := newFakeStore()
	o := New(st, &fakeExecutor{}, &fakeRegistry{sources: threeSources()}, nil)

	req := validRequest()
	req.DateFrom = "2024-02-01" // after DateTo
	_, err := o.CreateJob(context.Background(), req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, st.jobs, "rejected request must not create a job")
}

func TestCreateJobNoActiveSources(t *testing.T) {
	o := New(newFakeStore(), &fakeExecutor{}, &fakeRegistry{}, nil)
	_, err := o.CreateJob(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrNoActiveSources)
}

func TestRunCompleted(t *testing.T) {
	st := newFakeStore()
	exec := &fakeExecutor{rows: map[string][]domain.Record{
		"secop1": rows(3),
		"tvec":   rows(2),
	}}
	o := New(st, exec, &fakeRegistry{sources: threeSources()}, nil)

	job, err := o.CreateJob(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), job))

	got, err := st.GetSearch(context.Background(), job.SearchID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.ProgressPercent)
	assert.Empty(t, got.CurrentSource)
	assert.Equal(t, []string{"secop1", "secop2", "tvec"}, got.CompletedSources)
	assert.Equal(t, 5, got.TotalRecords)
	assert.Len(t, got.Results["secop1"], 3)
	assert.Len(t, got.Results["tvec"], 2)
	assert.NotContains(t, got.Results, "secop2")

	// progress is monotonically non-decreasing, ends at 100
	prev := 0
	for _, p := range st.progressSeen {
		assert.GreaterOrEqual(t, p, prev)
		assert.LessOrEqual(t, p, 100)
		prev = p
	}
	assert.Equal(t, 100, prev)

	require.Len(t, st.logEntries, 1)
	assert.Equal(t, "completed", st.logEntries[0].Status)
	assert.Equal(t, 5, st.logEntries[0].TotalRecords)
}

func TestRunNoResults(t *testing.T) {
	st := newFakeStore()
	o := New(st, &fakeExecutor{}, &fakeRegistry{sources: threeSources()}, nil)

	job, err := o.CreateJob(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), job))

	got, _ := st.GetSearch(context.Background(), job.SearchID)
	assert.Equal(t, domain.StatusNoResults, got.Status)
	assert.Equal(t, 0, got.TotalRecords)
	assert.Len(t, got.CompletedSources, 3)
}

func TestRunFailOpen(t *testing.T) {
	st := newFakeStore()
	exec := &fakeExecutor{
		rows: map[string][]domain.Record{
			"secop1": rows(2),
			"tvec":   rows(1),
		},
		errs: map[string]error{
			"secop2": &query.ConnectionError{Source: "secop2", Err: errors.New("refused")},
		},
	}
	o := New(st, exec, &fakeRegistry{sources: threeSources()}, nil)

	job, err := o.CreateJob(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, o.Run(context.Background(), job))

	got, _ := st.GetSearch(context.Background(), job.SearchID)
	assert.Equal(t, domain.StatusCompleted, got.Status, "one broken source must not fail the job")
	assert.Equal(t, []string{"secop1", "secop2", "tvec"}, got.CompletedSources)
	assert.Equal(t, 3, got.TotalRecords)
	assert.NotContains(t, got.Results, "secop2")
	assert.Empty(t, got.ErrorMessage)
}

func TestRunPersistenceFailureIsFatal(t *testing.T) {
	st := newFakeStore()
	st.failAfter = 2
	exec := &fakeExecutor{rows: map[string][]domain.Record{"secop1": rows(1)}}
	o := New(st, exec, &fakeRegistry{sources: threeSources()}, nil)

	job, err := o.CreateJob(context.Background(), validRequest())
	require.NoError(t, err)

	err = o.Run(context.Background(), job)
	require.Error(t, err)

	// the error-state write happens after failAfter stops biting only if
	// updates keep failing; either way the in-memory job is terminal
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Equal(t, userErrorMessage, job.ErrorMessage)
}

func TestRunAbortedContext(t *testing.T) {
	st := newFakeStore()
	o := New(st, &fakeExecutor{}, &fakeRegistry{sources: threeSources()}, nil)

	job, err := o.CreateJob(context.Background(), validRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = o.Run(ctx, job)
	require.Error(t, err)

	got, _ := st.GetSearch(context.Background(), job.SearchID)
	assert.Equal(t, domain.StatusError, got.Status)
}

func TestGetProgressAndResults(t *testing.T) {
	st := newFakeStore()
	exec := &fakeExecutor{rows: map[string][]domain.Record{"secop1": rows(4)}}
	o := New(st, exec, &fakeRegistry{sources: threeSources()}, nil)
	ctx := context.Background()

	job, err := o.CreateJob(ctx, validRequest())
	require.NoError(t, err)

	// before the run, results are not ready
	_, err = o.GetResults(ctx, job.SearchID)
	assert.ErrorIs(t, err, ErrNotReady)

	pv, err := o.GetProgress(ctx, job.SearchID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarted, pv.Status)
	assert.Equal(t, []string{"secop1", "secop2", "tvec"}, pv.ActiveSources)

	require.NoError(t, o.Run(ctx, job))

	rv, err := o.GetResults(ctx, job.SearchID)
	require.NoError(t, err)
	assert.True(t, rv.HasResults)
	assert.Equal(t, 4, rv.TotalRecords)
	require.Len(t, rv.Results["secop1"], 4)

	// terminal reads are idempotent
	rv2, err := o.GetResults(ctx, job.SearchID)
	require.NoError(t, err)
	assert.Equal(t, rv, rv2)
	pv1, _ := o.GetProgress(ctx, job.SearchID)
	pv2, _ := o.GetProgress(ctx, job.SearchID)
	assert.Equal(t, pv1, pv2)
}

func TestGetProgressNotFound(t *testing.T) {
	o := New(newFakeStore(), &fakeExecutor{}, &fakeRegistry{sources: threeSources()}, nil)
	_, err := o.GetProgress(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
