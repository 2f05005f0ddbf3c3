package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"contractsearch-engine/internal/domain"
)

// ErrQueueFull is returned by Submit when the job queue has no room. The job
// is moved to the error state so pollers are not left hanging.
var ErrQueueFull = errors.New("search queue is full")

// Runner owns a bounded pool of workers that execute search jobs pulled from
// a channel queue. StartSearch returns as soon as the job is queued; workers
// do the actual fan-out while the client polls.
type Runner struct {
	orc     *Orchestrator
	queue   chan *domain.SearchJob
	workers int

	wg       sync.WaitGroup
	accepted atomic.Int64
	finished atomic.Int64
}

func NewRunner(orc *Orchestrator, workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Runner{
		orc:     orc,
		queue:   make(chan *domain.SearchJob, queueSize),
		workers: workers,
	}
}

// Start launches the workers. They exit when ctx is canceled; Wait blocks
// until the last in-flight job has finished.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func(id int) {
			defer r.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-r.queue:
					if err := r.orc.Run(ctx, job); err != nil {
						log.Printf("[runner] worker=%d search=%s finished with error: %v", id, job.SearchID, err)
					}
					r.finished.Add(1)
				}
			}
		}(i)
	}
	log.Printf("[runner] started workers=%d queue_cap=%d", r.workers, cap(r.queue))
}

func (r *Runner) Wait() {
	r.wg.Wait()
}

// Submit queues a job without blocking. A full queue fails the job rather
// than stalling the HTTP request that created it.
func (r *Runner) Submit(job *domain.SearchJob) error {
	select {
	case r.queue <- job:
		r.accepted.Add(1)
		return nil
	default:
		log.Printf("[runner] queue full, dropping search=%s", job.SearchID)
		_ = r.orc.fail(job, fmt.Errorf("submit search %s: %w", job.SearchID, ErrQueueFull))
		return ErrQueueFull
	}
}

// Status is the operational snapshot served by /engine/status.
type Status struct {
	Workers    int   `json:"workers"`
	QueueDepth int   `json:"queue_depth"`
	QueueCap   int   `json:"queue_cap"`
	Accepted   int64 `json:"accepted"`
	Finished   int64 `json:"finished"`
}

func (r *Runner) Status() Status {
	return Status{
		Workers:    r.workers,
		QueueDepth: len(r.queue),
		QueueCap:   cap(r.queue),
		Accepted:   r.accepted.Load(),
		Finished:   r.finished.Load(),
	}
}
