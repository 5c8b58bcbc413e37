package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/jobs"
	"github.com/SscSPs/finance_ledger/internal/middleware"
	"github.com/google/uuid"
)

// Config sizes the queue.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// Backoff is multiplied by the retry number before a job is re-enqueued.
	Backoff time.Duration
}

// Queue is an in-memory, at-least-once reconciliation queue backed by a
// buffered channel and a fixed worker pool. Jobs do not survive a restart.
type Queue struct {
	cfg       Config
	jobChan   chan *jobs.ReconcileJob
	closeChan chan struct{}
	workers   sync.WaitGroup
	retries   sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	started   bool
	dropped   atomic.Int64
	logger    *slog.Logger
}

// NewQueue creates a new in-memory job queue.
func NewQueue(cfg Config, logger *slog.Logger) *Queue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Queue{
		cfg:       cfg,
		jobChan:   make(chan *jobs.ReconcileJob, cfg.BufferSize),
		closeChan: make(chan struct{}),
		logger:    logger,
	}
}

var (
	_ portssvc.ReconciliationDispatcher = (*Queue)(nil)
	_ jobs.Consumer                     = (*Queue)(nil)
)

// Dispatch enqueues a reconciliation. It never blocks: a full buffer is reported
// as an error so the caller can fail the payment instead of stalling the request.
func (q *Queue) Dispatch(ctx context.Context, job domain.ReconciliationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rj := &jobs.ReconcileJob{
		JobID:             uuid.NewString(),
		ReconciliationJob: job,
		Status:            jobs.JobStatusPending,
		CreatedAt:         time.Now(),
		MaxRetries:        q.cfg.MaxRetries,
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	select {
	case q.jobChan <- rj:
		middleware.GetLoggerFromCtx(ctx).Debug("Reconciliation job queued",
			slog.String("job_id", rj.JobID),
			slog.String("transaction_id", job.TransactionID))
		return nil
	default:
		return fmt.Errorf("queue is full (%d jobs)", q.cfg.BufferSize)
	}
}

// Start launches the worker pool. Handlers run on a detached copy of ctx, so
// cancelling ctx closes the queue like Stop does: workers finish the buffered
// jobs with a live context and then exit.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if q.started {
		return fmt.Errorf("queue already started")
	}
	q.started = true

	runCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.worker(runCtx, ctx.Done(), handler)
	}
	q.logger.Info("Reconciliation workers started", slog.Int("workers", q.cfg.Workers))
	return nil
}

func (q *Queue) worker(ctx context.Context, cancelled <-chan struct{}, handler jobs.JobHandler) {
	defer q.workers.Done()

	for {
		select {
		case <-cancelled:
			q.shut()
			q.drain(ctx, handler)
			return
		case <-q.closeChan:
			q.drain(ctx, handler)
			return
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		}
	}
}

// drain processes whatever is still buffered once the queue is closed.
// Nothing can be enqueued after closed is set, so an empty buffer stays empty.
func (q *Queue) drain(ctx context.Context, handler jobs.JobHandler) {
	for {
		select {
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		default:
			return
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.ReconcileJob, handler jobs.JobHandler) {
	logger := q.logger.With(
		slog.String("job_id", job.JobID),
		slog.String("transaction_id", job.TransactionID),
		slog.Int("attempt", job.RetryCount+1))
	jobCtx := middleware.WithLogger(ctx, logger)

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	err := handler(jobCtx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt
	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		return
	}

	job.Error = err.Error()
	if !apperrors.IsRetryable(err) || job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		logger.Warn("Reconciliation job failed", slog.String("error", err.Error()),
			slog.Bool("retryable", apperrors.IsRetryable(err)))
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	backoff := time.Duration(job.RetryCount) * q.cfg.Backoff
	logger.Info("Reconciliation job will be retried",
		slog.String("error", err.Error()),
		slog.Duration("backoff", backoff))

	q.retries.Add(1)
	time.AfterFunc(backoff, func() {
		defer q.retries.Done()
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		q.requeue(job, logger)
	})
}

// requeuePollInterval is how often a retry waiting for buffer room looks again.
const requeuePollInterval = 10 * time.Millisecond

// requeue puts a retried job back, waiting for room unless the queue closes.
// The send happens under the read lock after checking closed, so a job is
// either buffered before Stop closes the queue, and drained, or dropped.
func (q *Queue) requeue(job *jobs.ReconcileJob, logger *slog.Logger) {
	for {
		q.mu.RLock()
		if q.closed {
			q.mu.RUnlock()
			q.drop(job, logger)
			return
		}
		select {
		case q.jobChan <- job:
			q.mu.RUnlock()
			return
		default:
		}
		q.mu.RUnlock()

		select {
		case <-q.closeChan:
		case <-time.After(requeuePollInterval):
		}
	}
}

// drop records a retry the closed queue could not take. The transaction stays
// pending and is picked up again by the next startup resume.
func (q *Queue) drop(job *jobs.ReconcileJob, logger *slog.Logger) {
	q.dropped.Add(1)
	job.Status = jobs.JobStatusFailed
	logger.Warn("Queue closed, dropping retry", slog.Int("retry_count", job.RetryCount))
}

// Dropped reports how many retries were discarded because the queue had closed.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// shut marks the queue closed and wakes the workers. Later calls are no-ops.
func (q *Queue) shut() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.closeChan)
}

// Stop closes the queue, lets workers finish in-flight and buffered jobs, and
// waits for them or for ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.shut()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		q.retries.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Reconciliation workers stopped", slog.Int64("dropped_retries", q.dropped.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
