// Package jobs defines the background work items of the ledger and the
// contracts of the queues that carry them.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeReconcilePayment settles a gateway-backed payment.
	JobTypeReconcilePayment JobType = "reconcile_payment"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ReconcileJob wraps one dispatched reconciliation with its delivery bookkeeping.
type ReconcileJob struct {
	JobID string `json:"job_id"`
	domain.ReconciliationJob

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	// RetryCount is the number of re-deliveries so far.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// JobHandler processes a job. A returned error is retried only when
// apperrors.IsRetryable reports it as transient.
type JobHandler func(ctx context.Context, job *ReconcileJob) error

// Consumer runs handlers for dispatched jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// ReconcileHandler adapts the reconciliation service to a JobHandler.
func ReconcileHandler(svc portssvc.ReconciliationSvc) JobHandler {
	return func(ctx context.Context, job *ReconcileJob) error {
		return svc.Reconcile(ctx, job.ReconciliationJob)
	}
}

// Resume dispatches the reconciliations left unsettled by a previous run.
// It stops at the first dispatch error; whatever was not queued is found
// again on the next start.
func Resume(ctx context.Context, svc portssvc.ReconciliationSvc, dispatcher portssvc.ReconciliationDispatcher) (int, error) {
	pending, err := svc.PendingJobs(ctx)
	if err != nil {
		return 0, err
	}
	for i, job := range pending {
		if err := dispatcher.Dispatch(ctx, job); err != nil {
			return i, fmt.Errorf("failed to resume reconciliation of transaction %s: %w", job.TransactionID, err)
		}
	}
	return len(pending), nil
}
