package services

import (
	"context"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
)

// ReconciliationSvc drives a gateway-backed transaction to completion or failure.
// Reconcile is safe to invoke any number of times for the same job.
type ReconciliationSvc interface {
	Reconcile(ctx context.Context, job domain.ReconciliationJob) error

	// PendingJobs lists the gateway-backed payments still awaiting an outcome.
	PendingJobs(ctx context.Context) ([]domain.ReconciliationJob, error)
}
