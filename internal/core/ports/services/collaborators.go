package services

import (
	"context"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
)

// PaymentGateway is the narrow contract the ledger needs from an external card processor.
type PaymentGateway interface {
	Authorize(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*domain.PaymentAuthorization, error)
	QueryOutcome(ctx context.Context, handle string) (*domain.PaymentOutcome, error)
}

// ReconciliationDispatcher hands a job to the background workers. Delivery is at-least-once.
type ReconciliationDispatcher interface {
	Dispatch(ctx context.Context, job domain.ReconciliationJob) error
}

// ReportSink stores a generated monthly report.
type ReportSink interface {
	Deliver(ctx context.Context, report domain.MonthlyReport) error
}
