package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
)

// DefaultGatewayTimeout bounds a single outcome query when none is configured.
const DefaultGatewayTimeout = 10 * time.Second

const paymentNotSuccessful = "payment not successful"

type reconciliationService struct {
	BaseService
	transactions portsrepo.TransactionReader
	ledger       portssvc.LedgerSvc
	gateway      portssvc.PaymentGateway
	timeout      time.Duration
}

// NewReconciliationService creates the worker logic that settles gateway-backed payments.
func NewReconciliationService(transactions portsrepo.TransactionReader, ledger portssvc.LedgerSvc, gateway portssvc.PaymentGateway, timeout time.Duration, options ...ServiceOption) portssvc.ReconciliationSvc {
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	return &reconciliationService{
		BaseService:  newBaseService(options...),
		transactions: transactions,
		ledger:       ledger,
		gateway:      gateway,
		timeout:      timeout,
	}
}

var _ portssvc.ReconciliationSvc = (*reconciliationService)(nil)

func (s *reconciliationService) Reconcile(ctx context.Context, job domain.ReconciliationJob) error {
	logArgs := []any{
		slog.String("transaction_id", job.TransactionID),
		slog.String("gateway_handle", job.GatewayHandle),
	}

	txn, err := s.transactions.FindTransactionByID(ctx, job.TransactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, err, "Dropping stale reconciliation job", logArgs...)
		} else {
			s.LogError(ctx, err, "Failed to load transaction for reconciliation", logArgs...)
		}
		return err
	}
	if txn.Status.IsTerminal() {
		s.LogDebug(ctx, "Transaction already settled, nothing to reconcile",
			append(logArgs, slog.String("status", string(txn.Status)))...)
		return nil
	}

	// The account lock is not held while waiting on the gateway.
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	outcome, err := s.gateway.QueryOutcome(queryCtx, job.GatewayHandle)
	cancel()
	if err != nil {
		s.LogError(ctx, err, "Gateway outcome query failed", logArgs...)
		if failErr := s.markFailed(ctx, job.TransactionID, err.Error()); failErr != nil {
			return failErr
		}
		var gwErr *apperrors.GatewayError
		if errors.As(err, &gwErr) && !gwErr.Transient {
			return err
		}
		// The transaction is already failed, so a retry could not change anything.
		return apperrors.NewGatewayError("query outcome", err, false)
	}

	if outcome.Status != domain.PaymentSucceeded {
		reason := paymentNotSuccessful
		if outcome.Message != "" {
			reason = fmt.Sprintf("%s: %s", paymentNotSuccessful, outcome.Message)
		}
		s.LogInfo(ctx, "Gateway reported unsuccessful payment",
			append(logArgs, slog.String("outcome", string(outcome.Status)))...)
		if failErr := s.markFailed(ctx, job.TransactionID, reason); failErr != nil {
			return failErr
		}
		return apperrors.NewGatewayError("confirm payment", fmt.Errorf("outcome %s", outcome.Status), false)
	}

	if txn.Status == domain.StatusPending {
		if _, err := s.ledger.MarkProcessing(ctx, job.TransactionID, job.GatewayHandle); err != nil {
			// A concurrent delivery may have moved it on already; completion below
			// re-checks the status under lock.
			if !errors.Is(err, apperrors.ErrInvalidStateTransition) {
				return err
			}
		}
	}

	if _, err := s.ledger.CompleteTransaction(ctx, job.TransactionID); err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			if failErr := s.markFailed(ctx, job.TransactionID, err.Error()); failErr != nil {
				return failErr
			}
			return err
		}
		if errors.Is(err, apperrors.ErrInvalidStateTransition) {
			// Settled (failed or cancelled) by someone else in the meantime.
			s.LogInfo(ctx, "Transaction settled concurrently, skipping completion", logArgs...)
			return nil
		}
		return err
	}

	s.LogInfo(ctx, "Payment reconciled", logArgs...)
	return nil
}

// markFailed fails the transaction. A transaction that already reached a
// terminal status is left alone. Any other error is returned so the job is retried.
func (s *reconciliationService) markFailed(ctx context.Context, transactionID string, reason string) error {
	_, err := s.ledger.FailTransaction(ctx, transactionID, reason)
	if err == nil || errors.Is(err, apperrors.ErrInvalidStateTransition) {
		return nil
	}
	s.LogError(ctx, err, "Failed to mark transaction as failed", slog.String("transaction_id", transactionID))
	return err
}

// PendingJobs rebuilds the jobs of unsettled gateway payments, so a restarted
// process can hand them to the workers again.
func (s *reconciliationService) PendingJobs(ctx context.Context) ([]domain.ReconciliationJob, error) {
	pending := []domain.ReconciliationJob{}
	for _, status := range []domain.TransactionStatus{domain.StatusPending, domain.StatusProcessing} {
		txns, err := s.transactions.ListTransactions(ctx, domain.TransactionFilter{Status: status, Type: domain.DebitTxn})
		if err != nil {
			s.LogError(ctx, err, "Failed to list unsettled payments", slog.String("status", string(status)))
			return nil, err
		}
		for _, txn := range txns {
			if handle := txn.Metadata[domain.MetaPaymentIntentID]; handle != "" {
				pending = append(pending, domain.ReconciliationJob{TransactionID: txn.TransactionID, GatewayHandle: handle})
			}
		}
	}
	return pending, nil
}
