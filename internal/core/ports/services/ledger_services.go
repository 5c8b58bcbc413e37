package services

import (
	"context"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
)

// LedgerSvc is the transaction state machine: the only path by which a
// transaction changes status or an account balance changes.
type LedgerSvc interface {
	// CompleteTransaction applies the transaction's effect to the balances it
	// touches and marks it completed. Completing an already completed
	// transaction is a no-op that returns it unchanged. On insufficient funds
	// nothing is persisted and the status is left as it was.
	CompleteTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FailTransaction marks a pending or processing transaction failed and records reason under the "error" metadata key.
	FailTransaction(ctx context.Context, transactionID string, reason string) (*domain.Transaction, error)

	// CancelTransaction marks a pending or processing transaction cancelled.
	CancelTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// MarkProcessing moves a pending transaction to processing and records the gateway handle.
	MarkProcessing(ctx context.Context, transactionID string, externalPaymentID string) (*domain.Transaction, error)
}
