package repositories

import (
	"context"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
)

// TransactionReader defines read operations for transaction data
type TransactionReader interface {
	// FindTransactionByID retrieves a transaction by storage key.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionByReference retrieves a transaction by its reference number.
	FindTransactionByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error)

	// ListTransactions retrieves transactions matching filter ordered by
	// transaction date then creation time, newest first.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)

	// CountCompletedTransactions counts completed transactions owned by an account.
	CountCompletedTransactions(ctx context.Context, accountID string) (int, error)
}

// TransactionWriter defines writes that never touch balances.
type TransactionWriter interface {
	// SaveTransaction persists a new pending transaction.
	SaveTransaction(ctx context.Context, txn domain.Transaction) error
}

// TransactionRepository combines transaction reads and writes.
type TransactionRepository interface {
	TransactionReader
	TransactionWriter
}
