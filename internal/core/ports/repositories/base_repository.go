package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerTx is the atomic read-modify-write scope of the Ledger Store. Every
// balance mutation happens inside one. Reads through a LedgerTx see the writes
// already made within it; nothing is visible to others until the scope commits.
type LedgerTx interface {
	// LockAccounts acquires exclusive locks on the given accounts in ascending
	// account ID order and returns their current state. Locks are held until the
	// scope ends. All accounts a scope needs must be requested in one call.
	LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error)

	// FindTransactionForUpdate re-reads a transaction under lock.
	FindTransactionForUpdate(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindRecurringForUpdate re-reads a recurring definition under lock.
	FindRecurringForUpdate(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error)

	// UpdateAccountBalance writes the new balance of a locked account.
	UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error

	// InsertTransaction persists a new transaction record.
	InsertTransaction(ctx context.Context, txn domain.Transaction) error

	// UpdateTransaction persists status, external payment fields and metadata.
	// Amount, type and accounts are never rewritten.
	UpdateTransaction(ctx context.Context, txn domain.Transaction) error

	// UpdateRecurringNextDue moves a definition's next due timestamp.
	UpdateRecurringNextDue(ctx context.Context, recurringID string, nextDueAt time.Time) error
}

// TransactionManager runs fn inside an atomic scope. If fn returns an error the
// scope is rolled back and no write made through it persists.
type TransactionManager interface {
	WithinLedgerTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
