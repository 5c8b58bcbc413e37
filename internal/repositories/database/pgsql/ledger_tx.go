package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var errAlreadyLocked = errors.New("accounts already locked in this ledger transaction")

// ledgerTx is one database transaction. Row locks taken by LockAccounts are
// released by Postgres at commit or rollback.
type ledgerTx struct {
	tx     pgx.Tx
	locked map[string]bool
}

var _ portsrepo.LedgerTx = (*ledgerTx)(nil)

// WithinLedgerTx runs fn inside a database transaction, committing only if fn succeeds.
func (s *Store) WithinLedgerTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}
	return s.Commit(ctx, tx)
}

// LockAccounts locks rows in ascending account ID order so that two scopes
// touching the same pair of accounts can never deadlock.
func (l *ledgerTx) LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error) {
	if l.locked != nil {
		return nil, errAlreadyLocked
	}
	seen := make(map[string]bool, len(accountIDs))
	ids := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) ORDER BY account_id FOR UPDATE;`
	rows, err := l.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Account, len(ids))
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locked account: %w", err)
		}
		result[acc.AccountID] = *acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}
	l.locked = seen
	return result, nil
}

func (l *ledgerTx) FindTransactionForUpdate(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1 FOR UPDATE;`
	txn, err := scanTransaction(l.tx.QueryRow(ctx, query, transactionID))
	if err != nil {
		return nil, mapReadError(err, "transaction "+transactionID)
	}
	return txn, nil
}

func (l *ledgerTx) FindRecurringForUpdate(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE recurring_id = $1 FOR UPDATE;`
	r, err := scanRecurring(l.tx.QueryRow(ctx, query, recurringID))
	if err != nil {
		return nil, mapReadError(err, "recurring definition "+recurringID)
	}
	return r, nil
}

func (l *ledgerTx) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error {
	if !l.locked[accountID] {
		return fmt.Errorf("account %s is not locked in this scope", accountID)
	}
	_, err := l.tx.Exec(ctx, `UPDATE accounts SET balance = $2, last_updated_at = $3 WHERE account_id = $1;`, accountID, balance, now)
	if err != nil {
		return mapWriteError(err, "balance of account "+accountID)
	}
	return nil
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	return insertTransaction(ctx, l.tx, txn)
}

func (l *ledgerTx) UpdateTransaction(ctx context.Context, txn domain.Transaction) error {
	metadata, err := encodeMetadata(txn.Metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE transactions
		SET status = $2, external_payment_id = $3, payment_method = $4, metadata = $5, last_updated_at = $6
		WHERE transaction_id = $1;
	`
	tag, err := l.tx.Exec(ctx, query, txn.TransactionID, txn.Status, txn.ExternalPaymentID, txn.PaymentMethod, metadata, txn.LastUpdatedAt)
	if err != nil {
		return mapWriteError(err, "transaction "+txn.TransactionID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, txn.TransactionID)
	}
	return nil
}

func (l *ledgerTx) UpdateRecurringNextDue(ctx context.Context, recurringID string, nextDueAt time.Time) error {
	tag, err := l.tx.Exec(ctx, `UPDATE recurring_transactions SET next_due_at = $2 WHERE recurring_id = $1;`, recurringID, nextDueAt)
	if err != nil {
		return mapWriteError(err, "recurring definition "+recurringID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: recurring definition %s", apperrors.ErrNotFound, recurringID)
	}
	return nil
}
