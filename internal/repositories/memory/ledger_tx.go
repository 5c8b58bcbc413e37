package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

var errAlreadyLocked = errors.New("accounts already locked in this scope")

// ledgerTx buffers writes until the scope commits. Account locks are released
// only after the buffered writes have been applied.
type ledgerTx struct {
	store    *Store
	held     []chan struct{}
	locked   map[string]bool
	accounts map[string]domain.Account
	inserted map[string]domain.Transaction
	updated  map[string]domain.Transaction
	nextDue  map[string]time.Time
	order    []string // transaction IDs in insertion order
}

// WithinLedgerTx runs fn with a fresh ledgerTx and applies its writes if fn succeeds.
func (s *Store) WithinLedgerTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx := &ledgerTx{
		store:    s,
		accounts: make(map[string]domain.Account),
		inserted: make(map[string]domain.Transaction),
		updated:  make(map[string]domain.Transaction),
		nextDue:  make(map[string]time.Time),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (tx *ledgerTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		<-tx.held[i]
	}
	tx.held = nil
}

func (tx *ledgerTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Inserts were checked when buffered, but a concurrent SaveTransaction may
	// have taken a reference number since.
	for _, id := range tx.order {
		txn := tx.inserted[id]
		if _, exists := s.references[txn.ReferenceNumber]; exists {
			return fmt.Errorf("%w: reference number %s already exists", apperrors.ErrDuplicate, txn.ReferenceNumber)
		}
	}

	for id, acc := range tx.accounts {
		stored := s.accounts[id]
		stored.Balance = acc.Balance
		stored.LastUpdatedAt = acc.LastUpdatedAt
		s.accounts[id] = stored
	}
	for _, id := range tx.order {
		txn := tx.inserted[id]
		s.transactions[id] = txn
		s.references[txn.ReferenceNumber] = id
	}
	for id, txn := range tx.updated {
		s.transactions[id] = txn
	}
	for id, next := range tx.nextDue {
		r := s.recurring[id]
		r.NextDueAt = next
		s.recurring[id] = r
	}
	return nil
}

func (tx *ledgerTx) LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error) {
	if tx.locked != nil {
		return nil, errAlreadyLocked
	}

	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	tx.store.mu.RLock()
	for _, id := range ids {
		if _, ok := tx.store.accounts[id]; !ok {
			tx.store.mu.RUnlock()
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}
	tx.store.mu.RUnlock()

	for _, id := range ids {
		lock := tx.store.accountLock(id)
		select {
		case lock <- struct{}{}:
			tx.held = append(tx.held, lock)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	tx.locked = seen

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	result := make(map[string]domain.Account, len(ids))
	for _, id := range ids {
		acc := tx.store.accounts[id]
		tx.accounts[id] = acc
		result[id] = acc
	}
	return result, nil
}

func (tx *ledgerTx) FindTransactionForUpdate(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if txn, ok := tx.updated[transactionID]; ok {
		txn = cloneTransaction(txn)
		return &txn, nil
	}
	if txn, ok := tx.inserted[transactionID]; ok {
		txn = cloneTransaction(txn)
		return &txn, nil
	}
	return tx.store.FindTransactionByID(ctx, transactionID)
}

func (tx *ledgerTx) FindRecurringForUpdate(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error) {
	r, err := tx.store.FindRecurringByID(ctx, recurringID)
	if err != nil {
		return nil, err
	}
	if next, ok := tx.nextDue[recurringID]; ok {
		r.NextDueAt = next
	}
	return r, nil
}

func (tx *ledgerTx) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error {
	if !tx.locked[accountID] {
		return fmt.Errorf("account %s is not locked in this scope", accountID)
	}
	acc := tx.accounts[accountID]
	acc.Balance = balance
	acc.LastUpdatedAt = now
	tx.accounts[accountID] = acc
	return nil
}

func (tx *ledgerTx) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	if _, exists := tx.inserted[txn.TransactionID]; exists {
		return fmt.Errorf("%w: transaction with ID %s already exists", apperrors.ErrDuplicate, txn.TransactionID)
	}
	for _, buffered := range tx.inserted {
		if buffered.ReferenceNumber == txn.ReferenceNumber {
			return fmt.Errorf("%w: reference number %s already exists", apperrors.ErrDuplicate, txn.ReferenceNumber)
		}
	}
	tx.store.mu.RLock()
	err := tx.store.checkNewTransaction(txn)
	tx.store.mu.RUnlock()
	if err != nil {
		return err
	}
	tx.inserted[txn.TransactionID] = cloneTransaction(txn)
	tx.order = append(tx.order, txn.TransactionID)
	return nil
}

func (tx *ledgerTx) UpdateTransaction(ctx context.Context, txn domain.Transaction) error {
	if _, ok := tx.inserted[txn.TransactionID]; ok {
		tx.inserted[txn.TransactionID] = cloneTransaction(txn)
		return nil
	}
	current, err := tx.store.FindTransactionByID(ctx, txn.TransactionID)
	if err != nil {
		return err
	}
	// Amount, type and accounts are immutable.
	updated := *current
	updated.Status = txn.Status
	updated.ExternalPaymentID = txn.ExternalPaymentID
	updated.PaymentMethod = txn.PaymentMethod
	updated.Metadata = txn.Metadata
	updated.LastUpdatedAt = txn.LastUpdatedAt
	tx.updated[txn.TransactionID] = cloneTransaction(updated)
	return nil
}

func (tx *ledgerTx) UpdateRecurringNextDue(ctx context.Context, recurringID string, nextDueAt time.Time) error {
	if _, err := tx.store.FindRecurringByID(ctx, recurringID); err != nil {
		return err
	}
	tx.nextDue[recurringID] = nextDueAt
	return nil
}
