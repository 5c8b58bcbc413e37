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

// ledgerService is the transaction state machine.
type ledgerService struct {
	BaseService
	store portsrepo.LedgerStore
}

// NewLedgerService creates the transaction state machine over the ledger store.
func NewLedgerService(store portsrepo.LedgerStore, options ...ServiceOption) portssvc.LedgerSvc {
	return &ledgerService{
		BaseService: newBaseService(options...),
		store:       store,
	}
}

// Ensure ledgerService implements the LedgerSvc interface
var _ portssvc.LedgerSvc = (*ledgerService)(nil)

// applyCompletion applies txn's balance effect inside tx and marks it completed.
// accounts must hold every account in txn.AccountIDs(), locked by tx. The caller
// persists txn afterwards (InsertTransaction for new records, UpdateTransaction otherwise).
// On error nothing has been written through tx.
func applyCompletion(ctx context.Context, tx portsrepo.LedgerTx, txn *domain.Transaction, accounts map[string]domain.Account, now time.Time) error {
	if !txn.Status.CanTransitionTo(domain.StatusCompleted) {
		return fmt.Errorf("%w: cannot complete transaction %s in status %s", apperrors.ErrInvalidStateTransition, txn.TransactionID, txn.Status)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction %s has non-positive amount %s", apperrors.ErrValidation, txn.TransactionID, txn.Amount)
	}

	owner, ok := accounts[txn.AccountID]
	if !ok {
		return fmt.Errorf("%w: account %s not locked for transaction %s", apperrors.ErrInternal, txn.AccountID, txn.TransactionID)
	}

	changed := []domain.Account{}
	switch txn.TransactionType {
	case domain.CreditTxn:
		owner.Balance = owner.Balance.Add(txn.Amount)
		changed = append(changed, owner)
	case domain.DebitTxn:
		if !owner.CanDebit(txn.Amount) {
			return fmt.Errorf("%w: account %s balance %s cannot cover %s", apperrors.ErrInsufficientFunds, owner.AccountID, owner.Balance.StringFixed(2), txn.Amount.StringFixed(2))
		}
		owner.Balance = owner.Balance.Sub(txn.Amount)
		changed = append(changed, owner)
	case domain.TransferTxn:
		if txn.CounterAccountID == nil || *txn.CounterAccountID == "" || *txn.CounterAccountID == txn.AccountID {
			return fmt.Errorf("%w: transfer %s needs a distinct counter account", apperrors.ErrValidation, txn.TransactionID)
		}
		counter, ok := accounts[*txn.CounterAccountID]
		if !ok {
			return fmt.Errorf("%w: account %s not locked for transaction %s", apperrors.ErrInternal, *txn.CounterAccountID, txn.TransactionID)
		}
		if !owner.CanDebit(txn.Amount) {
			return fmt.Errorf("%w: account %s balance %s cannot cover %s", apperrors.ErrInsufficientFunds, owner.AccountID, owner.Balance.StringFixed(2), txn.Amount.StringFixed(2))
		}
		owner.Balance = owner.Balance.Sub(txn.Amount)
		counter.Balance = counter.Balance.Add(txn.Amount)
		changed = append(changed, owner, counter)
	default:
		return fmt.Errorf("%w: unknown transaction type '%s'", apperrors.ErrValidation, txn.TransactionType)
	}

	for _, acc := range changed {
		if err := tx.UpdateAccountBalance(ctx, acc.AccountID, acc.Balance, now); err != nil {
			return err
		}
		accounts[acc.AccountID] = acc
	}

	txn.Status = domain.StatusCompleted
	txn.LastUpdatedAt = now
	return nil
}

func (s *ledgerService) CompleteTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	snapshot, err := s.store.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load transaction for completion", slog.String("transaction_id", transactionID))
		}
		return nil, err
	}
	if snapshot.Status == domain.StatusCompleted {
		s.LogDebug(ctx, "Transaction already completed", slog.String("transaction_id", transactionID))
		return snapshot, nil
	}

	var result *domain.Transaction
	alreadyCompleted := false
	err = s.store.WithinLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		accounts, err := tx.LockAccounts(ctx, snapshot.AccountIDs()...)
		if err != nil {
			return err
		}
		txn, err := tx.FindTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		// Another completion may have committed while we waited for the locks.
		if txn.Status == domain.StatusCompleted {
			alreadyCompleted = true
			result = txn
			return nil
		}
		if err := applyCompletion(ctx, tx, txn, accounts, s.Now()); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, *txn); err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		if apperrors.IsTerminal(err) {
			s.LogWarn(ctx, err, "Transaction completion rejected", slog.String("transaction_id", transactionID))
		} else {
			s.LogError(ctx, err, "Failed to complete transaction", slog.String("transaction_id", transactionID))
		}
		return nil, err
	}

	if alreadyCompleted {
		s.LogDebug(ctx, "Transaction completed concurrently", slog.String("transaction_id", transactionID))
	} else {
		s.LogInfo(ctx, "Transaction completed",
			slog.String("transaction_id", transactionID),
			slog.String("reference_number", result.ReferenceNumber),
			slog.String("type", string(result.TransactionType)),
			slog.String("amount", result.Amount.StringFixed(2)))
	}
	return result, nil
}

// transition moves a transaction to a non-completed status. It never touches
// balances, but still locks the transaction's accounts so that it serializes
// with a concurrent completion.
func (s *ledgerService) transition(ctx context.Context, transactionID string, target domain.TransactionStatus, mutate func(*domain.Transaction)) (*domain.Transaction, error) {
	snapshot, err := s.store.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load transaction for status change", slog.String("transaction_id", transactionID))
		}
		return nil, err
	}

	var result *domain.Transaction
	err = s.store.WithinLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if _, err := tx.LockAccounts(ctx, snapshot.AccountIDs()...); err != nil {
			return err
		}
		txn, err := tx.FindTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if !txn.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: cannot move transaction %s from %s to %s", apperrors.ErrInvalidStateTransition, transactionID, txn.Status, target)
		}
		txn.Status = target
		txn.LastUpdatedAt = s.Now()
		if mutate != nil {
			mutate(txn)
		}
		if err := tx.UpdateTransaction(ctx, *txn); err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		if apperrors.IsTerminal(err) {
			s.LogWarn(ctx, err, "Transaction status change rejected",
				slog.String("transaction_id", transactionID),
				slog.String("target_status", string(target)))
		} else {
			s.LogError(ctx, err, "Failed to change transaction status",
				slog.String("transaction_id", transactionID),
				slog.String("target_status", string(target)))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Transaction status changed",
		slog.String("transaction_id", transactionID),
		slog.String("status", string(target)))
	return result, nil
}

func (s *ledgerService) FailTransaction(ctx context.Context, transactionID string, reason string) (*domain.Transaction, error) {
	return s.transition(ctx, transactionID, domain.StatusFailed, func(txn *domain.Transaction) {
		txn.SetMeta(domain.MetaError, reason)
	})
}

func (s *ledgerService) CancelTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.transition(ctx, transactionID, domain.StatusCancelled, nil)
}

func (s *ledgerService) MarkProcessing(ctx context.Context, transactionID string, externalPaymentID string) (*domain.Transaction, error) {
	return s.transition(ctx, transactionID, domain.StatusProcessing, func(txn *domain.Transaction) {
		txn.ExternalPaymentID = externalPaymentID
	})
}
