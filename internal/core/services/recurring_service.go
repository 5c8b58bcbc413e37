package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/SscSPs/finance_ledger/internal/middleware"
)

const recurringDescriptionPrefix = "Recurring: "

type recurringService struct {
	BaseService
	store portsrepo.LedgerStore
	// sweepMu keeps overlapping timer ticks from running two sweeps at once.
	sweepMu sync.Mutex
}

// NewRecurringService creates the recurring scheduler service.
func NewRecurringService(store portsrepo.LedgerStore, options ...ServiceOption) portssvc.RecurringSvcFacade {
	return &recurringService{
		BaseService: newBaseService(options...),
		store:       store,
	}
}

var _ portssvc.RecurringSvcFacade = (*recurringService)(nil)

func (s *recurringService) CreateRecurring(ctx context.Context, req dto.CreateRecurringRequest) (*domain.RecurringTransaction, error) {
	amount, err := positiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if !req.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unknown frequency '%s'", apperrors.ErrValidation, req.Frequency)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", apperrors.ErrValidation)
	}

	account, err := s.store.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, account.AccountID)
	}
	if req.CategoryID != nil {
		if _, err := s.store.FindCategoryByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: category %s does not exist", apperrors.ErrValidation, *req.CategoryID)
			}
			return nil, err
		}
	}

	now := s.Now()
	nextDue := req.NextDueAt
	if nextDue.IsZero() {
		nextDue = now
	}
	recurring := domain.RecurringTransaction{
		RecurringID: domain.NewID(),
		AccountID:   account.AccountID,
		Amount:      amount,
		Description: description,
		CategoryID:  req.CategoryID,
		Frequency:   req.Frequency,
		NextDueAt:   nextDue,
		IsActive:    true,
		CreatedAt:   now,
	}
	if err := s.store.SaveRecurring(ctx, recurring); err != nil {
		s.LogError(ctx, err, "Failed to save recurring definition", slog.String("account_id", account.AccountID))
		return nil, err
	}

	s.LogInfo(ctx, "Recurring definition created",
		slog.String("recurring_id", recurring.RecurringID),
		slog.String("frequency", string(recurring.Frequency)),
		slog.Time("next_due_at", recurring.NextDueAt))
	return &recurring, nil
}

func (s *recurringService) GetRecurring(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error) {
	return s.store.FindRecurringByID(ctx, recurringID)
}

func (s *recurringService) ListRecurring(ctx context.Context, accountID string) ([]domain.RecurringTransaction, error) {
	defs, err := s.store.ListRecurringByAccount(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list recurring definitions", slog.String("account_id", accountID))
		return nil, err
	}
	return defs, nil
}

func (s *recurringService) DeactivateRecurring(ctx context.Context, recurringID string) error {
	if err := s.store.DeactivateRecurring(ctx, recurringID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to deactivate recurring definition", slog.String("recurring_id", recurringID))
		}
		return err
	}
	s.LogInfo(ctx, "Recurring definition deactivated", slog.String("recurring_id", recurringID))
	return nil
}

func (s *recurringService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	due, err := s.store.ListDueRecurring(ctx, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to list due recurring definitions")
		return 0, err
	}

	processed := 0
	for _, def := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		itemCtx := middleware.WithLogger(ctx, s.GetLogger(ctx).With(slog.String("recurring_id", def.RecurringID)))
		created, err := s.materialize(itemCtx, def.RecurringID, def.AccountID, now)
		if err != nil {
			// One bad definition must not stop the sweep; it stays due and is retried next tick.
			s.LogError(itemCtx, err, "Failed to materialize recurring transaction",
				slog.String("account_id", def.AccountID))
			continue
		}
		if created {
			processed++
		}
	}

	s.LogInfo(ctx, "Recurring sweep finished",
		slog.Int("due", len(due)),
		slog.Int("processed", processed),
		slog.Time("now", now))
	return processed, nil
}

// materialize fires one definition: inserts a completed debit, applies it and
// advances the next due date, all in one atomic scope. It reports false when
// the definition was no longer due once locked.
func (s *recurringService) materialize(ctx context.Context, recurringID, accountID string, now time.Time) (bool, error) {
	var txn domain.Transaction
	var next time.Time
	created := false
	err := s.withFreshReference(ctx, func(reference string) error {
		return s.store.WithinLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			accounts, err := tx.LockAccounts(ctx, accountID)
			if err != nil {
				return err
			}
			def, err := tx.FindRecurringForUpdate(ctx, recurringID)
			if err != nil {
				return err
			}
			if !def.IsDue(now) {
				return nil
			}

			txn = domain.NewTransaction(def.AccountID, domain.DebitTxn, def.Amount, recurringDescriptionPrefix+def.Description,
				def.CategoryID, map[string]string{domain.MetaRecurringID: def.RecurringID}, now)
			txn.ReferenceNumber = reference
			if err := applyCompletion(ctx, tx, &txn, accounts, now); err != nil {
				return err
			}
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return err
			}

			next = def.Frequency.Advance(def.NextDueAt)
			if !next.After(def.NextDueAt) {
				return fmt.Errorf("%w: frequency '%s' does not advance next due date", apperrors.ErrValidation, def.Frequency)
			}
			if err := tx.UpdateRecurringNextDue(ctx, def.RecurringID, next); err != nil {
				return err
			}

			created = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	if created {
		s.LogInfo(ctx, "Recurring transaction materialized",
			slog.String("transaction_id", txn.TransactionID),
			slog.String("amount", txn.Amount.StringFixed(2)),
			slog.Time("next_due_at", next))
	}
	return created, nil
}
