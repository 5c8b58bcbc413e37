package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
)

// RecurringRepository defines persistence operations for recurring definitions
type RecurringRepository interface {
	SaveRecurring(ctx context.Context, recurring domain.RecurringTransaction) error
	FindRecurringByID(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error)
	ListRecurringByAccount(ctx context.Context, accountID string) ([]domain.RecurringTransaction, error)
	// ListDueRecurring returns active definitions whose next due time is at or before now.
	ListDueRecurring(ctx context.Context, now time.Time) ([]domain.RecurringTransaction, error)
	DeactivateRecurring(ctx context.Context, recurringID string) error
}
