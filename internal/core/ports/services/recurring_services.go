package services

import (
	"context"
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/SscSPs/finance_ledger/internal/dto"
)

// RecurringSvcFacade manages recurring definitions and materializes due ones
type RecurringSvcFacade interface {
	CreateRecurring(ctx context.Context, req dto.CreateRecurringRequest) (*domain.RecurringTransaction, error)
	GetRecurring(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error)
	ListRecurring(ctx context.Context, accountID string) ([]domain.RecurringTransaction, error)
	DeactivateRecurring(ctx context.Context, recurringID string) error

	// ProcessDue materializes every definition due at now and returns how many succeeded.
	ProcessDue(ctx context.Context, now time.Time) (int, error)
}
