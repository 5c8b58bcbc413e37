package dto

import (
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateRecurringRequest defines a recurring debit on an account.
type CreateRecurringRequest struct {
	AccountID   string           `json:"-"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description" binding:"required,max=255"`
	CategoryID  *string          `json:"categoryID"`
	Frequency   domain.Frequency `json:"frequency" binding:"required,oneof=daily weekly monthly quarterly yearly"`
	NextDueAt   time.Time        `json:"nextDueAt" binding:"required"`
}

// RecurringResponse defines the data returned for a recurring definition.
type RecurringResponse struct {
	RecurringID string           `json:"recurringID"`
	AccountID   string           `json:"accountID"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	CategoryID  *string          `json:"categoryID,omitempty"`
	Frequency   domain.Frequency `json:"frequency"`
	NextDueAt   time.Time        `json:"nextDueAt"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// ToRecurringResponse converts a definition to its DTO.
func ToRecurringResponse(r *domain.RecurringTransaction) RecurringResponse {
	return RecurringResponse{
		RecurringID: r.RecurringID,
		AccountID:   r.AccountID,
		Amount:      r.Amount,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Frequency:   r.Frequency,
		NextDueAt:   r.NextDueAt,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

// ListRecurringResponse wraps an account's recurring definitions.
type ListRecurringResponse struct {
	Recurring []RecurringResponse `json:"recurring"`
}
