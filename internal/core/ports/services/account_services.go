package services

import (
	"context"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// AccountReaderSvc defines read operations for accounts. Every lookup is scoped
// to the owner; accounts of other owners are reported as not found.
type AccountReaderSvc interface {
	GetAccountByID(ctx context.Context, ownerID string, accountID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error)
	// GetAccountBalance returns the stored balance and the number of completed transactions.
	GetAccountBalance(ctx context.Context, ownerID string, accountID string) (decimal.Decimal, int, error)
}

// AccountWriterSvc defines write operations for accounts
type AccountWriterSvc interface {
	CreateAccount(ctx context.Context, ownerID string, req dto.CreateAccountRequest) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, ownerID string, accountID string) error
}

// AccountSvcFacade combines all account-related operations
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
