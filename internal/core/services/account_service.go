package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// accountNumberAttempts bounds retries when a generated account number collides.
const accountNumberAttempts = 3

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo     portsrepo.AccountRepository
	transactionRepo portsrepo.TransactionReader
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo portsrepo.AccountRepository, transactionRepo portsrepo.TransactionReader, options ...ServiceOption) portssvc.AccountSvcFacade {
	return &accountService{
		BaseService:     newBaseService(options...),
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, ownerID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: account name is required", apperrors.ErrValidation)
	}
	if !req.AccountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type '%s'", apperrors.ErrValidation, req.AccountType)
	}
	if req.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance cannot be negative", apperrors.ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.CurrencyCode))

	var account domain.Account
	var err error
	for attempt := 1; attempt <= accountNumberAttempts; attempt++ {
		account = domain.NewAccount(ownerID, strings.TrimSpace(req.Name), req.AccountType, req.AccountNumber, currency, req.OpeningBalance, s.Now())
		err = s.accountRepo.SaveAccount(ctx, account)
		// Only generated numbers are worth another attempt.
		if err == nil || !errors.Is(err, apperrors.ErrDuplicate) || req.AccountNumber != "" {
			break
		}
		s.LogDebug(ctx, "Generated account number collided, retrying",
			slog.String("account_number", account.AccountNumber),
			slog.Int("attempt", attempt))
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			s.LogWarn(ctx, err, "Account number already in use", slog.String("owner_id", ownerID))
		} else {
			s.LogError(ctx, err, "Failed to save account", slog.String("owner_id", ownerID))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("account_number", account.AccountNumber),
		slog.String("owner_id", ownerID))
	return &account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, ownerID string, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by ID",
				slog.String("account_id", accountID))
		}
		return nil, err
	}

	// Return NotFound to obscure existence from other owners
	if account.OwnerID != ownerID {
		s.LogDebug(ctx, "Account found but belongs to a different owner",
			slog.String("account_id", accountID),
			slog.String("requested_by", ownerID))
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to list accounts for owner %s: %w", ownerID, err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}

	s.LogDebug(ctx, "Accounts listed successfully",
		slog.Int("count", len(accounts)),
		slog.String("owner_id", ownerID))
	return accounts, nil
}

func (s *accountService) DeactivateAccount(ctx context.Context, ownerID string, accountID string) error {
	if _, err := s.GetAccountByID(ctx, ownerID, accountID); err != nil {
		return err
	}

	if err := s.accountRepo.DeactivateAccount(ctx, accountID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to deactivate account", slog.String("account_id", accountID))
		return err
	}

	s.LogInfo(ctx, "Account deactivated successfully",
		slog.String("account_id", accountID),
		slog.String("owner_id", ownerID))
	return nil
}

func (s *accountService) GetAccountBalance(ctx context.Context, ownerID string, accountID string) (decimal.Decimal, int, error) {
	account, err := s.GetAccountByID(ctx, ownerID, accountID)
	if err != nil {
		return decimal.Zero, 0, err
	}

	count, err := s.transactionRepo.CountCompletedTransactions(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to count completed transactions", slog.String("account_id", accountID))
		return decimal.Zero, 0, err
	}

	// The stored balance is authoritative; it is never recomputed here.
	return account.Balance, count, nil
}
