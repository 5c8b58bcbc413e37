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
	"github.com/SscSPs/finance_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

const defaultTransactionPageSize = 20

// minorUnitsPerMajor converts amounts to the gateway's integer minor units.
var minorUnitsPerMajor = decimal.NewFromInt(100)

// transactionService orchestrates transfers and gateway-backed payments on top of the ledger.
type transactionService struct {
	BaseService
	store      portsrepo.LedgerStore
	ledger     portssvc.LedgerSvc
	gateway    portssvc.PaymentGateway
	dispatcher portssvc.ReconciliationDispatcher
}

// TransactionServiceOption is a functional option for configuring the transaction service
type TransactionServiceOption func(*transactionService)

// WithPaymentGateway adds the external payment gateway dependency
func WithPaymentGateway(gateway portssvc.PaymentGateway) TransactionServiceOption {
	return func(s *transactionService) {
		s.gateway = gateway
	}
}

// WithReconciliationDispatcher adds the dispatcher used to hand payments to the reconciliation workers
func WithReconciliationDispatcher(dispatcher portssvc.ReconciliationDispatcher) TransactionServiceOption {
	return func(s *transactionService) {
		s.dispatcher = dispatcher
	}
}

// WithTransactionBaseOptions applies BaseService options such as WithClock
func WithTransactionBaseOptions(options ...ServiceOption) TransactionServiceOption {
	return func(s *transactionService) {
		s.BaseService = newBaseService(options...)
	}
}

// NewTransactionService creates a new transaction service with the provided options
func NewTransactionService(store portsrepo.LedgerStore, ledger portssvc.LedgerSvc, options ...TransactionServiceOption) portssvc.TransactionSvcFacade {
	svc := &transactionService{
		BaseService: newBaseService(),
		store:       store,
		ledger:      ledger,
	}

	// Apply all options
	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure transactionService implements the TransactionSvcFacade interface
var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

// positiveAmount normalises amount to two decimals and rejects anything that is not strictly positive.
func positiveAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := domain.RoundAmount(amount)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than zero, got %s", apperrors.ErrValidation, amount.String())
	}
	return rounded, nil
}

// activeAccount loads an account and rejects inactive ones.
func (s *transactionService) activeAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account", slog.String("account_id", accountID))
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, accountID)
	}
	return account, nil
}

func (s *transactionService) checkCategory(ctx context.Context, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.store.FindCategoryByID(ctx, *categoryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: category %s does not exist", apperrors.ErrValidation, *categoryID)
		}
		return err
	}
	return nil
}

func (s *transactionService) CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest) (*domain.Transaction, error) {
	amount, err := positiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	switch req.TransactionType {
	case domain.CreditTxn, domain.DebitTxn:
	case domain.TransferTxn:
		return nil, fmt.Errorf("%w: transfers must be created with TransferFunds", apperrors.ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unknown transaction type '%s'", apperrors.ErrValidation, req.TransactionType)
	}

	account, err := s.activeAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	// Fail fast; completion re-checks against the locked balance.
	if req.TransactionType == domain.DebitTxn && !account.CanDebit(amount) {
		err := fmt.Errorf("%w: account %s balance %s cannot cover %s", apperrors.ErrInsufficientFunds, account.AccountID, account.Balance.StringFixed(2), amount.StringFixed(2))
		s.LogWarn(ctx, err, "Debit rejected", slog.String("account_id", account.AccountID))
		return nil, err
	}

	txn := domain.NewTransaction(account.AccountID, req.TransactionType, amount, req.Description, req.CategoryID, req.Metadata, s.Now())
	err = s.withFreshReference(ctx, func(reference string) error {
		txn.ReferenceNumber = reference
		return s.store.SaveTransaction(ctx, txn)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to save transaction", slog.String("account_id", account.AccountID))
		return nil, err
	}

	s.LogInfo(ctx, "Transaction created",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("reference_number", txn.ReferenceNumber),
		slog.String("type", string(txn.TransactionType)),
		slog.String("amount", txn.Amount.StringFixed(2)))
	return &txn, nil
}

func (s *transactionService) TransferFunds(ctx context.Context, req dto.TransferRequest) (*domain.Transaction, error) {
	amount, err := positiveAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", apperrors.ErrValidation)
	}

	from, err := s.activeAccount(ctx, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.activeAccount(ctx, req.ToAccountID)
	if err != nil {
		return nil, err
	}
	if from.CurrencyCode != to.CurrencyCode {
		return nil, fmt.Errorf("%w: cannot transfer between %s and %s accounts", apperrors.ErrValidation, from.CurrencyCode, to.CurrencyCode)
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Transfer to " + to.AccountNumber
	}
	now := s.Now()
	pending := domain.NewTransaction(from.AccountID, domain.TransferTxn, amount, description, nil, nil, now)
	pending.CounterAccountID = &to.AccountID

	// A colliding reference aborts the whole scope, so each attempt starts from the pending copy.
	var txn domain.Transaction
	err = s.withFreshReference(ctx, func(reference string) error {
		txn = pending
		txn.ReferenceNumber = reference
		return s.store.WithinLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			accounts, err := tx.LockAccounts(ctx, txn.AccountIDs()...)
			if err != nil {
				return err
			}
			if err := applyCompletion(ctx, tx, &txn, accounts, now); err != nil {
				return err
			}
			return tx.InsertTransaction(ctx, txn)
		})
	})
	if err != nil {
		if apperrors.IsTerminal(err) {
			s.LogWarn(ctx, err, "Transfer rejected",
				slog.String("from_account_id", from.AccountID),
				slog.String("to_account_id", to.AccountID))
		} else {
			s.LogError(ctx, err, "Transfer failed",
				slog.String("from_account_id", from.AccountID),
				slog.String("to_account_id", to.AccountID))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Transfer completed",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("reference_number", txn.ReferenceNumber),
		slog.String("from_account_id", from.AccountID),
		slog.String("to_account_id", to.AccountID),
		slog.String("amount", amount.StringFixed(2)))
	return &txn, nil
}

func (s *transactionService) ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (*domain.Transaction, string, error) {
	if s.gateway == nil || s.dispatcher == nil {
		return nil, "", fmt.Errorf("%w: payment processing is not configured", apperrors.ErrInternal)
	}
	amount, err := positiveAmount(req.Amount)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, "", fmt.Errorf("%w: payment method is required", apperrors.ErrValidation)
	}
	account, err := s.activeAccount(ctx, req.AccountID)
	if err != nil {
		return nil, "", err
	}
	// Reject before the gateway charges anything.
	if !account.CanDebit(amount) {
		err := fmt.Errorf("%w: account %s balance %s cannot cover %s", apperrors.ErrInsufficientFunds, account.AccountID, account.Balance.StringFixed(2), amount.StringFixed(2))
		s.LogWarn(ctx, err, "Payment rejected", slog.String("account_id", account.AccountID))
		return nil, "", err
	}

	amountMinor := amount.Mul(minorUnitsPerMajor).IntPart()
	auth, err := s.gateway.Authorize(ctx, amountMinor, strings.ToLower(account.CurrencyCode), map[string]string{
		"account_id": account.AccountID,
		"owner_id":   req.OwnerID,
	})
	if err != nil {
		s.LogError(ctx, err, "Payment authorization failed",
			slog.String("account_id", account.AccountID),
			slog.Int64("amount_minor", amountMinor))
		return nil, "", err
	}

	txn := domain.NewTransaction(account.AccountID, domain.DebitTxn, amount, req.Description, nil, map[string]string{
		domain.MetaPaymentIntentID: auth.Handle,
		domain.MetaPaymentMethod:   req.PaymentMethod,
	}, s.Now())
	txn.PaymentMethod = req.PaymentMethod
	err = s.withFreshReference(ctx, func(reference string) error {
		txn.ReferenceNumber = reference
		return s.store.SaveTransaction(ctx, txn)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to save payment transaction",
			slog.String("account_id", account.AccountID),
			slog.String("gateway_handle", auth.Handle))
		return nil, "", err
	}

	job := domain.ReconciliationJob{TransactionID: txn.TransactionID, GatewayHandle: auth.Handle}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		s.LogError(ctx, err, "Failed to dispatch reconciliation",
			slog.String("transaction_id", txn.TransactionID),
			slog.String("gateway_handle", auth.Handle))
		if _, failErr := s.ledger.FailTransaction(ctx, txn.TransactionID, "reconciliation dispatch failed: "+err.Error()); failErr != nil {
			s.LogError(ctx, failErr, "Failed to mark undispatched payment as failed", slog.String("transaction_id", txn.TransactionID))
		}
		return nil, "", fmt.Errorf("failed to dispatch reconciliation for transaction %s: %w", txn.TransactionID, err)
	}

	s.LogInfo(ctx, "Payment authorized, awaiting reconciliation",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("gateway_handle", auth.Handle))
	return &txn, auth.ClientSecret, nil
}

func (s *transactionService) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.store.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find transaction", slog.String("transaction_id", transactionID))
		}
		return nil, err
	}
	return txn, nil
}

func (s *transactionService) GetTransactionByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	txn, err := s.store.FindTransactionByReference(ctx, referenceNumber)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find transaction by reference", slog.String("reference_number", referenceNumber))
		}
		return nil, err
	}
	return txn, nil
}

func (s *transactionService) ListTransactions(ctx context.Context, accountID string, params dto.ListTransactionsParams) ([]domain.Transaction, string, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultTransactionPageSize
	}
	filter := domain.TransactionFilter{
		AccountID: accountID,
		Status:    params.Status,
		Type:      params.Type,
		From:      params.From,
		To:        params.To,
		Limit:     limit + 1, // one extra row tells us whether another page exists
	}
	if params.NextToken != "" {
		beforeDate, beforeCreatedAt, err := pagination.DecodeToken(params.NextToken)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		filter.BeforeDate = &beforeDate
		filter.BeforeCreatedAt = &beforeCreatedAt
	}

	txns, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("account_id", accountID))
		return nil, "", err
	}

	nextToken := ""
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		nextToken = pagination.EncodeToken(last.TransactionDate, last.CreatedAt)
	}
	return txns, nextToken, nil
}
