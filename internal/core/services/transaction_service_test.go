package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/core/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/SscSPs/finance_ledger/internal/repositories/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TransactionServiceTestSuite struct {
	suite.Suite
	store      *memory.Store
	clock      *testClock
	gateway    *MockPaymentGateway
	dispatcher *MockDispatcher
	ledger     portssvc.LedgerSvc
	service    portssvc.TransactionSvcFacade
	ctx        context.Context
}

func (suite *TransactionServiceTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.clock = newTestClock(time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))
	suite.gateway = new(MockPaymentGateway)
	suite.dispatcher = new(MockDispatcher)
	suite.ledger = services.NewLedgerService(suite.store, services.WithClock(suite.clock.Now))
	suite.service = services.NewTransactionService(suite.store, suite.ledger,
		services.WithPaymentGateway(suite.gateway),
		services.WithReconciliationDispatcher(suite.dispatcher),
		services.WithTransactionBaseOptions(services.WithClock(suite.clock.Now)),
	)
	suite.ctx = context.Background()
}

func (suite *TransactionServiceTestSuite) listAll(accountID string) []domain.Transaction {
	txns, err := suite.store.ListTransactions(suite.ctx, domain.TransactionFilter{AccountID: accountID})
	suite.Require().NoError(err)
	return txns
}

func (suite *TransactionServiceTestSuite) TestCreateTransaction_Credit() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "0")

	txn, err := suite.service.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{
		AccountID:       acc.AccountID,
		TransactionType: domain.CreditTxn,
		Amount:          dec("19.999"),
		Description:     "salary",
		Metadata:        map[string]string{"source": "payroll"},
	})
	suite.Require().NoError(err)
	suite.Equal(domain.StatusPending, txn.Status)
	suite.True(dec("20.00").Equal(txn.Amount), "amounts are rounded to two decimals")
	suite.Equal("payroll", txn.Metadata["source"])
	suite.Equal(suite.clock.Now(), txn.TransactionDate)

	byRef, err := suite.service.GetTransactionByReference(suite.ctx, txn.ReferenceNumber)
	suite.Require().NoError(err)
	suite.Equal(txn.TransactionID, byRef.TransactionID)
	suite.True(balanceOf(suite.T(), suite.store, acc.AccountID).IsZero(), "creation never moves balances")
}

func (suite *TransactionServiceTestSuite) TestCreateTransaction_DebitOverdrawRejected() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")

	txn, err := suite.service.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{
		AccountID:       acc.AccountID,
		TransactionType: domain.DebitTxn,
		Amount:          dec("1500.00"),
	})
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.Empty(suite.listAll(acc.AccountID))
	suite.True(dec("1000.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *TransactionServiceTestSuite) TestCreateTransaction_Validation() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "10")
	inactive := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "10")
	suite.Require().NoError(suite.store.DeactivateAccount(suite.ctx, inactive.AccountID, time.Now()))
	unknownCategory := "nope"

	tests := []struct {
		name    string
		req     dto.CreateTransactionRequest
		wantErr error
	}{
		{"zero amount", dto.CreateTransactionRequest{AccountID: acc.AccountID, TransactionType: domain.CreditTxn, Amount: dec("0")}, apperrors.ErrValidation},
		{"rounds to zero", dto.CreateTransactionRequest{AccountID: acc.AccountID, TransactionType: domain.CreditTxn, Amount: dec("0.001")}, apperrors.ErrValidation},
		{"negative amount", dto.CreateTransactionRequest{AccountID: acc.AccountID, TransactionType: domain.DebitTxn, Amount: dec("-5")}, apperrors.ErrValidation},
		{"transfer type", dto.CreateTransactionRequest{AccountID: acc.AccountID, TransactionType: domain.TransferTxn, Amount: dec("5")}, apperrors.ErrValidation},
		{"unknown category", dto.CreateTransactionRequest{AccountID: acc.AccountID, TransactionType: domain.DebitTxn, Amount: dec("5"), CategoryID: &unknownCategory}, apperrors.ErrValidation},
		{"inactive account", dto.CreateTransactionRequest{AccountID: inactive.AccountID, TransactionType: domain.CreditTxn, Amount: dec("5")}, apperrors.ErrValidation},
		{"unknown account", dto.CreateTransactionRequest{AccountID: "missing", TransactionType: domain.CreditTxn, Amount: dec("5")}, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.CreateTransaction(suite.ctx, tt.req)
			suite.ErrorIs(err, tt.wantErr)
		})
	}
	suite.Empty(suite.listAll(acc.AccountID))
}

func (suite *TransactionServiceTestSuite) TestCreateTransaction_RedrawsCollidingReference() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")
	taken := savePending(suite.T(), suite.store, acc.AccountID, domain.CreditTxn, "5.00")
	svc := services.NewTransactionService(suite.store, suite.ledger, services.WithTransactionBaseOptions(
		services.WithClock(suite.clock.Now),
		services.WithReferenceGenerator(referenceSequence(taken.ReferenceNumber, "TXNFRESH001")),
	))

	txn, err := svc.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{
		AccountID:       acc.AccountID,
		TransactionType: domain.CreditTxn,
		Amount:          dec("10.00"),
	})
	suite.Require().NoError(err)
	suite.Equal("TXNFRESH001", txn.ReferenceNumber)
	suite.Len(suite.listAll(acc.AccountID), 2)
}

func (suite *TransactionServiceTestSuite) TestCreateTransaction_GivesUpOnPersistentCollision() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")
	taken := savePending(suite.T(), suite.store, acc.AccountID, domain.CreditTxn, "5.00")
	svc := services.NewTransactionService(suite.store, suite.ledger, services.WithTransactionBaseOptions(
		services.WithReferenceGenerator(func() string { return taken.ReferenceNumber }),
	))

	txn, err := svc.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{
		AccountID:       acc.AccountID,
		TransactionType: domain.CreditTxn,
		Amount:          dec("10.00"),
	})
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.Len(suite.listAll(acc.AccountID), 1)
}

func (suite *TransactionServiceTestSuite) TestTransferFunds_MovesBothBalances() {
	from := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	to := openAccount(suite.T(), suite.store, "owner", domain.Savings, "USD", "5000.00")

	txn, err := suite.service.TransferFunds(suite.ctx, dto.TransferRequest{
		FromAccountID: from.AccountID,
		ToAccountID:   to.AccountID,
		Amount:        dec("200.00"),
	})
	suite.Require().NoError(err)
	suite.Equal(domain.StatusCompleted, txn.Status)
	suite.Equal(domain.TransferTxn, txn.TransactionType)
	suite.Require().NotNil(txn.CounterAccountID)
	suite.Equal(to.AccountID, *txn.CounterAccountID)
	suite.Equal("Transfer to "+to.AccountNumber, txn.Description)

	suite.True(dec("800.00").Equal(balanceOf(suite.T(), suite.store, from.AccountID)))
	suite.True(dec("5200.00").Equal(balanceOf(suite.T(), suite.store, to.AccountID)))

	stored, err := suite.service.GetTransactionByID(suite.ctx, txn.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusCompleted, stored.Status)
}

func (suite *TransactionServiceTestSuite) TestTransferFunds_RedrawsCollidingReference() {
	from := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")
	to := openAccount(suite.T(), suite.store, "owner", domain.Savings, "USD", "0")
	taken := savePending(suite.T(), suite.store, from.AccountID, domain.CreditTxn, "5.00")
	svc := services.NewTransactionService(suite.store, suite.ledger, services.WithTransactionBaseOptions(
		services.WithClock(suite.clock.Now),
		services.WithReferenceGenerator(referenceSequence(taken.ReferenceNumber, "TXNFRESH002")),
	))

	txn, err := svc.TransferFunds(suite.ctx, dto.TransferRequest{
		FromAccountID: from.AccountID,
		ToAccountID:   to.AccountID,
		Amount:        dec("30.00"),
	})
	suite.Require().NoError(err)
	suite.Equal("TXNFRESH002", txn.ReferenceNumber)
	suite.Equal(domain.StatusCompleted, txn.Status)
	// The collided attempt left no trace, so the balances moved exactly once.
	suite.True(dec("70.00").Equal(balanceOf(suite.T(), suite.store, from.AccountID)))
	suite.True(dec("30.00").Equal(balanceOf(suite.T(), suite.store, to.AccountID)))
	suite.Len(suite.listAll(from.AccountID), 2)
}

func (suite *TransactionServiceTestSuite) TestTransferFunds_Rejections() {
	from := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")
	to := openAccount(suite.T(), suite.store, "owner", domain.Savings, "USD", "0.00")
	euro := openAccount(suite.T(), suite.store, "owner", domain.Savings, "EUR", "0.00")

	_, err := suite.service.TransferFunds(suite.ctx, dto.TransferRequest{FromAccountID: from.AccountID, ToAccountID: from.AccountID, Amount: dec("10")})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.TransferFunds(suite.ctx, dto.TransferRequest{FromAccountID: from.AccountID, ToAccountID: euro.AccountID, Amount: dec("10")})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.TransferFunds(suite.ctx, dto.TransferRequest{FromAccountID: from.AccountID, ToAccountID: to.AccountID, Amount: dec("0")})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.TransferFunds(suite.ctx, dto.TransferRequest{FromAccountID: from.AccountID, ToAccountID: to.AccountID, Amount: dec("150.00")})
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	// Nothing was written by any of the rejected attempts.
	suite.True(dec("100.00").Equal(balanceOf(suite.T(), suite.store, from.AccountID)))
	suite.True(balanceOf(suite.T(), suite.store, to.AccountID).IsZero())
	suite.Empty(suite.listAll(from.AccountID))
	suite.Empty(suite.listAll(to.AccountID))
}

func (suite *TransactionServiceTestSuite) TestProcessPayment_AuthorizesAndDispatches() {
	acc := openAccount(suite.T(), suite.store, "owner-9", domain.Checking, "USD", "500.00")

	suite.gateway.On("Authorize", mock.Anything, int64(4250), "usd", map[string]string{
		"account_id": acc.AccountID,
		"owner_id":   "owner-9",
	}).Return(&domain.PaymentAuthorization{Handle: "pi_1", ClientSecret: "pi_1_secret"}, nil).Once()
	suite.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(job domain.ReconciliationJob) bool {
		return job.GatewayHandle == "pi_1" && job.TransactionID != ""
	})).Return(nil).Once()

	txn, secret, err := suite.service.ProcessPayment(suite.ctx, dto.ProcessPaymentRequest{
		AccountID:     acc.AccountID,
		OwnerID:       "owner-9",
		Amount:        dec("42.50"),
		PaymentMethod: "pm_card_visa",
		Description:   "Groceries",
	})
	suite.Require().NoError(err)
	suite.Equal("pi_1_secret", secret)
	suite.Equal(domain.StatusPending, txn.Status)
	suite.Equal(domain.DebitTxn, txn.TransactionType)
	suite.Equal("pm_card_visa", txn.PaymentMethod)
	suite.Equal("pi_1", txn.Metadata[domain.MetaPaymentIntentID])
	suite.Equal("pm_card_visa", txn.Metadata[domain.MetaPaymentMethod])
	suite.True(dec("500.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)), "balance moves only on reconciliation")

	suite.gateway.AssertExpectations(suite.T())
	suite.dispatcher.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestProcessPayment_GatewayErrorRecordsNothing() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "EUR", "500.00")
	gwErr := apperrors.NewGatewayError("authorize", errors.New("card network down"), true)
	suite.gateway.On("Authorize", mock.Anything, int64(1000), "eur", mock.Anything).Return(nil, gwErr).Once()

	txn, secret, err := suite.service.ProcessPayment(suite.ctx, dto.ProcessPaymentRequest{
		AccountID: acc.AccountID, OwnerID: "owner", Amount: dec("10"), PaymentMethod: "pm_card",
	})
	suite.Nil(txn)
	suite.Empty(secret)
	suite.ErrorIs(err, apperrors.ErrGateway)
	suite.Empty(suite.listAll(acc.AccountID))
	suite.dispatcher.AssertNotCalled(suite.T(), "Dispatch", mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestProcessPayment_DispatchFailureFailsTransaction() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "500.00")
	suite.gateway.On("Authorize", mock.Anything, int64(1000), "usd", mock.Anything).
		Return(&domain.PaymentAuthorization{Handle: "pi_2", ClientSecret: "s"}, nil).Once()
	suite.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("queue full")).Once()

	_, _, err := suite.service.ProcessPayment(suite.ctx, dto.ProcessPaymentRequest{
		AccountID: acc.AccountID, OwnerID: "owner", Amount: dec("10"), PaymentMethod: "pm_card",
	})
	suite.Require().Error(err)

	txns := suite.listAll(acc.AccountID)
	suite.Require().Len(txns, 1)
	suite.Equal(domain.StatusFailed, txns[0].Status)
	suite.Contains(txns[0].Metadata[domain.MetaError], "queue full")
}

func (suite *TransactionServiceTestSuite) TestProcessPayment_InsufficientFundsSkipsGateway() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "10.00")

	txn, secret, err := suite.service.ProcessPayment(suite.ctx, dto.ProcessPaymentRequest{
		AccountID: acc.AccountID, OwnerID: "owner", Amount: dec("500.00"), PaymentMethod: "pm_card",
	})
	suite.Nil(txn)
	suite.Empty(secret)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.Empty(suite.listAll(acc.AccountID))
	suite.True(dec("10.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
	suite.gateway.AssertNotCalled(suite.T(), "Authorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.dispatcher.AssertNotCalled(suite.T(), "Dispatch", mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestProcessPayment_CreditAccountMayGoNegative() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Credit, "USD", "0")
	suite.gateway.On("Authorize", mock.Anything, int64(50000), "usd", mock.Anything).
		Return(&domain.PaymentAuthorization{Handle: "pi_3", ClientSecret: "s"}, nil).Once()
	suite.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Once()

	txn, _, err := suite.service.ProcessPayment(suite.ctx, dto.ProcessPaymentRequest{
		AccountID: acc.AccountID, OwnerID: "owner", Amount: dec("500.00"), PaymentMethod: "pm_card",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.StatusPending, txn.Status)
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestProcessPayment_NotConfigured() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "500.00")
	bare := services.NewTransactionService(suite.store, suite.ledger)

	_, _, err := bare.ProcessPayment(suite.ctx, dto.ProcessPaymentRequest{
		AccountID: acc.AccountID, OwnerID: "owner", Amount: dec("10"), PaymentMethod: "pm_card",
	})
	suite.ErrorIs(err, apperrors.ErrInternal)
}

func (suite *TransactionServiceTestSuite) TestListTransactions_Pagination() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "0")
	created := make([]string, 5)
	for i := range created {
		suite.clock.Advance(time.Hour)
		txn, err := suite.service.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{
			AccountID: acc.AccountID, TransactionType: domain.CreditTxn, Amount: dec("1"),
		})
		suite.Require().NoError(err)
		created[i] = txn.TransactionID
	}

	var seen []string
	token := ""
	pages := 0
	for {
		page, next, err := suite.service.ListTransactions(suite.ctx, acc.AccountID, dto.ListTransactionsParams{Limit: 2, NextToken: token})
		suite.Require().NoError(err)
		pages++
		for _, txn := range page {
			seen = append(seen, txn.TransactionID)
		}
		if next == "" {
			break
		}
		token = next
	}

	suite.Equal(3, pages)
	suite.Equal([]string{created[4], created[3], created[2], created[1], created[0]}, seen, "newest first, no gaps or repeats")

	_, _, err := suite.service.ListTransactions(suite.ctx, acc.AccountID, dto.ListTransactionsParams{Limit: 2, NextToken: "%%%"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TransactionServiceTestSuite) TestListTransactions_Filters() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100")
	credit, err := suite.service.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{AccountID: acc.AccountID, TransactionType: domain.CreditTxn, Amount: dec("5")})
	suite.Require().NoError(err)
	_, err = suite.service.CreateTransaction(suite.ctx, dto.CreateTransactionRequest{AccountID: acc.AccountID, TransactionType: domain.DebitTxn, Amount: dec("5")})
	suite.Require().NoError(err)
	_, err = suite.ledger.CompleteTransaction(suite.ctx, credit.TransactionID)
	suite.Require().NoError(err)

	completed, _, err := suite.service.ListTransactions(suite.ctx, acc.AccountID, dto.ListTransactionsParams{Status: domain.StatusCompleted})
	suite.Require().NoError(err)
	suite.Require().Len(completed, 1)
	suite.Equal(credit.TransactionID, completed[0].TransactionID)

	debits, _, err := suite.service.ListTransactions(suite.ctx, acc.AccountID, dto.ListTransactionsParams{Type: domain.DebitTxn})
	suite.Require().NoError(err)
	suite.Len(debits, 1)
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}
