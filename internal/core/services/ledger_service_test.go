package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/SscSPs/finance_ledger/internal/core/services"
	"github.com/SscSPs/finance_ledger/internal/repositories/memory"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	store  *memory.Store
	ledger portssvc.LedgerSvc
	ctx    context.Context
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.ledger = services.NewLedgerService(suite.store)
	suite.ctx = context.Background()
}

func (suite *LedgerServiceTestSuite) TestCompleteCredit_IsIdempotent() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	txn := savePending(suite.T(), suite.store, acc.AccountID, domain.CreditTxn, "200.00")

	completed, err := suite.ledger.CompleteTransaction(suite.ctx, txn.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusCompleted, completed.Status)
	suite.True(dec("1200.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))

	again, err := suite.ledger.CompleteTransaction(suite.ctx, txn.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusCompleted, again.Status)
	suite.True(dec("1200.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)), "second completion must not move the balance")
}

func (suite *LedgerServiceTestSuite) TestCompleteDebit_InsufficientFundsLeavesStateUnchanged() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	txn := savePending(suite.T(), suite.store, acc.AccountID, domain.DebitTxn, "1500.00")

	_, err := suite.ledger.CompleteTransaction(suite.ctx, txn.TransactionID)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	stored, err := suite.store.FindTransactionByID(suite.ctx, txn.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusPending, stored.Status)
	suite.True(dec("1000.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *LedgerServiceTestSuite) TestCompleteDebit_NonCheckingMayGoNegative() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Credit, "USD", "0.00")
	txn := savePending(suite.T(), suite.store, acc.AccountID, domain.DebitTxn, "75.50")

	_, err := suite.ledger.CompleteTransaction(suite.ctx, txn.TransactionID)
	suite.Require().NoError(err)
	suite.True(dec("-75.50").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *LedgerServiceTestSuite) TestTerminalStatusesRejectTransitions() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")

	failed := savePending(suite.T(), suite.store, acc.AccountID, domain.CreditTxn, "10.00")
	got, err := suite.ledger.FailTransaction(suite.ctx, failed.TransactionID, "card declined")
	suite.Require().NoError(err)
	suite.Equal(domain.StatusFailed, got.Status)
	suite.Equal("card declined", got.Metadata[domain.MetaError])

	_, err = suite.ledger.CompleteTransaction(suite.ctx, failed.TransactionID)
	suite.ErrorIs(err, apperrors.ErrInvalidStateTransition)
	_, err = suite.ledger.CancelTransaction(suite.ctx, failed.TransactionID)
	suite.ErrorIs(err, apperrors.ErrInvalidStateTransition)

	completed := savePending(suite.T(), suite.store, acc.AccountID, domain.CreditTxn, "10.00")
	_, err = suite.ledger.CompleteTransaction(suite.ctx, completed.TransactionID)
	suite.Require().NoError(err)
	_, err = suite.ledger.CancelTransaction(suite.ctx, completed.TransactionID)
	suite.ErrorIs(err, apperrors.ErrInvalidStateTransition)
	_, err = suite.ledger.FailTransaction(suite.ctx, completed.TransactionID, "too late")
	suite.ErrorIs(err, apperrors.ErrInvalidStateTransition)

	suite.True(dec("110.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *LedgerServiceTestSuite) TestMarkProcessingThenComplete() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")
	txn := savePending(suite.T(), suite.store, acc.AccountID, domain.DebitTxn, "40.00")

	processing, err := suite.ledger.MarkProcessing(suite.ctx, txn.TransactionID, "pi_123")
	suite.Require().NoError(err)
	suite.Equal(domain.StatusProcessing, processing.Status)
	suite.Equal("pi_123", processing.ExternalPaymentID)

	_, err = suite.ledger.MarkProcessing(suite.ctx, txn.TransactionID, "pi_123")
	suite.ErrorIs(err, apperrors.ErrInvalidStateTransition, "processing cannot re-enter processing")

	completed, err := suite.ledger.CompleteTransaction(suite.ctx, txn.TransactionID)
	suite.Require().NoError(err)
	suite.Equal("pi_123", completed.ExternalPaymentID)
	suite.True(dec("60.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *LedgerServiceTestSuite) TestCancelPending() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")
	txn := savePending(suite.T(), suite.store, acc.AccountID, domain.DebitTxn, "40.00")

	cancelled, err := suite.ledger.CancelTransaction(suite.ctx, txn.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusCancelled, cancelled.Status)
	suite.True(dec("100.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *LedgerServiceTestSuite) TestUnknownTransaction() {
	_, err := suite.ledger.CompleteTransaction(suite.ctx, "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
	_, err = suite.ledger.FailTransaction(suite.ctx, "missing", "x")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestConcurrentCompletionAppliesOnce() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "0.00")
	txn := savePending(suite.T(), suite.store, acc.AccountID, domain.CreditTxn, "25.00")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.ledger.CompleteTransaction(suite.ctx, txn.TransactionID)
			suite.NoError(err)
		}()
	}
	wg.Wait()

	suite.True(dec("25.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *LedgerServiceTestSuite) TestConcurrentDebitsNeverOverdraw() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "100.00")
	pending := make([]domain.Transaction, 10)
	for i := range pending {
		pending[i] = savePending(suite.T(), suite.store, acc.AccountID, domain.DebitTxn, "20.00")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0
	for _, txn := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := suite.ledger.CompleteTransaction(suite.ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperrors.IsTerminal(err):
				suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
				insufficient++
			default:
				suite.Fail("unexpected error", err.Error())
			}
		}(txn.TransactionID)
	}
	wg.Wait()

	suite.Equal(5, succeeded)
	suite.Equal(5, insufficient)
	suite.True(balanceOf(suite.T(), suite.store, acc.AccountID).IsZero())
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
