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
	"github.com/SscSPs/finance_ledger/internal/repositories/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ReconciliationServiceTestSuite struct {
	suite.Suite
	store      *memory.Store
	gateway    *MockPaymentGateway
	ledger     portssvc.LedgerSvc
	reconciler portssvc.ReconciliationSvc
	ctx        context.Context
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.gateway = new(MockPaymentGateway)
	suite.ledger = services.NewLedgerService(suite.store)
	suite.reconciler = services.NewReconciliationService(suite.store, suite.ledger, suite.gateway, 50*time.Millisecond)
	suite.ctx = context.Background()
}

// pendingPayment records a pending debit the way ProcessPayment leaves it.
func (suite *ReconciliationServiceTestSuite) pendingPayment(accountID, amount, handle string) domain.ReconciliationJob {
	txn := domain.NewTransaction(accountID, domain.DebitTxn, dec(amount), "card payment", nil, map[string]string{
		domain.MetaPaymentIntentID: handle,
		domain.MetaPaymentMethod:   "pm_card",
	}, time.Now())
	txn.PaymentMethod = "pm_card"
	suite.Require().NoError(suite.store.SaveTransaction(suite.ctx, txn))
	return domain.ReconciliationJob{TransactionID: txn.TransactionID, GatewayHandle: handle}
}

func (suite *ReconciliationServiceTestSuite) stored(id string) *domain.Transaction {
	txn, err := suite.store.FindTransactionByID(suite.ctx, id)
	suite.Require().NoError(err)
	return txn
}

func (suite *ReconciliationServiceTestSuite) TestSucceededOutcomeCompletes() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	job := suite.pendingPayment(acc.AccountID, "100.00", "pi_ok")
	suite.gateway.On("QueryOutcome", mock.Anything, "pi_ok").
		Return(&domain.PaymentOutcome{Status: domain.PaymentSucceeded, PaymentMethod: "pm_card"}, nil).Once()

	suite.Require().NoError(suite.reconciler.Reconcile(suite.ctx, job))

	txn := suite.stored(job.TransactionID)
	suite.Equal(domain.StatusCompleted, txn.Status)
	suite.Equal("pi_ok", txn.ExternalPaymentID)
	suite.True(dec("900.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *ReconciliationServiceTestSuite) TestDuplicateDeliveryIsNoOp() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	job := suite.pendingPayment(acc.AccountID, "100.00", "pi_dup")
	suite.gateway.On("QueryOutcome", mock.Anything, "pi_dup").
		Return(&domain.PaymentOutcome{Status: domain.PaymentSucceeded}, nil).Once()

	suite.Require().NoError(suite.reconciler.Reconcile(suite.ctx, job))
	suite.Require().NoError(suite.reconciler.Reconcile(suite.ctx, job))

	suite.True(dec("900.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
	suite.gateway.AssertNumberOfCalls(suite.T(), "QueryOutcome", 1)
}

func (suite *ReconciliationServiceTestSuite) TestFailedOutcomeFailsTransaction() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	job := suite.pendingPayment(acc.AccountID, "100.00", "pi_declined")
	suite.gateway.On("QueryOutcome", mock.Anything, "pi_declined").
		Return(&domain.PaymentOutcome{Status: domain.PaymentFailed, Message: "card_declined"}, nil).Once()

	err := suite.reconciler.Reconcile(suite.ctx, job)
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrGateway)
	suite.True(apperrors.IsTerminal(err), "a declined payment must not be retried")

	txn := suite.stored(job.TransactionID)
	suite.Equal(domain.StatusFailed, txn.Status)
	suite.Equal("payment not successful: card_declined", txn.Metadata[domain.MetaError])
	suite.True(dec("1000.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *ReconciliationServiceTestSuite) TestPendingMethodOutcomeFailsTransaction() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	job := suite.pendingPayment(acc.AccountID, "100.00", "pi_waiting")
	suite.gateway.On("QueryOutcome", mock.Anything, "pi_waiting").
		Return(&domain.PaymentOutcome{Status: domain.PaymentPendingMethod}, nil).Once()

	suite.Error(suite.reconciler.Reconcile(suite.ctx, job))
	txn := suite.stored(job.TransactionID)
	suite.Equal(domain.StatusFailed, txn.Status)
	suite.Equal("payment not successful", txn.Metadata[domain.MetaError])
}

func (suite *ReconciliationServiceTestSuite) TestGatewayTimeoutFailsTransaction() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	job := suite.pendingPayment(acc.AccountID, "100.00", "pi_slow")
	suite.gateway.On("QueryOutcome", mock.Anything, "pi_slow").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	start := time.Now()
	err := suite.reconciler.Reconcile(suite.ctx, job)
	suite.Less(time.Since(start), 5*time.Second, "the gateway query must be bounded")
	suite.Require().Error(err)
	suite.False(apperrors.IsRetryable(err))

	txn := suite.stored(job.TransactionID)
	suite.Equal(domain.StatusFailed, txn.Status)
	suite.Contains(txn.Metadata[domain.MetaError], context.DeadlineExceeded.Error())
	suite.True(dec("1000.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *ReconciliationServiceTestSuite) TestUnknownTransactionIsTerminal() {
	err := suite.reconciler.Reconcile(suite.ctx, domain.ReconciliationJob{TransactionID: "missing", GatewayHandle: "pi_x"})
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.True(apperrors.IsTerminal(err))
	suite.gateway.AssertNotCalled(suite.T(), "QueryOutcome", mock.Anything, mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestInsufficientFundsAtSettlement() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "50.00")
	job := suite.pendingPayment(acc.AccountID, "100.00", "pi_short")
	suite.gateway.On("QueryOutcome", mock.Anything, "pi_short").
		Return(&domain.PaymentOutcome{Status: domain.PaymentSucceeded}, nil).Once()

	err := suite.reconciler.Reconcile(suite.ctx, job)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)

	txn := suite.stored(job.TransactionID)
	suite.Equal(domain.StatusFailed, txn.Status)
	suite.True(dec("50.00").Equal(balanceOf(suite.T(), suite.store, acc.AccountID)))
}

func (suite *ReconciliationServiceTestSuite) TestCancelledBeforeReconcileIsLeftAlone() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "500.00")
	job := suite.pendingPayment(acc.AccountID, "100.00", "pi_cancel")
	_, err := suite.ledger.CancelTransaction(suite.ctx, job.TransactionID)
	suite.Require().NoError(err)

	suite.NoError(suite.reconciler.Reconcile(suite.ctx, job))
	suite.Equal(domain.StatusCancelled, suite.stored(job.TransactionID).Status)
	suite.gateway.AssertNotCalled(suite.T(), "QueryOutcome", mock.Anything, mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestTransientQueryErrorStillFailsTransaction() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "500.00")
	job := suite.pendingPayment(acc.AccountID, "10.00", "pi_flaky")
	suite.gateway.On("QueryOutcome", mock.Anything, "pi_flaky").
		Return(nil, apperrors.NewGatewayError("query outcome", errors.New("connection reset"), true)).Once()

	err := suite.reconciler.Reconcile(suite.ctx, job)
	suite.ErrorIs(err, apperrors.ErrGateway)
	suite.True(apperrors.IsTerminal(err), "the transaction is already failed, a retry cannot change it")
	suite.Equal(domain.StatusFailed, suite.stored(job.TransactionID).Status)
}

func (suite *ReconciliationServiceTestSuite) TestPendingJobsListsUnsettledPayments() {
	acc := openAccount(suite.T(), suite.store, "owner", domain.Checking, "USD", "1000.00")
	waiting := suite.pendingPayment(acc.AccountID, "10.00", "pi_wait")
	processing := suite.pendingPayment(acc.AccountID, "20.00", "pi_proc")
	_, err := suite.ledger.MarkProcessing(suite.ctx, processing.TransactionID, "pi_proc")
	suite.Require().NoError(err)
	settled := suite.pendingPayment(acc.AccountID, "30.00", "pi_done")
	_, err = suite.ledger.CompleteTransaction(suite.ctx, settled.TransactionID)
	suite.Require().NoError(err)
	// A plain debit has no gateway handle to reconcile.
	savePending(suite.T(), suite.store, acc.AccountID, domain.DebitTxn, "5.00")

	jobs, err := suite.reconciler.PendingJobs(suite.ctx)
	suite.Require().NoError(err)
	suite.ElementsMatch([]domain.ReconciliationJob{waiting, processing}, jobs)
}

func TestReconciliationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
