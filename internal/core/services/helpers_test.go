package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/SscSPs/finance_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock PaymentGateway ---
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Authorize(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*domain.PaymentAuthorization, error) {
	args := m.Called(ctx, amountMinor, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentAuthorization), args.Error(1)
}

func (m *MockPaymentGateway) QueryOutcome(ctx context.Context, handle string) (*domain.PaymentOutcome, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentOutcome), args.Error(1)
}

// --- Mock ReconciliationDispatcher ---
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, job domain.ReconciliationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// --- Mock ReportSink ---
type MockReportSink struct {
	mock.Mock
}

func (m *MockReportSink) Deliver(ctx context.Context, report domain.MonthlyReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// testClock is a settable clock shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openAccount(t *testing.T, store *memory.Store, ownerID string, accountType domain.AccountType, currency string, balance string) domain.Account {
	t.Helper()
	acc := domain.NewAccount(ownerID, string(accountType)+" account", accountType, "", currency, dec(balance), time.Now())
	require.NoError(t, store.SaveAccount(context.Background(), acc))
	return acc
}

func savePending(t *testing.T, store *memory.Store, accountID string, txnType domain.TransactionType, amount string) domain.Transaction {
	t.Helper()
	txn := domain.NewTransaction(accountID, txnType, dec(amount), "pending "+string(txnType), nil, nil, time.Now())
	require.NoError(t, store.SaveTransaction(context.Background(), txn))
	return txn
}

func balanceOf(t *testing.T, store *memory.Store, accountID string) decimal.Decimal {
	t.Helper()
	acc, err := store.FindAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

// referenceSequence hands out refs in order, then random reference numbers.
func referenceSequence(refs ...string) func() string {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(refs) == 0 {
			return domain.NewReferenceNumber()
		}
		ref := refs[0]
		refs = refs[1:]
		return ref
	}
}
