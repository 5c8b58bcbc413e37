package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, s *Store, owner string, balance string) domain.Account {
	t.Helper()
	acc := domain.NewAccount(owner, "Main", domain.Checking, "", "", decimal.RequireFromString(balance), time.Now())
	require.NoError(t, s.SaveAccount(context.Background(), acc))
	return acc
}

func TestSaveAccount_DuplicateNumberPerOwner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	first := domain.NewAccount("owner-1", "Main", domain.Checking, "ACC00000001", "", decimal.Zero, now)
	require.NoError(t, s.SaveAccount(ctx, first))

	dup := domain.NewAccount("owner-1", "Other", domain.Savings, "ACC00000001", "", decimal.Zero, now)
	err := s.SaveAccount(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	// Same number under a different owner is allowed.
	other := domain.NewAccount("owner-2", "Main", domain.Checking, "ACC00000001", "", decimal.Zero, now)
	assert.NoError(t, s.SaveAccount(ctx, other))

	found, err := s.FindAccountByNumber(ctx, "owner-2", "ACC00000001")
	require.NoError(t, err)
	assert.Equal(t, other.AccountID, found.AccountID)
}

func TestSaveTransaction_Invariants(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	acc := seedAccount(t, s, "owner-1", "10")

	zero := domain.NewTransaction(acc.AccountID, domain.CreditTxn, decimal.Zero, "zero", nil, nil, time.Now())
	assert.ErrorIs(t, s.SaveTransaction(ctx, zero), apperrors.ErrValidation)

	orphan := domain.NewTransaction("missing", domain.CreditTxn, decimal.NewFromInt(1), "orphan", nil, nil, time.Now())
	assert.ErrorIs(t, s.SaveTransaction(ctx, orphan), apperrors.ErrNotFound)

	txn := domain.NewTransaction(acc.AccountID, domain.CreditTxn, decimal.NewFromInt(1), "ok", nil, nil, time.Now())
	require.NoError(t, s.SaveTransaction(ctx, txn))

	sameRef := domain.NewTransaction(acc.AccountID, domain.CreditTxn, decimal.NewFromInt(1), "dup", nil, nil, time.Now())
	sameRef.ReferenceNumber = txn.ReferenceNumber
	assert.ErrorIs(t, s.SaveTransaction(ctx, sameRef), apperrors.ErrDuplicate)

	byRef, err := s.FindTransactionByReference(ctx, txn.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, txn.TransactionID, byRef.TransactionID)
}

func TestWithinLedgerTx_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	acc := seedAccount(t, s, "owner-1", "100")
	txn := domain.NewTransaction(acc.AccountID, domain.CreditTxn, decimal.NewFromInt(5), "credit", nil, nil, time.Now())

	boom := errors.New("boom")
	err := s.WithinLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if _, err := tx.LockAccounts(ctx, acc.AccountID); err != nil {
			return err
		}
		require.NoError(t, tx.UpdateAccountBalance(ctx, acc.AccountID, decimal.NewFromInt(105), time.Now()))
		require.NoError(t, tx.InsertTransaction(ctx, txn))

		// Writes are visible inside the scope.
		inScope, err := tx.FindTransactionForUpdate(ctx, txn.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, txn.ReferenceNumber, inScope.ReferenceNumber)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := s.FindAccountByID(ctx, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(100)))
	_, err = s.FindTransactionByID(ctx, txn.TransactionID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWithinLedgerTx_CommitAppliesWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	acc := seedAccount(t, s, "owner-1", "100")

	err := s.WithinLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, acc.AccountID)
		if err != nil {
			return err
		}
		current := locked[acc.AccountID]
		return tx.UpdateAccountBalance(ctx, acc.AccountID, current.Balance.Add(decimal.NewFromInt(1)), time.Now())
	})
	require.NoError(t, err)

	stored, err := s.FindAccountByID(ctx, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(101)))
}

func TestLedgerTx_UpdateRequiresLock(t *testing.T) {
	s := NewStore()
	acc := seedAccount(t, s, "owner-1", "100")

	err := s.WithinLedgerTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return tx.UpdateAccountBalance(ctx, acc.AccountID, decimal.Zero, time.Now())
	})
	assert.Error(t, err)
}

func TestLedgerTx_LockAccountsOncePerScope(t *testing.T) {
	s := NewStore()
	a := seedAccount(t, s, "owner-1", "1")
	b := seedAccount(t, s, "owner-1", "1")

	err := s.WithinLedgerTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if _, err := tx.LockAccounts(ctx, a.AccountID); err != nil {
			return err
		}
		_, err := tx.LockAccounts(ctx, b.AccountID)
		return err
	})
	assert.ErrorIs(t, err, errAlreadyLocked)
}

func TestLedgerTx_LockRespectsContext(t *testing.T) {
	s := NewStore()
	acc := seedAccount(t, s, "owner-1", "1")
	holding := make(chan struct{})
	releaseHolder := make(chan struct{})

	go func() {
		_ = s.WithinLedgerTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
			if _, err := tx.LockAccounts(ctx, acc.AccountID); err != nil {
				return err
			}
			close(holding)
			<-releaseHolder
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithinLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		_, err := tx.LockAccounts(ctx, acc.AccountID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(releaseHolder)
}

// Opposite-order lock requests on the same pair must never deadlock.
func TestLedgerTx_OppositeOrderLocking(t *testing.T) {
	s := NewStore()
	a := seedAccount(t, s, "owner-1", "1000")
	b := seedAccount(t, s, "owner-1", "1000")

	move := func(from, to string) error {
		return s.WithinLedgerTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
			accs, err := tx.LockAccounts(ctx, from, to)
			if err != nil {
				return err
			}
			now := time.Now()
			if err := tx.UpdateAccountBalance(ctx, from, accs[from].Balance.Sub(decimal.NewFromInt(1)), now); err != nil {
				return err
			}
			return tx.UpdateAccountBalance(ctx, to, accs[to].Balance.Add(decimal.NewFromInt(1)), now)
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); assert.NoError(t, move(a.AccountID, b.AccountID)) }()
		go func() { defer wg.Done(); assert.NoError(t, move(b.AccountID, a.AccountID)) }()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transfers deadlocked")
	}

	accA, _ := s.FindAccountByID(context.Background(), a.AccountID)
	accB, _ := s.FindAccountByID(context.Background(), b.AccountID)
	assert.True(t, accA.Balance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, accB.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestListTransactions_FilterOrderAndCursor(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	acc := seedAccount(t, s, "owner-1", "0")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		txn := domain.NewTransaction(acc.AccountID, domain.CreditTxn, decimal.NewFromInt(int64(i+1)), "c", nil, nil, base.AddDate(0, 0, i))
		require.NoError(t, s.SaveTransaction(ctx, txn))
		ids = append(ids, txn.TransactionID)
	}
	debit := domain.NewTransaction(acc.AccountID, domain.DebitTxn, decimal.NewFromInt(9), "d", nil, nil, base)
	require.NoError(t, s.SaveTransaction(ctx, debit))

	credits, err := s.ListTransactions(ctx, domain.TransactionFilter{AccountID: acc.AccountID, Type: domain.CreditTxn, Limit: 2})
	require.NoError(t, err)
	require.Len(t, credits, 2)
	assert.Equal(t, ids[4], credits[0].TransactionID)
	assert.Equal(t, ids[3], credits[1].TransactionID)

	last := credits[1]
	next, err := s.ListTransactions(ctx, domain.TransactionFilter{
		AccountID:       acc.AccountID,
		Type:            domain.CreditTxn,
		BeforeDate:      &last.TransactionDate,
		BeforeCreatedAt: &last.CreatedAt,
	})
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, ids[2], next[0].TransactionID)

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 2)
	ranged, err := s.ListTransactions(ctx, domain.TransactionFilter{AccountID: acc.AccountID, From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestListDueRecurring(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	acc := seedAccount(t, s, "owner-1", "0")
	now := time.Now()

	due := domain.RecurringTransaction{RecurringID: "due", AccountID: acc.AccountID, Amount: decimal.NewFromInt(1), Frequency: domain.Daily, NextDueAt: now.Add(-time.Hour), IsActive: true}
	future := domain.RecurringTransaction{RecurringID: "future", AccountID: acc.AccountID, Amount: decimal.NewFromInt(1), Frequency: domain.Daily, NextDueAt: now.Add(time.Hour), IsActive: true}
	inactive := domain.RecurringTransaction{RecurringID: "inactive", AccountID: acc.AccountID, Amount: decimal.NewFromInt(1), Frequency: domain.Daily, NextDueAt: now.Add(-time.Hour), IsActive: false}
	for _, r := range []domain.RecurringTransaction{due, future, inactive} {
		require.NoError(t, s.SaveRecurring(ctx, r))
	}

	list, err := s.ListDueRecurring(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "due", list[0].RecurringID)
}
