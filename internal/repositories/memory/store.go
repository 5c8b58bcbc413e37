package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
)

// Store is an in-memory Ledger Store. It is safe for concurrent use and is
// suitable for tests and single-instance deployments; data is lost on restart.
//
// Balance mutations are serialized by one lock per account, acquired in
// ascending account ID order by LedgerTx.LockAccounts.
type Store struct {
	mu             sync.RWMutex
	accounts       map[string]domain.Account
	accountNumbers map[string]string // owner|number -> account ID
	transactions   map[string]domain.Transaction
	references     map[string]string // reference number -> transaction ID
	categories     map[string]domain.Category
	recurring      map[string]domain.RecurringTransaction

	locksMu      sync.Mutex
	accountLocks map[string]chan struct{}
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		accounts:       make(map[string]domain.Account),
		accountNumbers: make(map[string]string),
		transactions:   make(map[string]domain.Transaction),
		references:     make(map[string]string),
		categories:     make(map[string]domain.Category),
		recurring:      make(map[string]domain.RecurringTransaction),
		accountLocks:   make(map[string]chan struct{}),
	}
}

// Ensure Store implements portsrepo.LedgerStore
var _ portsrepo.LedgerStore = (*Store)(nil)

// NewRepositoryProvider wraps a fresh in-memory store for the service container.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{Store: NewStore()}
}

func accountNumberKey(ownerID, accountNumber string) string {
	return ownerID + "|" + accountNumber
}

// --- Accounts ---

func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
	}
	key := accountNumberKey(account.OwnerID, account.AccountNumber)
	if _, exists := s.accountNumbers[key]; exists {
		return fmt.Errorf("%w: account number %s already exists for owner", apperrors.ErrDuplicate, account.AccountNumber)
	}
	s.accounts[account.AccountID] = account
	s.accountNumbers[key] = account.AccountID
	return nil
}

func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return &acc, nil
}

func (s *Store) FindAccountByNumber(ctx context.Context, ownerID string, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountNumbers[accountNumberKey(ownerID, accountNumber)]
	if !ok {
		return nil, fmt.Errorf("%w: account number %s", apperrors.ErrNotFound, accountNumber)
	}
	acc := s.accounts[id]
	return &acc, nil
}

func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := []domain.Account{}
	for _, acc := range s.accounts {
		if acc.OwnerID == ownerID {
			accounts = append(accounts, acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Store) DeactivateAccount(ctx context.Context, accountID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	acc.IsActive = false
	acc.LastUpdatedAt = now
	s.accounts[accountID] = acc
	return nil
}

// --- Transactions ---

func cloneTransaction(t domain.Transaction) domain.Transaction {
	if t.Metadata != nil {
		meta := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			meta[k] = v
		}
		t.Metadata = meta
	}
	if t.CounterAccountID != nil {
		id := *t.CounterAccountID
		t.CounterAccountID = &id
	}
	if t.CategoryID != nil {
		id := *t.CategoryID
		t.CategoryID = &id
	}
	return t
}

// checkNewTransaction enforces insert invariants. Callers hold s.mu.
func (s *Store) checkNewTransaction(txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if _, exists := s.transactions[txn.TransactionID]; exists {
		return fmt.Errorf("%w: transaction with ID %s already exists", apperrors.ErrDuplicate, txn.TransactionID)
	}
	if _, exists := s.references[txn.ReferenceNumber]; exists {
		return fmt.Errorf("%w: reference number %s already exists", apperrors.ErrDuplicate, txn.ReferenceNumber)
	}
	for _, id := range txn.AccountIDs() {
		if _, ok := s.accounts[id]; !ok {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}
	return nil
}

func (s *Store) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNewTransaction(txn); err != nil {
		return err
	}
	s.transactions[txn.TransactionID] = cloneTransaction(txn)
	s.references[txn.ReferenceNumber] = txn.TransactionID
	return nil
}

func (s *Store) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
	}
	txn = cloneTransaction(txn)
	return &txn, nil
}

func (s *Store) FindTransactionByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	s.mu.RLock()
	id, ok := s.references[referenceNumber]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transaction reference %s", apperrors.ErrNotFound, referenceNumber)
	}
	return s.FindTransactionByID(ctx, id)
}

func matchesFilter(txn *domain.Transaction, f domain.TransactionFilter) bool {
	if f.AccountID != "" && txn.AccountID != f.AccountID {
		return false
	}
	if f.Status != "" && txn.Status != f.Status {
		return false
	}
	if f.Type != "" && txn.TransactionType != f.Type {
		return false
	}
	if f.From != nil && txn.TransactionDate.Before(*f.From) {
		return false
	}
	if f.To != nil && txn.TransactionDate.After(*f.To) {
		return false
	}
	if f.BeforeDate != nil && f.BeforeCreatedAt != nil {
		if txn.TransactionDate.After(*f.BeforeDate) {
			return false
		}
		if txn.TransactionDate.Equal(*f.BeforeDate) && !txn.CreatedAt.Before(*f.BeforeCreatedAt) {
			return false
		}
	}
	return true
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns := []domain.Transaction{}
	for _, txn := range s.transactions {
		if matchesFilter(&txn, filter) {
			txns = append(txns, cloneTransaction(txn))
		}
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].TransactionDate.Equal(txns[j].TransactionDate) {
			return txns[i].TransactionDate.After(txns[j].TransactionDate)
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	if filter.Limit > 0 && len(txns) > filter.Limit {
		txns = txns[:filter.Limit]
	}
	return txns, nil
}

func (s *Store) CountCompletedTransactions(ctx context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, txn := range s.transactions {
		if txn.AccountID == accountID && txn.Status == domain.StatusCompleted {
			count++
		}
	}
	return count, nil
}

// --- Categories ---

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[category.CategoryID]; exists {
		return fmt.Errorf("%w: category with ID %s already exists", apperrors.ErrDuplicate, category.CategoryID)
	}
	if category.ParentID != nil {
		if _, ok := s.categories[*category.ParentID]; !ok {
			return fmt.Errorf("%w: parent category %s", apperrors.ErrNotFound, *category.ParentID)
		}
	}
	s.categories[category.CategoryID] = category
	return nil
}

func (s *Store) FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.categories[categoryID]
	if !ok {
		return nil, fmt.Errorf("%w: category %s", apperrors.ErrNotFound, categoryID)
	}
	return &cat, nil
}

func (s *Store) FindCategoriesByIDs(ctx context.Context, categoryIDs []string) (map[string]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]domain.Category, len(categoryIDs))
	for _, id := range categoryIDs {
		if cat, ok := s.categories[id]; ok {
			found[id] = cat
		}
	}
	return found, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, cat := range s.categories {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// --- Recurring definitions ---

func (s *Store) SaveRecurring(ctx context.Context, recurring domain.RecurringTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recurring[recurring.RecurringID]; exists {
		return fmt.Errorf("%w: recurring definition %s already exists", apperrors.ErrDuplicate, recurring.RecurringID)
	}
	if _, ok := s.accounts[recurring.AccountID]; !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, recurring.AccountID)
	}
	s.recurring[recurring.RecurringID] = recurring
	return nil
}

func (s *Store) FindRecurringByID(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recurring[recurringID]
	if !ok {
		return nil, fmt.Errorf("%w: recurring definition %s", apperrors.ErrNotFound, recurringID)
	}
	return &r, nil
}

func (s *Store) ListRecurringByAccount(ctx context.Context, accountID string) ([]domain.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := []domain.RecurringTransaction{}
	for _, r := range s.recurring {
		if r.AccountID == accountID {
			defs = append(defs, r)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].NextDueAt.Before(defs[j].NextDueAt) })
	return defs, nil
}

func (s *Store) ListDueRecurring(ctx context.Context, now time.Time) ([]domain.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	due := []domain.RecurringTransaction{}
	for _, r := range s.recurring {
		if r.IsDue(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextDueAt.Before(due[j].NextDueAt) })
	return due, nil
}

func (s *Store) DeactivateRecurring(ctx context.Context, recurringID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recurring[recurringID]
	if !ok {
		return fmt.Errorf("%w: recurring definition %s", apperrors.ErrNotFound, recurringID)
	}
	r.IsActive = false
	s.recurring[recurringID] = r
	return nil
}

// accountLock returns the lock channel of an account, creating it on first use.
func (s *Store) accountLock(accountID string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.accountLocks[accountID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.accountLocks[accountID] = lock
	}
	return lock
}
