package repositories

// LedgerStore is the full Ledger Store contract. It is the only component that
// writes account balances, and only through TransactionManager.
type LedgerStore interface {
	TransactionManager
	AccountRepository
	TransactionRepository
	CategoryRepository
	RecurringRepository
}

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	Store LedgerStore
}
