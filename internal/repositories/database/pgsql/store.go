package pgsql

import (
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres Ledger Store. Balance mutations only happen inside
// WithinLedgerTx, where account rows are locked with SELECT ... FOR UPDATE.
type Store struct {
	BaseRepository
}

// NewStore creates a ledger store over an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure Store implements portsrepo.LedgerStore
var _ portsrepo.LedgerStore = (*Store)(nil)
