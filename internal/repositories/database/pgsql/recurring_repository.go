package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

const recurringColumns = `recurring_id, account_id, amount, description, category_id, frequency, next_due_at, is_active, created_at`

func scanRecurring(row pgx.Row) (*domain.RecurringTransaction, error) {
	var r domain.RecurringTransaction
	err := row.Scan(&r.RecurringID, &r.AccountID, &r.Amount, &r.Description, &r.CategoryID, &r.Frequency, &r.NextDueAt, &r.IsActive, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) listRecurring(ctx context.Context, query string, args ...any) ([]domain.RecurringTransaction, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring definitions: %w", err)
	}
	defer rows.Close()

	defs := []domain.RecurringTransaction{}
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring row: %w", err)
		}
		defs = append(defs, *r)
	}
	return defs, rows.Err()
}

func (s *Store) SaveRecurring(ctx context.Context, recurring domain.RecurringTransaction) error {
	query := `INSERT INTO recurring_transactions (` + recurringColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	_, err := s.Pool.Exec(ctx, query,
		recurring.RecurringID,
		recurring.AccountID,
		recurring.Amount,
		recurring.Description,
		recurring.CategoryID,
		recurring.Frequency,
		recurring.NextDueAt,
		recurring.IsActive,
		recurring.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err, "recurring definition "+recurring.RecurringID)
	}
	return nil
}

func (s *Store) FindRecurringByID(ctx context.Context, recurringID string) (*domain.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE recurring_id = $1;`
	r, err := scanRecurring(s.Pool.QueryRow(ctx, query, recurringID))
	if err != nil {
		return nil, mapReadError(err, "recurring definition "+recurringID)
	}
	return r, nil
}

func (s *Store) ListRecurringByAccount(ctx context.Context, accountID string) ([]domain.RecurringTransaction, error) {
	return s.listRecurring(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions WHERE account_id = $1 ORDER BY next_due_at;`, accountID)
}

func (s *Store) ListDueRecurring(ctx context.Context, now time.Time) ([]domain.RecurringTransaction, error) {
	return s.listRecurring(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions WHERE is_active AND next_due_at <= $1 ORDER BY next_due_at;`, now)
}

func (s *Store) DeactivateRecurring(ctx context.Context, recurringID string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE recurring_transactions SET is_active = FALSE WHERE recurring_id = $1;`, recurringID)
	if err != nil {
		return fmt.Errorf("failed to deactivate recurring definition %s: %w", recurringID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: recurring definition %s", apperrors.ErrNotFound, recurringID)
	}
	return nil
}
