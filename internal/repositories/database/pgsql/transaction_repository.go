package pgsql

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `transaction_id, reference_number, account_id, counter_account_id, transaction_type, amount, description,
	category_id, status, external_payment_id, payment_method, transaction_date, metadata, created_at, last_updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	var metadata []byte
	err := row.Scan(
		&txn.TransactionID,
		&txn.ReferenceNumber,
		&txn.AccountID,
		&txn.CounterAccountID,
		&txn.TransactionType,
		&txn.Amount,
		&txn.Description,
		&txn.CategoryID,
		&txn.Status,
		&txn.ExternalPaymentID,
		&txn.PaymentMethod,
		&txn.TransactionDate,
		&metadata,
		&txn.CreatedAt,
		&txn.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Metadata = map[string]string{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of transaction %s: %w", txn.TransactionID, err)
		}
	}
	return &txn, nil
}

func encodeMetadata(metadata map[string]string) (string, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(raw), nil
}

// insertTransaction writes a new row through q. The store and ledger
// transactions share it.
func insertTransaction(ctx context.Context, q querier, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	metadata, err := encodeMetadata(txn.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err = q.Exec(ctx, query,
		txn.TransactionID,
		txn.ReferenceNumber,
		txn.AccountID,
		txn.CounterAccountID,
		txn.TransactionType,
		txn.Amount,
		txn.Description,
		txn.CategoryID,
		txn.Status,
		txn.ExternalPaymentID,
		txn.PaymentMethod,
		txn.TransactionDate,
		metadata,
		txn.CreatedAt,
		txn.LastUpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "transaction "+txn.ReferenceNumber)
	}
	return nil
}

// SaveTransaction persists a new pending transaction.
func (s *Store) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	return insertTransaction(ctx, s.Pool, txn)
}

// FindTransactionByID retrieves a transaction by storage key.
func (s *Store) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`
	txn, err := scanTransaction(s.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		return nil, mapReadError(err, "transaction "+transactionID)
	}
	return txn, nil
}

// FindTransactionByReference retrieves a transaction by its reference number.
func (s *Store) FindTransactionByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_number = $1;`
	txn, err := scanTransaction(s.Pool.QueryRow(ctx, query, referenceNumber))
	if err != nil {
		return nil, mapReadError(err, "transaction reference "+referenceNumber)
	}
	return txn, nil
}

// ListTransactions retrieves transactions matching filter, newest first.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = "+arg(filter.AccountID))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+arg(filter.Status))
	}
	if filter.Type != "" {
		conditions = append(conditions, "transaction_type = "+arg(filter.Type))
	}
	if filter.From != nil {
		conditions = append(conditions, "transaction_date >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "transaction_date <= "+arg(*filter.To))
	}
	if filter.BeforeDate != nil && filter.BeforeCreatedAt != nil {
		// Tuple comparison keeps the keyset cursor stable across equal dates.
		conditions = append(conditions, fmt.Sprintf("(transaction_date, created_at) < (%s, %s)", arg(*filter.BeforeDate), arg(*filter.BeforeCreatedAt)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY transaction_date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txns, nil
}

// CountCompletedTransactions counts completed transactions owned by an account.
func (s *Store) CountCompletedTransactions(ctx context.Context, accountID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND status = $2;`
	if err := s.Pool.QueryRow(ctx, query, accountID, domain.StatusCompleted).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions of account %s: %w", accountID, err)
	}
	return count, nil
}
