package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

const categoryColumns = `category_id, name, parent_id, color, is_active`

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var cat domain.Category
	if err := row.Scan(&cat.CategoryID, &cat.Name, &cat.ParentID, &cat.Color, &cat.IsActive); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) error {
	query := `INSERT INTO categories (` + categoryColumns + `) VALUES ($1, $2, $3, $4, $5);`
	_, err := s.Pool.Exec(ctx, query, category.CategoryID, category.Name, category.ParentID, category.Color, category.IsActive)
	if err != nil {
		return mapWriteError(err, "category "+category.Name)
	}
	return nil
}

func (s *Store) FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE category_id = $1;`
	cat, err := scanCategory(s.Pool.QueryRow(ctx, query, categoryID))
	if err != nil {
		return nil, mapReadError(err, "category "+categoryID)
	}
	return cat, nil
}

func (s *Store) FindCategoriesByIDs(ctx context.Context, categoryIDs []string) (map[string]domain.Category, error) {
	found := make(map[string]domain.Category, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return found, nil
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE category_id = ANY($1);`
	rows, err := s.Pool.Query(ctx, query, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		found[cat.CategoryID] = *cat
	}
	return found, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY name;`
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, *cat)
	}
	return categories, rows.Err()
}
