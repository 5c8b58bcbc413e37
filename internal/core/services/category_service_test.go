package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/SscSPs/finance_ledger/internal/core/services"
	"github.com/SscSPs/finance_ledger/internal/dto"
	"github.com/SscSPs/finance_ledger/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService(t *testing.T) {
	ctx := context.Background()
	svc := services.NewCategoryService(memory.NewStore())

	food, err := svc.CreateCategory(ctx, dto.CreateCategoryRequest{Name: " Food "})
	require.NoError(t, err)
	assert.Equal(t, "Food", food.Name)
	assert.Equal(t, domain.DefaultCategoryColor, food.Color)
	assert.True(t, food.IsActive)

	groceries, err := svc.CreateCategory(ctx, dto.CreateCategoryRequest{Name: "Groceries", ParentID: &food.CategoryID, Color: "#00ff00"})
	require.NoError(t, err)
	require.NotNil(t, groceries.ParentID)
	assert.Equal(t, food.CategoryID, *groceries.ParentID)
	assert.Equal(t, "#00ff00", groceries.Color)

	missing := "missing"
	_, err = svc.CreateCategory(ctx, dto.CreateCategoryRequest{Name: "Orphan", ParentID: &missing})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.CreateCategory(ctx, dto.CreateCategoryRequest{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	got, err := svc.GetCategoryByID(ctx, groceries.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)
	_, err = svc.GetCategoryByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
