package dto

import "github.com/SscSPs/finance_ledger/internal/core/domain"

// CreateCategoryRequest defines the data needed to create a category.
type CreateCategoryRequest struct {
	Name     string  `json:"name" binding:"required,max=100"`
	ParentID *string `json:"parentID"`                           // Optional
	Color    string  `json:"color" binding:"omitempty,hexcolor"` // Optional, defaults to #007bff
}

// CategoryResponse defines the data returned for a category.
type CategoryResponse struct {
	CategoryID  string  `json:"categoryID"`
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	ParentID    *string `json:"parentID,omitempty"`
	Color       string  `json:"color"`
	IsActive    bool    `json:"isActive"`
}

// ToCategoryResponse converts a category (and its parent, when known) to its DTO.
func ToCategoryResponse(cat *domain.Category, parent *domain.Category) CategoryResponse {
	return CategoryResponse{
		CategoryID:  cat.CategoryID,
		Name:        cat.Name,
		DisplayName: cat.DisplayName(parent),
		ParentID:    cat.ParentID,
		Color:       cat.Color,
		IsActive:    cat.IsActive,
	}
}

// ToListCategoryResponse converts categories to DTOs, resolving parents from the same slice.
func ToListCategoryResponse(categories []domain.Category) []CategoryResponse {
	byID := make(map[string]*domain.Category, len(categories))
	for i := range categories {
		byID[categories[i].CategoryID] = &categories[i]
	}
	res := make([]CategoryResponse, len(categories))
	for i := range categories {
		var parent *domain.Category
		if categories[i].ParentID != nil {
			parent = byID[*categories[i].ParentID]
		}
		res[i] = ToCategoryResponse(&categories[i], parent)
	}
	return res
}
