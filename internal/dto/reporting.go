package dto

import (
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SpendingByCategoryParams bounds a spending breakdown. Both dates are inclusive.
type SpendingByCategoryParams struct {
	Start time.Time `form:"start" time_format:"2006-01-02" binding:"required"`
	End   time.Time `form:"end" time_format:"2006-01-02" binding:"required"`
}

// SpendingByCategoryResponse maps category display name to total spent.
type SpendingByCategoryResponse struct {
	AccountID string                     `json:"accountID"`
	Start     time.Time                  `json:"start"`
	End       time.Time                  `json:"end"`
	Spending  map[string]decimal.Decimal `json:"spending"`
}

// MonthlyTrendsParams selects how many trailing months to report.
type MonthlyTrendsParams struct {
	Months int `form:"months,default=6" binding:"min=1,max=36"`
}

// MonthlyTrendsResponse lists income and spending per calendar month, oldest first.
type MonthlyTrendsResponse struct {
	AccountID string                `json:"accountID"`
	Trends    []domain.MonthlyTrend `json:"trends"`
}

// MonthlyReportParams selects the reporting month. Zero values mean the previous month.
type MonthlyReportParams struct {
	Year  int `form:"year" binding:"omitempty,min=2000,max=2100"`
	Month int `form:"month" binding:"omitempty,min=1,max=12"`
}
