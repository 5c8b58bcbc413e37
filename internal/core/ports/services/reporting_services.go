package services

import (
	"context"
	"time"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AnalyticsSvc reduces completed transactions into category and monthly breakdowns. It never writes.
type AnalyticsSvc interface {
	// SpendingByCategory sums completed debits in [start, end] by category display name.
	SpendingByCategory(ctx context.Context, accountID string, start, end time.Time) (map[string]decimal.Decimal, error)

	// MonthlyTrends returns income and spending for each observed month within the trailing months, oldest first.
	MonthlyTrends(ctx context.Context, accountID string, months int) ([]domain.MonthlyTrend, error)
}

// ReportSvc builds and delivers monthly statements.
type ReportSvc interface {
	GenerateMonthlyReport(ctx context.Context, ownerID string, year int, month time.Month) (*domain.MonthlyReport, error)
}
