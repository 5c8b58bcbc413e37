package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

const monthKeyLayout = "2006-01"

type analyticsService struct {
	BaseService
	transactions portsrepo.TransactionReader
	categories   portsrepo.CategoryRepository
}

// NewAnalyticsService creates the read-only aggregator over completed transactions.
func NewAnalyticsService(transactions portsrepo.TransactionReader, categories portsrepo.CategoryRepository, options ...ServiceOption) portssvc.AnalyticsSvc {
	return &analyticsService{
		BaseService:  newBaseService(options...),
		transactions: transactions,
		categories:   categories,
	}
}

var _ portssvc.AnalyticsSvc = (*analyticsService)(nil)

func (s *analyticsService) SpendingByCategory(ctx context.Context, accountID string, start, end time.Time) (map[string]decimal.Decimal, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", apperrors.ErrValidation, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	txns, err := s.transactions.ListTransactions(ctx, domain.TransactionFilter{
		AccountID: accountID,
		Status:    domain.StatusCompleted,
		Type:      domain.DebitTxn,
		From:      &start,
		To:        &end,
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to load transactions for spending breakdown", slog.String("account_id", accountID))
		return nil, err
	}

	idSet := map[string]struct{}{}
	for _, txn := range txns {
		if txn.CategoryID != nil {
			idSet[*txn.CategoryID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	categories := map[string]domain.Category{}
	if len(ids) > 0 {
		categories, err = s.categories.FindCategoriesByIDs(ctx, ids)
		if err != nil {
			s.LogError(ctx, err, "Failed to load categories for spending breakdown", slog.String("account_id", accountID))
			return nil, err
		}
	}

	spending := map[string]decimal.Decimal{}
	for _, txn := range txns {
		label := domain.UncategorizedLabel
		if txn.CategoryID != nil {
			if cat, ok := categories[*txn.CategoryID]; ok {
				label = cat.Name
			}
		}
		spending[label] = spending[label].Add(txn.Amount)
	}
	return spending, nil
}

func (s *analyticsService) MonthlyTrends(ctx context.Context, accountID string, months int) ([]domain.MonthlyTrend, error) {
	if months < 1 {
		return nil, fmt.Errorf("%w: months must be at least 1", apperrors.ErrValidation)
	}

	now := s.Now()
	// Window starts on the first day of the oldest month, so the current month counts as one.
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	txns, err := s.transactions.ListTransactions(ctx, domain.TransactionFilter{
		AccountID: accountID,
		Status:    domain.StatusCompleted,
		From:      &start,
		To:        &now,
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to load transactions for monthly trends", slog.String("account_id", accountID))
		return nil, err
	}

	buckets := map[string]*domain.MonthlyTrend{}
	for _, txn := range txns {
		key := txn.TransactionDate.In(now.Location()).Format(monthKeyLayout)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &domain.MonthlyTrend{Month: key, Income: decimal.Zero, Spending: decimal.Zero}
			buckets[key] = bucket
		}
		if txn.TransactionType == domain.CreditTxn {
			bucket.Income = bucket.Income.Add(txn.Amount)
		} else {
			bucket.Spending = bucket.Spending.Add(txn.Amount)
		}
	}

	trends := make([]domain.MonthlyTrend, 0, len(buckets))
	for _, bucket := range buckets {
		trends = append(trends, *bucket)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })
	return trends, nil
}
