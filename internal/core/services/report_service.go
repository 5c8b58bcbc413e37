package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
)

type reportService struct {
	BaseService
	accounts  portsrepo.AccountReader
	analytics portssvc.AnalyticsSvc
	sink      portssvc.ReportSink
}

// NewReportService creates the monthly report generator. sink may be nil, in
// which case reports are only returned.
func NewReportService(accounts portsrepo.AccountReader, analytics portssvc.AnalyticsSvc, sink portssvc.ReportSink, options ...ServiceOption) portssvc.ReportSvc {
	return &reportService{
		BaseService: newBaseService(options...),
		accounts:    accounts,
		analytics:   analytics,
		sink:        sink,
	}
}

var _ portssvc.ReportSvc = (*reportService)(nil)

func (s *reportService) GenerateMonthlyReport(ctx context.Context, ownerID string, year int, month time.Month) (*domain.MonthlyReport, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", apperrors.ErrValidation)
	}
	loc := s.Now().Location()
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	accounts, err := s.accounts.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts for monthly report", slog.String("owner_id", ownerID))
		return nil, err
	}

	report := domain.MonthlyReport{
		OwnerID:  ownerID,
		Period:   start.Format(monthKeyLayout),
		Accounts: []domain.AccountReport{},
	}
	for _, acc := range accounts {
		if !acc.IsActive {
			continue
		}
		spending, err := s.analytics.SpendingByCategory(ctx, acc.AccountID, start, end)
		if err != nil {
			return nil, err
		}
		report.Accounts = append(report.Accounts, domain.AccountReport{
			AccountID:          acc.AccountID,
			AccountName:        acc.Name,
			Balance:            acc.Balance,
			SpendingByCategory: spending,
		})
	}

	if s.sink != nil {
		if err := s.sink.Deliver(ctx, report); err != nil {
			s.LogError(ctx, err, "Failed to deliver monthly report",
				slog.String("owner_id", ownerID),
				slog.String("period", report.Period))
			return nil, err
		}
	}

	s.LogInfo(ctx, "Monthly report generated",
		slog.String("owner_id", ownerID),
		slog.String("period", report.Period),
		slog.Int("accounts", len(report.Accounts)))
	return &report, nil
}
