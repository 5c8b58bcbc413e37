package reportsink

import (
	"context"
	"log/slog"

	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// LogSink writes a one-line summary per account to the logger. It is used when no bucket is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

var _ portssvc.ReportSink = (*LogSink)(nil)

func (s *LogSink) Deliver(ctx context.Context, report domain.MonthlyReport) error {
	for _, acc := range report.Accounts {
		spent := decimal.Zero
		for _, amount := range acc.SpendingByCategory {
			spent = spent.Add(amount)
		}
		s.logger.InfoContext(ctx, "Monthly report",
			slog.String("owner_id", report.OwnerID),
			slog.String("period", report.Period),
			slog.String("account_id", acc.AccountID),
			slog.String("balance", acc.Balance.StringFixed(2)),
			slog.String("spent", spent.StringFixed(2)),
			slog.Int("categories", len(acc.SpendingByCategory)))
	}
	if len(report.Accounts) == 0 {
		s.logger.InfoContext(ctx, "Monthly report has no active accounts",
			slog.String("owner_id", report.OwnerID),
			slog.String("period", report.Period))
	}
	return nil
}
