package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/finance_ledger/internal/apperrors"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	"github.com/SscSPs/finance_ledger/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	clock      func() time.Time
	references func() string
}

// ServiceOption configures the BaseService embedded in every service.
type ServiceOption func(*BaseService)

// WithClock replaces the wall clock, mainly so tests can pin "now".
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *BaseService) {
		s.clock = clock
	}
}

// WithReferenceGenerator replaces the transaction reference number generator.
func WithReferenceGenerator(generate func() string) ServiceOption {
	return func(s *BaseService) {
		s.references = generate
	}
}

func newBaseService(options ...ServiceOption) BaseService {
	base := BaseService{clock: time.Now, references: domain.NewReferenceNumber}
	for _, option := range options {
		option(&base)
	}
	return base
}

// Now returns the current time according to the service clock
func (s *BaseService) Now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

// NewReference draws a transaction reference number
func (s *BaseService) NewReference() string {
	if s.references == nil {
		return domain.NewReferenceNumber()
	}
	return s.references()
}

// referenceNumberAttempts bounds how often a colliding reference number is redrawn.
const referenceNumberAttempts = 5

// withFreshReference runs save with a newly drawn reference number, redrawing
// while the store reports a duplicate. save must be safe to run again.
func (s *BaseService) withFreshReference(ctx context.Context, save func(reference string) error) error {
	var err error
	for attempt := 1; attempt <= referenceNumberAttempts; attempt++ {
		reference := s.NewReference()
		err = save(reference)
		if err == nil || !errors.Is(err, apperrors.ErrDuplicate) {
			return err
		}
		s.LogDebug(ctx, "Reference number collided, retrying", slog.String("reference_number", reference), slog.Int("attempt", attempt))
	}
	return err
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		// Return a default logger if not found in context
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogWarn logs an expected rejection (validation, insufficient funds) without raising it to error level
func (s *BaseService) LogWarn(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Warn(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}
