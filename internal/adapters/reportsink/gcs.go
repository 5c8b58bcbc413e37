// Package reportsink delivers generated monthly reports.
package reportsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/SscSPs/finance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/finance_ledger/internal/core/ports/services"
	"google.golang.org/api/option"
)

const (
	reportPrefix  = "reports"
	uploadTimeout = 2 * time.Minute
)

// GCSSink writes each report as a JSON object to a Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

// NewGCSSink creates a storage client using Application Default Credentials
// unless opts say otherwise.
func NewGCSSink(ctx context.Context, bucket string, logger *slog.Logger, opts ...option.ClientOption) (*GCSSink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("report bucket cannot be empty")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSSink{client: client, bucket: bucket, logger: logger}, nil
}

var _ portssvc.ReportSink = (*GCSSink)(nil)

// ObjectName is where the report for ownerID and period is stored.
func ObjectName(ownerID, period string) string {
	return path.Join(reportPrefix, ownerID, period+".json")
}

func (s *GCSSink) Deliver(ctx context.Context, report domain.MonthlyReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	name := ObjectName(report.OwnerID, report.Period)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write report to GCS writer: %w", err)
	}
	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize report upload gs://%s/%s: %w", s.bucket, name, err)
	}

	s.logger.Info("Monthly report uploaded",
		slog.String("bucket", s.bucket),
		slog.String("object", name),
		slog.Int("bytes", len(body)))
	return nil
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
