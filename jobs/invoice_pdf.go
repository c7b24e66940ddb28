package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/shopdesk/internal/invoices"
	"github.com/odyssey-erp/shopdesk/internal/observability"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// PDFSource renders an invoice to PDF.
type PDFSource interface {
	RenderPDF(ctx context.Context, id string) ([]byte, invoices.Invoice, error)
}

// InvoicePDFJob archives rendered invoices under Dir as <number>.pdf.
type InvoicePDFJob struct {
	Invoices PDFSource
	Dir      string
	Logger   *slog.Logger
	Metrics  *observability.JobMetrics
}

// Handle processes invoice:pdf tasks.
func (j *InvoicePDFJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Invoices == nil {
		return errors.New("invoice pdf: handler not configured")
	}
	var payload InvoicePDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.InvoiceID == "" {
		return fmt.Errorf("invoice pdf: bad payload: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskInvoicePDF)
	defer func() { err = tracker.End(err) }()

	logger := jobLogger(j.Logger, TaskInvoicePDF).With(slog.String("invoice_id", payload.InvoiceID))

	pdf, inv, err := j.Invoices.RenderPDF(ctx, payload.InvoiceID)
	if errors.Is(err, shared.ErrNotFound) {
		logger.Warn("invoice gone, skipping")
		return fmt.Errorf("invoice pdf: %v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("invoice pdf: render: %w", err)
	}
	path, err := writeAtomic(j.Dir, archiveName(inv), pdf)
	if err != nil {
		return fmt.Errorf("invoice pdf: write: %w", err)
	}
	logger.Info("invoice archived", slog.String("path", path), slog.Int("bytes", len(pdf)))
	return nil
}

func archiveName(inv invoices.Invoice) string {
	name := inv.Number
	if name == "" {
		name = inv.ID
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name) + ".pdf"
}

func writeAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".pdf-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	return path, os.Rename(tmp.Name(), path)
}

func jobLogger(l *slog.Logger, job string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With(slog.String("job", job))
}
