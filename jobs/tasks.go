package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoicePDF pre-renders an invoice PDF to the archive directory.
	TaskInvoicePDF = "invoice:pdf"
	// TaskReportsWarmup rebuilds the default dashboard into the report cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskIdempotencyCleanup removes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// InvoicePDFPayload identifies the invoice to render.
type InvoicePDFPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// NewInvoicePDFTask builds an invoice:pdf task. The task id dedupes repeated
// enqueues for the same invoice while one is pending.
func NewInvoicePDFTask(invoiceID string) (*asynq.Task, error) {
	data, err := json.Marshal(InvoicePDFPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicePDF, data, asynq.TaskID("invoice-pdf:"+invoiceID), asynq.MaxRetry(5)), nil
}

// NewReportsWarmupTask builds a reports:warmup task.
func NewReportsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsWarmup, nil, asynq.MaxRetry(3))
}

// IdempotencyCleanupPayload sets the retention for idempotency keys.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewIdempotencyCleanupTask builds an idempotency:cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.MaxRetry(3)), nil
}
