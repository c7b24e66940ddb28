package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/internal/invoices"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

type pdfStub struct {
	pdf []byte
	inv invoices.Invoice
	err error
}

func (s pdfStub) RenderPDF(context.Context, string) ([]byte, invoices.Invoice, error) {
	return s.pdf, s.inv, s.err
}

func TestInvoicePDFJobArchivesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pdf")
	job := &InvoicePDFJob{
		Invoices: pdfStub{pdf: []byte("%PDF-1.7"), inv: invoices.Invoice{ID: "i-1", Number: "INV-0007"}},
		Dir:      dir,
	}
	task, err := NewInvoicePDFTask("i-1")
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))

	data, err := os.ReadFile(filepath.Join(dir, "INV-0007.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestInvoicePDFJobSkipsRetryWhenInvoiceMissing(t *testing.T) {
	job := &InvoicePDFJob{
		Invoices: pdfStub{err: errors.Join(errors.New("invoices: invoice"), shared.ErrNotFound)},
		Dir:      t.TempDir(),
	}
	task, err := NewInvoicePDFTask("gone")
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInvoicePDFJobRetriesRenderFailure(t *testing.T) {
	job := &InvoicePDFJob{Invoices: pdfStub{err: errors.New("gotenberg down")}, Dir: t.TempDir()}
	task, err := NewInvoicePDFTask("i-1")
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestInvoicePDFJobRejectsBadPayload(t *testing.T) {
	job := &InvoicePDFJob{Invoices: pdfStub{}, Dir: t.TempDir()}
	err := job.Handle(context.Background(), asynq.NewTask(TaskInvoicePDF, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestArchiveNameSanitises(t *testing.T) {
	require.Equal(t, "INV_0001.pdf", archiveName(invoices.Invoice{Number: "INV/0001"}))
	require.Equal(t, "abc.pdf", archiveName(invoices.Invoice{ID: "abc"}))
}

type warmerStub struct{ calls int }

func (w *warmerStub) Warmup(context.Context) error {
	w.calls++
	return nil
}

type cleanerStub struct{ olderThan time.Duration }

func (c *cleanerStub) Cleanup(_ context.Context, olderThan time.Duration) error {
	c.olderThan = olderThan
	return nil
}

func TestMaintenanceJobs(t *testing.T) {
	warmer := &warmerStub{}
	require.NoError(t, (&ReportsWarmupJob{Reports: warmer}).Handle(context.Background(), NewReportsWarmupTask()))
	require.Equal(t, 1, warmer.calls)

	cleaner := &cleanerStub{}
	job := &IdempotencyCleanupJob{Store: cleaner}
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, DefaultIdempotencyRetention, cleaner.olderThan)

	task, err := NewIdempotencyCleanupTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Hour, cleaner.olderThan)
}

type enqueueSpy struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (s *enqueueSpy) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, s.err
}

func TestEventEnqueuerSchedulesInvoicePDF(t *testing.T) {
	spy := &enqueueSpy{}
	var pub shared.EventPublisher = NewEventEnqueuer(spy, nil)

	pub.Publish(context.Background(), shared.NewEvent(shared.EventOrderCreated, "o-1", nil))
	pub.Publish(context.Background(), shared.NewEvent(shared.EventInvoiceCreated, "i-9", nil))

	require.Len(t, spy.tasks, 1)
	require.Equal(t, TaskInvoicePDF, spy.tasks[0].Type())
	var payload InvoicePDFPayload
	require.NoError(t, json.Unmarshal(spy.tasks[0].Payload(), &payload))
	require.Equal(t, "i-9", payload.InvoiceID)
}

func TestEventEnqueuerSwallowsErrors(t *testing.T) {
	spy := &enqueueSpy{err: errors.New("redis down")}
	NewEventEnqueuer(spy, nil).Publish(context.Background(), shared.NewEvent(shared.EventInvoicePayment, "i-1", nil))
	require.Len(t, spy.tasks, 1)
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(nil, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"queue":"default"`)
}

type inspectorStub struct {
	info *asynq.QueueInfo
	err  error
}

func (s inspectorStub) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueue(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(inspectorStub{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Retry: 1}}, nil).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"pending":4`)

	rr = httptest.NewRecorder()
	NewHandler(inspectorStub{err: errors.New("redis down")}, nil).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNewWorkerValidatesRegistrations(t *testing.T) {
	noop := func(context.Context, *asynq.Task) error { return nil }
	opts := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}

	_, err := NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{
		{Type: TaskReportsWarmup, Handler: noop},
		{Type: TaskReportsWarmup, Handler: noop},
	}})
	require.ErrorContains(t, err, "duplicate")

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{{Type: TaskInvoicePDF}}})
	require.Error(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{{Type: TaskInvoicePDF, Handler: noop}},
		Cron:      []CronRegistration{{Spec: "@hourly", Task: NewReportsWarmupTask()}},
	})
	require.ErrorContains(t, err, "no handler")
}
