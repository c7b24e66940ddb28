package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/jobs"
)

type enqueueSpy struct {
	tasks []*asynq.Task
}

func (s *enqueueSpy) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func TestTriggerBuildsTasks(t *testing.T) {
	spy := &enqueueSpy{}
	c := &JobsCLI{client: spy}

	_, err := c.Trigger(context.Background(), jobs.TaskInvoicePDF, TriggerOptions{})
	require.Error(t, err)

	info, err := c.Trigger(context.Background(), jobs.TaskInvoicePDF, TriggerOptions{InvoiceID: "i-1"})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskInvoicePDF, info.Type)

	_, err = c.Trigger(context.Background(), jobs.TaskIdempotencyCleanup, TriggerOptions{OlderThan: time.Hour})
	require.NoError(t, err)
	var payload jobs.IdempotencyCleanupPayload
	require.NoError(t, json.Unmarshal(spy.tasks[1].Payload(), &payload))
	require.Equal(t, time.Hour, payload.OlderThan)

	_, err = c.Trigger(context.Background(), "mail:send", TriggerOptions{})
	require.ErrorContains(t, err, "unsupported job")
}

func TestMigrateDryRunPrintsDDL(t *testing.T) {
	root := NewRootCommand()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"migrate", "--dry-run"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "CREATE TABLE IF NOT EXISTS orders")
	require.Contains(t, out.String(), "invoices_order_key")
}

func TestRenderStats(t *testing.T) {
	out := new(bytes.Buffer)
	renderStats(out, QueueStats{Queue: "default", Pending: 3})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "default")
}
