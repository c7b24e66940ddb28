package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/shopdesk/internal/platform/db"
)

// Counter is a named, monotonically increasing sequence stored in the counters table.
type Counter struct {
	db   db.DBTX
	name string
}

// NewCounter binds a counter name to a connection.
func NewCounter(q db.DBTX, name string) *Counter {
	return &Counter{db: q, name: name}
}

// Next increments the counter and returns the new value. The read, increment
// and write happen in a single statement, so concurrent callers never observe
// the same value. The first call returns 1.
func (c *Counter) Next(ctx context.Context) (int64, error) {
	var value int64
	err := c.db.QueryRow(ctx, `INSERT INTO counters (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
RETURNING value`, c.name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("docstore: next %s: %w", c.name, err)
	}
	return value, nil
}

// Current returns the last issued value, 0 when the counter was never used.
func (c *Counter) Current(ctx context.Context) (int64, error) {
	var value int64
	err := c.db.QueryRow(ctx, `SELECT value FROM counters WHERE name = $1`, c.name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("docstore: current %s: %w", c.name, err)
	}
	return value, nil
}
