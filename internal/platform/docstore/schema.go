package docstore

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/shopdesk/internal/platform/db"
)

// Collection names.
const (
	Customers = "customers"
	Products  = "products"
	Orders    = "orders"
	Invoices  = "invoices"
	Settings  = "settings"
)

func collectionDDL(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	doc JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, name)
}

// Statements returns the idempotent DDL applied by EnsureSchema.
func Statements() []string {
	stmts := make([]string, 0, 16)
	for _, name := range []string{Customers, Products, Orders, Invoices, Settings} {
		stmts = append(stmts, collectionDDL(name))
	}
	return append(stmts,
		`CREATE INDEX IF NOT EXISTS products_category_idx ON products ((doc->>'category'))`,
		`CREATE INDEX IF NOT EXISTS orders_customer_idx ON orders ((doc->>'customer_id'))`,
		`CREATE INDEX IF NOT EXISTS orders_date_idx ON orders ((doc->>'order_date'))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS invoices_order_key ON invoices ((doc->>'order_id'))`,
		`CREATE INDEX IF NOT EXISTS invoices_customer_idx ON invoices ((doc#>>'{customer,id}'))`,
		`CREATE TABLE IF NOT EXISTS counters (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
	id BIGSERIAL PRIMARY KEY,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	entity TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	meta JSONB,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS idempotency_keys (
	key TEXT PRIMARY KEY,
	module TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	)
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, q db.DBTX) error {
	for _, stmt := range Statements() {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("docstore: ensure schema: %w", err)
		}
	}
	return nil
}
