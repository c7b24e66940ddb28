package docstore

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

func TestBuildDefaultQuery(t *testing.T) {
	sql, args, err := Query{}.build("products")
	require.NoError(t, err)
	require.Equal(t, "SELECT id, doc, COUNT(*) OVER() FROM products ORDER BY id ASC", sql)
	require.Empty(t, args)
}

func TestBuildFiltersSearchSortAndPaging(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := Query{
		Search: &Search{Term: "50%_off", Fields: []string{"name", "category"}},
		Sort:   []Sort{{Field: "price", Kind: Number, Desc: true}},
		Limit:  20,
		Offset: 40,
	}.
		Where("category", OpEq, "grocery", Text).
		Where("total_stock", OpLte, 5.0, Number).
		Where("created_at", OpGte, from, Time)

	sql, args, err := q.build("products")
	require.NoError(t, err)
	require.Equal(t,
		"SELECT id, doc, COUNT(*) OVER() FROM products WHERE (doc->>'category') = $1 AND (doc->>'total_stock')::numeric <= $2 AND created_at >= $3 AND ((doc->>'name') ILIKE $4 OR (doc->>'category') ILIKE $4) ORDER BY (doc->>'price')::numeric DESC, id ASC LIMIT $5 OFFSET $6",
		sql)
	require.Equal(t, []any{"grocery", 5.0, from, `%50\%\_off%`, 20, 40}, args)
}

func TestBuildNestedFieldAndIn(t *testing.T) {
	sql, args, err := Query{}.Where("bank.ifsc", OpEq, "X", Text).Where("status", OpIn, []string{"pending", "processing"}, Text).build("orders")
	require.NoError(t, err)
	require.True(t, strings.Contains(sql, "(doc#>>'{bank,ifsc}') = $1"))
	require.True(t, strings.Contains(sql, "(doc->>'status') = ANY($2)"))
	require.Len(t, args, 2)
}

func TestBuildRejectsInjection(t *testing.T) {
	_, _, err := Query{Sort: []Sort{{Field: "name; DROP TABLE orders"}}}.build("orders")
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrValidation))

	_, _, err = Query{Filters: []Filter{{Field: "name", Op: Op("LIKE"), Value: "x"}}}.build("orders")
	require.Error(t, err)
}

func TestBlankSearchIgnored(t *testing.T) {
	sql, _, err := Query{Search: &Search{Term: "   ", Fields: []string{"name"}}}.build("customers")
	require.NoError(t, err)
	require.NotContains(t, sql, "ILIKE")
}

func TestNewCollectionRejectsBadName(t *testing.T) {
	require.Panics(t, func() { NewCollection[struct{}]("orders; --") })
	require.Equal(t, "orders", NewCollection[struct{}]("orders").Name())
}

type validatedDoc struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

func TestDecodeValidatesShape(t *testing.T) {
	c := NewCollection[validatedDoc]("things")
	_, err := c.decode("a", []byte(`{"name":"no id"}`))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = c.decode("a", []byte(`{not json`))
	require.ErrorIs(t, err, ErrInvalidDocument)

	doc, err := c.decode("a", []byte(`{"id":"a","name":"ok"}`))
	require.NoError(t, err)
	require.Equal(t, "ok", doc.Name)
}

func TestStatementsCoverCollections(t *testing.T) {
	joined := strings.Join(Statements(), "\n")
	for _, name := range []string{Customers, Products, Orders, Invoices, Settings, "counters", "audit_logs", "idempotency_keys"} {
		require.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+name)
	}
	require.Contains(t, joined, "invoices_order_key")
}

func TestIndexExpressionsAreImmutable(t *testing.T) {
	for _, stmt := range Statements() {
		if !strings.Contains(stmt, "INDEX") {
			continue
		}
		require.NotContains(t, stmt, "::timestamptz", stmt)
		require.NotContains(t, stmt, "::numeric", stmt)
	}
}

func TestInvoiceCustomerIndexMatchesFilter(t *testing.T) {
	expr, err := fieldExpr("customer.id", Text)
	require.NoError(t, err)
	joined := strings.Join(Statements(), "\n")
	require.Contains(t, joined, "invoices_customer_idx ON invoices ("+expr+")")
}
