package invoices

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/shopdesk/internal/platform/db"
	"github.com/odyssey-erp/shopdesk/internal/platform/docstore"
)

// CounterName is the counters row that numbers invoices.
const CounterName = "invoice"

var documents = docstore.NewCollection[Invoice](docstore.Invoices)

// TxRepository exposes invoice writes inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Invoice, error)
	Replace(ctx context.Context, inv Invoice) error
}

// Repository provides invoice persistence.
type Repository struct {
	pool    *pgxpool.Pool
	counter *docstore.Counter
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, counter: docstore.NewCounter(pool, CounterName)}
}

// WithTx runs fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txRepository{tx: tx})
	})
}

// NextSequence draws the next invoice number. It runs on its own statement,
// outside any transaction, so a failed insert leaves a gap rather than a duplicate.
func (r *Repository) NextSequence(ctx context.Context) (int64, error) {
	return r.counter.Next(ctx)
}

// Insert stores a new invoice. A second invoice for the same order violates
// the unique order index and maps to ErrInvoiceExists.
func (r *Repository) Insert(ctx context.Context, inv Invoice) error {
	err := documents.Insert(ctx, r.pool, inv.ID, inv)
	if errors.Is(err, docstore.ErrDuplicate) {
		return ErrInvoiceExists
	}
	return err
}

// Get loads one invoice.
func (r *Repository) Get(ctx context.Context, id string) (Invoice, error) {
	inv, err := documents.Get(ctx, r.pool, id)
	return inv, mapErr(err)
}

// GetByOrder loads the invoice issued for an order.
func (r *Repository) GetByOrder(ctx context.Context, orderID string) (Invoice, error) {
	q := docstore.Query{Limit: 1}.Where("order_id", docstore.OpEq, orderID, docstore.Text)
	found, _, err := documents.Find(ctx, r.pool, q)
	if err != nil {
		return Invoice{}, err
	}
	if len(found) == 0 {
		return Invoice{}, ErrInvoiceNotFound
	}
	return found[0], nil
}

// List returns a filtered page of invoices.
func (r *Repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return documents.Find(ctx, r.pool, listQuery(req))
}

func listQuery(req ListInvoicesRequest) docstore.Query {
	q := docstore.Query{Limit: req.Page.Limit(), Offset: req.Page.Offset()}
	if req.PaidStatus != "" {
		q = q.Where("paid_status", docstore.OpEq, string(req.PaidStatus), docstore.Text)
	}
	if req.CustomerID != "" {
		q = q.Where("customer.id", docstore.OpEq, req.CustomerID, docstore.Text)
	}
	if req.Search != "" {
		q.Search = &docstore.Search{Term: req.Search, Fields: []string{"number", "customer.name"}}
	}
	switch req.SortBy {
	case "total":
		q.Sort = []docstore.Sort{{Field: "total", Kind: docstore.Number, Desc: req.Desc}}
	case "number":
		q.Sort = []docstore.Sort{{Field: "sequence", Kind: docstore.Number, Desc: req.Desc}}
	case "customer_name":
		q.Sort = []docstore.Sort{{Field: "customer.name", Desc: req.Desc}}
	default:
		q.Sort = []docstore.Sort{{Field: "issued_at", Kind: docstore.Time, Desc: req.Desc || !req.Asc}}
	}
	return q
}

// Open returns every invoice that is not fully paid.
func (r *Repository) Open(ctx context.Context) ([]Invoice, error) {
	q := docstore.Query{Sort: []docstore.Sort{{Field: "issued_at", Kind: docstore.Time}}}.
		Where("paid_status", docstore.OpIn, []string{string(StatusUnpaid), string(StatusPartiallyPaid)}, docstore.Text)
	return documents.FindAll(ctx, r.pool, q)
}

type txRepository struct {
	tx pgx.Tx
}

func (r txRepository) GetForUpdate(ctx context.Context, id string) (Invoice, error) {
	inv, err := documents.GetForUpdate(ctx, r.tx, id)
	return inv, mapErr(err)
}

func (r txRepository) Replace(ctx context.Context, inv Invoice) error {
	return mapErr(documents.Replace(ctx, r.tx, inv.ID, inv))
}

func mapErr(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInvoiceNotFound
	}
	return err
}
