package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/shopdesk/internal/catalog"
	"github.com/odyssey-erp/shopdesk/internal/platform/db"
	"github.com/odyssey-erp/shopdesk/internal/platform/docstore"
)

var documents = docstore.NewCollection[Order](docstore.Orders)

// TxRepository exposes order and stock writes inside one transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Order, error)
	Insert(ctx context.Context, o Order) error
	Replace(ctx context.Context, o Order) error
	Delete(ctx context.Context, id string) error
	LockProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error)
	SaveProduct(ctx context.Context, p catalog.Product) error
}

// Repository provides order persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txRepository{tx: tx})
	})
}

// Get loads one order.
func (r *Repository) Get(ctx context.Context, id string) (Order, error) {
	o, err := documents.Get(ctx, r.pool, id)
	return o, mapErr(err)
}

// List returns a filtered page of orders.
func (r *Repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return documents.Find(ctx, r.pool, listQuery(req))
}

func listQuery(req ListOrdersRequest) docstore.Query {
	q := docstore.Query{Limit: req.Page.Limit(), Offset: req.Page.Offset()}
	if req.Status != "" {
		q = q.Where("status", docstore.OpEq, string(req.Status), docstore.Text)
	}
	if req.CustomerID != "" {
		q = q.Where("customer_id", docstore.OpEq, req.CustomerID, docstore.Text)
	}
	if req.From != nil {
		q = q.Where("order_date", docstore.OpGte, *req.From, docstore.Time)
	}
	if req.To != nil {
		q = q.Where("order_date", docstore.OpLt, *req.To, docstore.Time)
	}
	if req.Search != "" {
		q.Search = &docstore.Search{Term: req.Search, Fields: []string{"customer_name", "notes"}}
	}
	switch req.SortBy {
	case "total":
		q.Sort = []docstore.Sort{{Field: "total", Kind: docstore.Number, Desc: req.Desc}}
	case "created_at":
		q.Sort = []docstore.Sort{{Field: "created_at", Kind: docstore.Time, Desc: req.Desc}}
	case "customer_name":
		q.Sort = []docstore.Sort{{Field: "customer_name", Desc: req.Desc}}
	default:
		// newest first unless asked otherwise
		q.Sort = []docstore.Sort{{Field: "order_date", Kind: docstore.Time, Desc: req.Desc || !req.Asc}}
	}
	return q
}

// CountByCustomer counts orders referencing a customer.
func (r *Repository) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	q := docstore.Query{Limit: 1}.Where("customer_id", docstore.OpEq, customerID, docstore.Text)
	_, total, err := documents.Find(ctx, r.pool, q)
	return total, err
}

// Between returns orders dated in [from, to).
func (r *Repository) Between(ctx context.Context, from, to time.Time) ([]Order, error) {
	q := docstore.Query{Sort: []docstore.Sort{{Field: "order_date", Kind: docstore.Time}}}.
		Where("order_date", docstore.OpGte, from, docstore.Time).
		Where("order_date", docstore.OpLt, to, docstore.Time)
	return documents.FindAll(ctx, r.pool, q)
}

type txRepository struct {
	tx pgx.Tx
}

func (r txRepository) GetForUpdate(ctx context.Context, id string) (Order, error) {
	o, err := documents.GetForUpdate(ctx, r.tx, id)
	return o, mapErr(err)
}

func (r txRepository) Insert(ctx context.Context, o Order) error {
	return documents.Insert(ctx, r.tx, o.ID, o)
}

func (r txRepository) Replace(ctx context.Context, o Order) error {
	return mapErr(documents.Replace(ctx, r.tx, o.ID, o))
}

func (r txRepository) Delete(ctx context.Context, id string) error {
	return mapErr(documents.Delete(ctx, r.tx, id))
}

func (r txRepository) LockProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	return catalog.Documents.GetManyForUpdate(ctx, r.tx, ids)
}

func (r txRepository) SaveProduct(ctx context.Context, p catalog.Product) error {
	err := catalog.Documents.Replace(ctx, r.tx, p.ID, p)
	if errors.Is(err, docstore.ErrNotFound) {
		return catalog.ErrProductNotFound
	}
	return err
}

func mapErr(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}
