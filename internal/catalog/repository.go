package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/shopdesk/internal/platform/db"
	"github.com/odyssey-erp/shopdesk/internal/platform/docstore"
)

// Documents is the products collection, shared with modules that mutate stock
// inside their own transactions.
var Documents = docstore.NewCollection[Product](docstore.Products)

// TxRepository exposes the writes available inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Product, error)
	Insert(ctx context.Context, p Product) error
	Replace(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}

// Repository provides product persistence.
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

// Get loads one product.
func (r *Repository) Get(ctx context.Context, id string) (Product, error) {
	p, err := Documents.Get(ctx, r.pool, id)
	return p, mapErr(err)
}

// List returns a filtered page of products.
func (r *Repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	return Documents.Find(ctx, r.pool, listQuery(req))
}

// All returns every product ordered by name.
func (r *Repository) All(ctx context.Context) ([]Product, error) {
	return Documents.FindAll(ctx, r.pool, docstore.Query{Sort: []docstore.Sort{{Field: "name"}}})
}

func listQuery(req ListProductsRequest) docstore.Query {
	q := docstore.Query{
		Limit:  req.Page.Limit(),
		Offset: req.Page.Offset(),
	}
	if req.Search != "" {
		q.Search = &docstore.Search{Term: req.Search, Fields: []string{"name", "category"}}
	}
	if req.Category != "" {
		q = q.Where("category", docstore.OpEq, req.Category, docstore.Text)
	}
	if req.MaxStock != nil {
		q = q.Where("total_stock", docstore.OpLte, *req.MaxStock, docstore.Number)
	}
	switch req.SortBy {
	case SortPrice, SortStock:
		q.Sort = []docstore.Sort{{Field: req.SortBy, Kind: docstore.Number, Desc: req.Desc}}
	case SortCreatedAt:
		q.Sort = []docstore.Sort{{Field: SortCreatedAt, Kind: docstore.Time, Desc: req.Desc}}
	default:
		q.Sort = []docstore.Sort{{Field: SortName, Desc: req.Desc}}
	}
	return q
}

type txRepository struct {
	tx pgx.Tx
}

func (r txRepository) GetForUpdate(ctx context.Context, id string) (Product, error) {
	p, err := Documents.GetForUpdate(ctx, r.tx, id)
	return p, mapErr(err)
}

func (r txRepository) Insert(ctx context.Context, p Product) error {
	return Documents.Insert(ctx, r.tx, p.ID, p)
}

func (r txRepository) Replace(ctx context.Context, p Product) error {
	return mapErr(Documents.Replace(ctx, r.tx, p.ID, p))
}

func (r txRepository) Delete(ctx context.Context, id string) error {
	return mapErr(Documents.Delete(ctx, r.tx, id))
}

func mapErr(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}
