package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/shopdesk/internal/platform/db"
	"github.com/odyssey-erp/shopdesk/internal/platform/docstore"
)

var documents = docstore.NewCollection[Customer](docstore.Customers)

// TxRepository exposes the writes available inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Customer, error)
	Insert(ctx context.Context, c Customer) error
	Replace(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id string) error
}

// Repository provides customer persistence.
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

// Get loads one customer.
func (r *Repository) Get(ctx context.Context, id string) (Customer, error) {
	c, err := documents.Get(ctx, r.pool, id)
	return c, mapErr(err)
}

// List returns a filtered page of customers.
func (r *Repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	q := docstore.Query{Limit: req.Page.Limit(), Offset: req.Page.Offset()}
	if req.Search != "" {
		q.Search = &docstore.Search{Term: req.Search, Fields: []string{"name", "phone", "email", "city"}}
	}
	if req.City != "" {
		q = q.Where("city", docstore.OpEq, req.City, docstore.Text)
	}
	switch req.SortBy {
	case "created_at":
		q.Sort = []docstore.Sort{{Field: "created_at", Kind: docstore.Time, Desc: req.Desc}}
	case "city":
		q.Sort = []docstore.Sort{{Field: "city", Desc: req.Desc}, {Field: "name"}}
	default:
		q.Sort = []docstore.Sort{{Field: "name", Desc: req.Desc}}
	}
	return documents.Find(ctx, r.pool, q)
}

type txRepository struct {
	tx pgx.Tx
}

func (r txRepository) GetForUpdate(ctx context.Context, id string) (Customer, error) {
	c, err := documents.GetForUpdate(ctx, r.tx, id)
	return c, mapErr(err)
}

func (r txRepository) Insert(ctx context.Context, c Customer) error {
	return documents.Insert(ctx, r.tx, c.ID, c)
}

func (r txRepository) Replace(ctx context.Context, c Customer) error {
	return mapErr(documents.Replace(ctx, r.tx, c.ID, c))
}

func (r txRepository) Delete(ctx context.Context, id string) error {
	return mapErr(documents.Delete(ctx, r.tx, id))
}

func mapErr(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrCustomerNotFound
	}
	return err
}
