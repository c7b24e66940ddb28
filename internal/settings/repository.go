package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/shopdesk/internal/platform/docstore"
)

var documents = docstore.NewCollection[CompanySettings](docstore.Settings)

// Repository stores the singleton settings document.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load returns the stored settings, or Defaults when none were saved.
func (r *Repository) Load(ctx context.Context) (CompanySettings, error) {
	s, err := documents.Get(ctx, r.pool, DocumentID)
	if errors.Is(err, docstore.ErrNotFound) {
		return Defaults(), nil
	}
	return s, err
}

// Save writes the settings document.
func (r *Repository) Save(ctx context.Context, s CompanySettings) error {
	return documents.Upsert(ctx, r.pool, DocumentID, s)
}
