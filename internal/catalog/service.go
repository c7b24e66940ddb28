package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/shopdesk/internal/ledger"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	All(ctx context.Context) ([]Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	events shared.EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, events shared.EventPublisher, logger *slog.Logger) *Service {
	if events == nil {
		events = shared.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, events: events, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds a product, opening a first batch when initial stock is given.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.Validate(req); err != nil {
		return Product{}, err
	}
	now := s.now()
	p := Product{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Price:     req.Price,
		Category:  strings.TrimSpace(req.Category),
		Image:     req.Image,
		LastCost:  req.CostPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var batches []ledger.Batch
	if req.InitialStock > 0 {
		batches = append(batches, ledger.NewBatch(req.InitialStock, req.CostPrice, now))
	}
	p.SetBatches(batches)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Insert(ctx, p)
	})
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.record(ctx, "product.create", p.ID, map[string]any{"name": p.Name, "initial_stock": req.InitialStock})
	s.events.Publish(ctx, shared.NewEvent(shared.EventProductCreated, p.ID, map[string]any{"total_stock": p.TotalStock}))
	return p, nil
}

// Update changes descriptive fields.
func (s *Service) Update(ctx context.Context, id string, req UpdateProductRequest) (Product, error) {
	if err := shared.Validate(req); err != nil {
		return Product{}, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return Product{}, shared.NewValidationError("name", "is required")
	}
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Price != nil {
			p.Price = *req.Price
		}
		if req.Category != nil {
			p.Category = strings.TrimSpace(*req.Category)
		}
		if req.Image != nil {
			p.Image = *req.Image
		}
		p.UpdatedAt = s.now()
		updated = p
		return tx.Replace(ctx, p)
	})
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.record(ctx, "product.update", id, nil)
	s.events.Publish(ctx, shared.NewEvent(shared.EventProductUpdated, id, nil))
	return updated, nil
}

// Delete removes a product. Orders keep their snapshot of its name and price.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.record(ctx, "product.delete", id, nil)
	s.events.Publish(ctx, shared.NewEvent(shared.EventProductDeleted, id, nil))
	return nil
}

// Restock appends a new purchase batch.
func (s *Service) Restock(ctx context.Context, id string, req RestockRequest) (Product, error) {
	if err := shared.Validate(req); err != nil {
		return Product{}, err
	}
	at := s.now()
	if req.DateAdded != nil && !req.DateAdded.IsZero() {
		at = req.DateAdded.UTC()
	}
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		batches := append(append([]ledger.Batch{}, p.Batches...), ledger.NewBatch(req.Quantity, req.CostPrice, at))
		p.SetBatches(batches)
		p.LastCost = req.CostPrice
		p.UpdatedAt = s.now()
		updated = p
		return tx.Replace(ctx, p)
	})
	if err != nil {
		return Product{}, fmt.Errorf("restock product: %w", err)
	}
	s.record(ctx, "product.restock", id, map[string]any{"quantity": req.Quantity, "cost_price": req.CostPrice})
	s.publishStock(ctx, updated)
	return updated, nil
}

// WriteOff removes stock without an order. Insufficient stock rejects the whole request.
func (s *Service) WriteOff(ctx context.Context, id string, req WriteOffRequest) (Product, error) {
	if err := shared.Validate(req); err != nil {
		return Product{}, err
	}
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		batches, shortfall := ledger.Deplete(p.Batches, req.Quantity)
		if shortfall > 0 {
			return &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: req.Quantity,
				Available: p.TotalStock,
			}}}
		}
		p.SetBatches(batches)
		p.UpdatedAt = s.now()
		updated = p
		return tx.Replace(ctx, p)
	})
	if err != nil {
		return Product{}, fmt.Errorf("write off stock: %w", err)
	}
	s.record(ctx, "product.write_off", id, map[string]any{"quantity": req.Quantity, "reason": req.Reason})
	s.publishStock(ctx, updated)
	return updated, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of products.
func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

// AllProducts returns the whole catalog, used by reports.
func (s *Service) AllProducts(ctx context.Context) ([]Product, error) {
	return s.repo.All(ctx)
}

// Categories lists distinct non-empty categories in alphabetical order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Service) publishStock(ctx context.Context, p Product) {
	s.events.Publish(ctx, shared.NewEvent(shared.EventStockChanged, p.ID, map[string]any{
		"total_stock":  p.TotalStock,
		"average_cost": p.AverageCost,
	}))
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "product", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit product", slog.String("action", action), slog.Any("error", err))
	}
}
