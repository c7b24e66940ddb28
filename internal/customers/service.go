package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
}

// OrderCounter reports how many orders reference a customer.
type OrderCounter interface {
	CountByCustomer(ctx context.Context, customerID string) (int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates customer operations.
type Service struct {
	repo   RepositoryPort
	orders OrderCounter
	audit  AuditPort
	events shared.EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service. orders may be nil, in which case deletes are not guarded.
func NewService(repo RepositoryPort, orders OrderCounter, audit AuditPort, events shared.EventPublisher, logger *slog.Logger) *Service {
	if events == nil {
		events = shared.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, orders: orders, audit: audit, events: events, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// SetOrderCounter wires the order lookup after construction; orders depend on customers.
func (s *Service) SetOrderCounter(orders OrderCounter) {
	s.orders = orders
}

// Create stores a new customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.GSTIN = strings.ToUpper(strings.TrimSpace(req.GSTIN))
	if err := shared.Validate(req); err != nil {
		return Customer{}, err
	}
	now := s.now()
	c := Customer{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Phone:      strings.TrimSpace(req.Phone),
		Email:      strings.TrimSpace(req.Email),
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		GSTIN:      req.GSTIN,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Insert(ctx, c)
	})
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	s.record(ctx, "customer.create", c.ID, map[string]any{"name": c.Name})
	s.events.Publish(ctx, shared.NewEvent(shared.EventCustomerCreated, c.ID, nil))
	return c, nil
}

// Update patches a customer.
func (s *Service) Update(ctx context.Context, id string, req UpdateCustomerRequest) (Customer, error) {
	if req.GSTIN != nil {
		v := strings.ToUpper(strings.TrimSpace(*req.GSTIN))
		req.GSTIN = &v
	}
	if err := shared.Validate(req); err != nil {
		return Customer{}, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return Customer{}, shared.NewValidationError("name", "is required")
	}
	var updated Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		apply := func(dst *string, src *string) {
			if src != nil {
				*dst = strings.TrimSpace(*src)
			}
		}
		apply(&c.Name, req.Name)
		apply(&c.Phone, req.Phone)
		apply(&c.Email, req.Email)
		apply(&c.Address, req.Address)
		apply(&c.City, req.City)
		apply(&c.State, req.State)
		apply(&c.PostalCode, req.PostalCode)
		apply(&c.GSTIN, req.GSTIN)
		if req.Notes != nil {
			c.Notes = *req.Notes
		}
		c.UpdatedAt = s.now()
		updated = c
		return tx.Replace(ctx, c)
	})
	if err != nil {
		return Customer{}, fmt.Errorf("update customer: %w", err)
	}
	s.record(ctx, "customer.update", id, nil)
	s.events.Publish(ctx, shared.NewEvent(shared.EventCustomerUpdated, id, nil))
	return updated, nil
}

// Delete removes a customer without orders.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.orders != nil {
		n, err := s.orders.CountByCustomer(ctx, id)
		if err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		if n > 0 {
			return ErrCustomerInUse
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	s.record(ctx, "customer.delete", id, nil)
	s.events.Publish(ctx, shared.NewEvent(shared.EventCustomerDeleted, id, nil))
	return nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of customers.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "customer", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit customer", slog.String("action", action), slog.Any("error", err))
	}
}
