package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/shopdesk/internal/catalog"
	"github.com/odyssey-erp/shopdesk/internal/customers"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

const idempotencyModule = "orders.create"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	CountByCustomer(ctx context.Context, customerID string) (int, error)
	Between(ctx context.Context, from, to time.Time) ([]Order, error)
}

// CustomerLookup resolves the customer an order is placed for.
type CustomerLookup interface {
	Get(ctx context.Context, id string) (customers.Customer, error)
}

// InvoiceLookup reports whether an order has been invoiced.
type InvoiceLookup interface {
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
}

// IdempotencyPort guards against replayed create requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service composes, edits and deletes orders while keeping product stock in step.
type Service struct {
	repo        RepositoryPort
	customers   CustomerLookup
	invoices    InvoiceLookup
	idempotency IdempotencyPort
	audit       AuditPort
	events      shared.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceDeps groups optional collaborators.
type ServiceDeps struct {
	Invoices    InvoiceLookup
	Idempotency IdempotencyPort
	Audit       AuditPort
	Events      shared.EventPublisher
	Logger      *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, customerLookup CustomerLookup, deps ServiceDeps) *Service {
	s := &Service{
		repo:        repo,
		customers:   customerLookup,
		invoices:    deps.Invoices,
		idempotency: deps.Idempotency,
		audit:       deps.Audit,
		events:      deps.Events,
		logger:      deps.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = shared.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SetInvoiceLookup wires the invoice check after construction; invoices depend on orders.
func (s *Service) SetInvoiceLookup(invoices InvoiceLookup) {
	s.invoices = invoices
}

// Create validates every line, draws stock for all of them and stores the
// order in one transaction. If any product is short nothing is written.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (Order, error) {
	if err := validateItems(req, req.Items); err != nil {
		return Order{}, err
	}
	customer, err := s.customers.Get(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Order{}, shared.NewValidationError("customer_id", "unknown customer")
		}
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return Order{}, fmt.Errorf("create order: %w", err)
		}
	}

	now := s.now()
	order := Order{
		ID:                 uuid.NewString(),
		CustomerID:         customer.ID,
		CustomerName:       customer.Name,
		ShippingCost:       req.ShippingCost,
		OutstandingAmount:  req.OutstandingAmount,
		IncludeOutstanding: req.IncludeOutstanding,
		Status:             StatusPending,
		Notes:              req.Notes,
		OrderDate:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		order.OrderDate = req.OrderDate.UTC()
	}

	deltas := make(map[string]float64, len(req.Items))
	for _, it := range req.Items {
		deltas[it.ProductID] += it.Quantity
	}

	var plan stockPlan
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockProducts(ctx, keys(deltas))
		if err != nil {
			return err
		}
		plan, err = planStock(locked, deltas, nil, now)
		if err != nil {
			return err
		}
		order.Items = make([]Item, 0, len(req.Items))
		for _, it := range req.Items {
			order.Items = append(order.Items, newItem(locked[it.ProductID], it, plan.unitCost[it.ProductID]))
		}
		order.Recalculate()
		if err := saveProducts(ctx, tx, plan); err != nil {
			return err
		}
		return tx.Insert(ctx, order)
	})
	if err != nil {
		if idempotencyKey != "" && s.idempotency != nil {
			if delErr := s.idempotency.Delete(ctx, idempotencyKey); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	s.record(ctx, "order.create", order.ID, map[string]any{"total": order.Total, "items": len(order.Items)})
	s.events.Publish(ctx, shared.NewEvent(shared.EventOrderCreated, order.ID, map[string]any{"total": order.Total}))
	s.publishStock(ctx, plan)
	return order, nil
}

// Update replaces the lines and charges of an order. The edit is reconciled
// against the stored lines: removed lines are restocked, changed lines restock
// or draw the difference, added lines draw stock. All products are checked
// before any of them is written.
func (s *Service) Update(ctx context.Context, id string, req UpdateOrderRequest) (Order, error) {
	if err := validateItems(req, req.Items); err != nil {
		return Order{}, err
	}
	now := s.now()
	var (
		updated Order
		plan    stockPlan
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		rec := Reconcile(order.Items, req.Items)
		deltas := rec.StockDeltas()

		ids := make(map[string]float64, len(order.Items)+len(req.Items))
		for _, it := range order.Items {
			ids[it.ProductID] = 0
		}
		for _, it := range req.Items {
			ids[it.ProductID] = 0
		}
		locked, err := tx.LockProducts(ctx, keys(ids))
		if err != nil {
			return err
		}

		previous := make(map[string]Item, len(order.Items))
		hints := make(map[string]float64)
		for _, it := range order.Items {
			previous[it.ProductID] = it
			if p, ok := locked[it.ProductID]; ok {
				hints[it.ProductID] = restockHint(p, it.CostPrice)
			}
		}

		plan, err = planStock(locked, deltas, hints, now)
		if err != nil {
			return err
		}
		for _, skipped := range plan.skipped {
			s.logger.Warn("restock skipped for missing product", slog.String("order_id", id), slog.String("product_id", skipped))
		}

		items := make([]Item, 0, len(req.Items))
		for _, it := range req.Items {
			prev, existed := previous[it.ProductID]
			if !existed {
				items = append(items, newItem(locked[it.ProductID], it, plan.unitCost[it.ProductID]))
				continue
			}
			items = append(items, editItem(prev, it, plan.unitCost[it.ProductID]))
		}

		order.Items = items
		order.ShippingCost = req.ShippingCost
		order.OutstandingAmount = req.OutstandingAmount
		order.IncludeOutstanding = req.IncludeOutstanding
		order.Notes = req.Notes
		if req.OrderDate != nil && !req.OrderDate.IsZero() {
			order.OrderDate = req.OrderDate.UTC()
		}
		order.UpdatedAt = now
		order.Recalculate()
		updated = order

		if err := saveProducts(ctx, tx, plan); err != nil {
			return err
		}
		return tx.Replace(ctx, order)
	})
	if err != nil {
		return Order{}, fmt.Errorf("update order: %w", err)
	}

	s.record(ctx, "order.update", id, map[string]any{"total": updated.Total, "items": len(updated.Items)})
	s.events.Publish(ctx, shared.NewEvent(shared.EventOrderUpdated, id, map[string]any{"total": updated.Total}))
	s.publishStock(ctx, plan)
	return updated, nil
}

// Delete returns every line to stock and removes the order. Invoiced orders
// cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.invoices != nil {
		invoiced, err := s.invoices.ExistsForOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		if invoiced {
			return ErrOrderInvoiced
		}
	}
	now := s.now()
	var plan stockPlan
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		deltas := Reconcile(order.Items, nil).StockDeltas()
		locked, err := tx.LockProducts(ctx, keys(deltas))
		if err != nil {
			return err
		}
		hints := make(map[string]float64, len(order.Items))
		for _, it := range order.Items {
			if p, ok := locked[it.ProductID]; ok {
				hints[it.ProductID] = restockHint(p, it.CostPrice)
			}
		}
		plan, err = planStock(locked, deltas, hints, now)
		if err != nil {
			return err
		}
		for _, skipped := range plan.skipped {
			s.logger.Warn("restock skipped for missing product", slog.String("order_id", id), slog.String("product_id", skipped))
		}
		if err := saveProducts(ctx, tx, plan); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	s.record(ctx, "order.delete", id, nil)
	s.events.Publish(ctx, shared.NewEvent(shared.EventOrderDeleted, id, nil))
	s.publishStock(ctx, plan)
	return nil
}

// UpdateStatus moves an order forward along the fulfilment sequence.
func (s *Service) UpdateStatus(ctx context.Context, id string, req StatusRequest) (Order, error) {
	if err := shared.Validate(req); err != nil {
		return Order{}, err
	}
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanAdvanceTo(req.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, req.Status)
		}
		now := s.now()
		order.Status = req.Status
		order.UpdatedAt = now
		if req.Status == StatusDelivered {
			order.DeliveredAt = &now
		}
		updated = order
		return tx.Replace(ctx, order)
	})
	if err != nil {
		return Order{}, fmt.Errorf("update order status: %w", err)
	}
	s.record(ctx, "order.status", id, map[string]any{"status": string(updated.Status)})
	s.events.Publish(ctx, shared.NewEvent(shared.EventOrderStatus, id, map[string]any{"status": string(updated.Status)}))
	return updated, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of orders.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, shared.NewValidationError("status", "unknown status")
	}
	return s.repo.List(ctx, req)
}

// CountByCustomer counts orders placed for a customer.
func (s *Service) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	return s.repo.CountByCustomer(ctx, customerID)
}

// OrdersBetween returns orders dated in [from, to), used by reports.
func (s *Service) OrdersBetween(ctx context.Context, from, to time.Time) ([]Order, error) {
	return s.repo.Between(ctx, from, to)
}

func validateItems(req any, items []ItemRequest) error {
	if err := shared.Validate(req); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if _, dup := seen[it.ProductID]; dup {
			return shared.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "product listed more than once")
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

func newItem(p catalog.Product, req ItemRequest, unitCost float64) Item {
	it := Item{
		ProductID:     p.ID,
		Name:          p.Name,
		Quantity:      req.Quantity,
		Price:         p.Price,
		OriginalPrice: p.Price,
		CostPrice:     unitCost,
	}
	if req.CustomPrice != nil {
		custom := *req.CustomPrice
		it.CustomPrice = &custom
		it.Price = custom
	}
	return it
}

// editItem keeps the original catalog price of a line across edits and
// blends its cost when the quantity grows.
func editItem(prev Item, req ItemRequest, drawUnitCost float64) Item {
	it := prev
	it.Quantity = req.Quantity
	if req.CustomPrice != nil {
		custom := *req.CustomPrice
		it.CustomPrice = &custom
		it.Price = custom
	} else {
		it.CustomPrice = nil
		it.Price = prev.OriginalPrice
	}
	if grown := req.Quantity - prev.Quantity; grown > 0 && req.Quantity > 0 {
		it.CostPrice = (prev.CostPrice*prev.Quantity + drawUnitCost*grown) / req.Quantity
	}
	return it
}

func saveProducts(ctx context.Context, tx TxRepository, plan stockPlan) error {
	for _, id := range keys(plan.products) {
		if err := tx.SaveProduct(ctx, plan.products[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) publishStock(ctx context.Context, plan stockPlan) {
	for _, id := range keys(plan.products) {
		p := plan.products[id]
		s.events.Publish(ctx, shared.NewEvent(shared.EventStockChanged, id, map[string]any{
			"total_stock":  p.TotalStock,
			"average_cost": p.AverageCost,
		}))
	}
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "order", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit order", slog.String("action", action), slog.Any("error", err))
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
