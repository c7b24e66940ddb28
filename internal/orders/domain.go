package orders

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

var (
	// ErrOrderNotFound is returned when the order does not exist.
	ErrOrderNotFound = fmt.Errorf("orders: order %w", shared.ErrNotFound)
	// ErrInvalidTransition is returned for status moves that go backwards.
	ErrInvalidTransition = fmt.Errorf("orders: invalid status transition: %w", shared.ErrConflict)
	// ErrOrderInvoiced blocks deleting an order that already has an invoice.
	ErrOrderInvoiced = fmt.Errorf("orders: order already invoiced: %w", shared.ErrConflict)
)

// Status tracks order fulfilment.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
)

var statusSequence = []Status{StatusPending, StatusProcessing, StatusOutForDelivery, StatusDelivered}

func (s Status) rank() int {
	for i, st := range statusSequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo allows forward moves along the fulfilment sequence, skipping permitted.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Valid() && s.rank() >= 0 && next.rank() > s.rank()
}

// Next returns the following status, false at the end of the sequence.
func (s Status) Next() (Status, bool) {
	r := s.rank()
	if r < 0 || r+1 >= len(statusSequence) {
		return "", false
	}
	return statusSequence[r+1], true
}

// Item is one order line. Price is what the customer pays per unit; when
// CustomPrice is set they are equal. OriginalPrice is the catalog price when
// the line was first ordered and CostPrice the FIFO unit cost drawn for it.
type Item struct {
	ProductID     string   `json:"product_id" validate:"required"`
	Name          string   `json:"name"`
	Quantity      float64  `json:"quantity" validate:"gt=0"`
	Price         float64  `json:"price" validate:"gte=0"`
	OriginalPrice float64  `json:"original_price" validate:"gte=0"`
	CustomPrice   *float64 `json:"custom_price,omitempty"`
	CostPrice     float64  `json:"cost_price" validate:"gte=0"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() float64 {
	return i.Price * i.Quantity
}

// Order is a customer order with its stock already drawn.
type Order struct {
	ID                 string     `json:"id" validate:"required"`
	CustomerID         string     `json:"customer_id" validate:"required"`
	CustomerName       string     `json:"customer_name"`
	Items              []Item     `json:"items" validate:"dive"`
	ShippingCost       *float64   `json:"shipping_cost,omitempty"`
	OutstandingAmount  *float64   `json:"outstanding_amount,omitempty"`
	IncludeOutstanding bool       `json:"include_outstanding"`
	Status             Status     `json:"status" validate:"required"`
	Total              float64    `json:"total"`
	Notes              string     `json:"notes,omitempty"`
	OrderDate          time.Time  `json:"order_date"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
}

// Subtotal sums the line totals.
func (o Order) Subtotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.LineTotal()
	}
	return total
}

// Shipping returns the shipping charge, 0 when absent.
func (o Order) Shipping() float64 {
	if o.ShippingCost == nil {
		return 0
	}
	return *o.ShippingCost
}

// CarriedOutstanding is the prior balance added to the total, 0 unless included.
func (o Order) CarriedOutstanding() float64 {
	if !o.IncludeOutstanding || o.OutstandingAmount == nil {
		return 0
	}
	return *o.OutstandingAmount
}

// CostOfGoods is the FIFO cost drawn for all lines.
func (o Order) CostOfGoods() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.CostPrice * it.Quantity
	}
	return total
}

// Recalculate refreshes Total from the lines and charges.
func (o *Order) Recalculate() {
	o.Total = o.Subtotal() + o.Shipping() + o.CarriedOutstanding()
}

// ItemRequest is one requested line.
type ItemRequest struct {
	ProductID   string   `json:"product_id" validate:"required"`
	Quantity    float64  `json:"quantity" validate:"gt=0"`
	CustomPrice *float64 `json:"custom_price,omitempty" validate:"omitempty,gte=0"`
}

// CreateOrderRequest captures a new order.
type CreateOrderRequest struct {
	CustomerID         string        `json:"customer_id" validate:"required"`
	Items              []ItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingCost       *float64      `json:"shipping_cost,omitempty" validate:"omitempty,gte=0"`
	OutstandingAmount  *float64      `json:"outstanding_amount,omitempty" validate:"omitempty,gte=0"`
	IncludeOutstanding bool          `json:"include_outstanding"`
	Notes              string        `json:"notes" validate:"max=2000"`
	OrderDate          *time.Time    `json:"order_date,omitempty"`
}

// UpdateOrderRequest replaces the lines and charges of an order. OrderDate is
// kept when omitted.
type UpdateOrderRequest struct {
	Items              []ItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingCost       *float64      `json:"shipping_cost,omitempty" validate:"omitempty,gte=0"`
	OutstandingAmount  *float64      `json:"outstanding_amount,omitempty" validate:"omitempty,gte=0"`
	IncludeOutstanding bool          `json:"include_outstanding"`
	Notes              string        `json:"notes" validate:"max=2000"`
	OrderDate          *time.Time    `json:"order_date,omitempty"`
}

// StatusRequest moves an order along the fulfilment sequence.
type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending processing out_for_delivery delivered"`
}

// ListOrdersRequest filters the order list.
type ListOrdersRequest struct {
	Status     Status
	CustomerID string
	Search     string
	From       *time.Time
	To         *time.Time
	SortBy     string
	Desc       bool
	// Asc flips the default newest-first order when SortBy is empty.
	Asc  bool
	Page shared.PageRequest
}
