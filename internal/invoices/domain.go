package invoices

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/shopdesk/internal/orders"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

var (
	// ErrInvoiceNotFound is returned when the invoice does not exist.
	ErrInvoiceNotFound = fmt.Errorf("invoices: invoice %w", shared.ErrNotFound)
	// ErrInvoiceExists is returned when the order already has an invoice.
	ErrInvoiceExists = fmt.Errorf("invoices: order already invoiced: %w", shared.ErrConflict)
)

// PaidStatus tracks settlement of an invoice.
type PaidStatus string

const (
	StatusUnpaid        PaidStatus = "unpaid"
	StatusPartiallyPaid PaidStatus = "partially_paid"
	StatusPaid          PaidStatus = "paid"
)

// Valid reports whether s is a known status.
func (s PaidStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartiallyPaid, StatusPaid:
		return true
	}
	return false
}

// PaymentRecord is one entry of the append-only payment history.
type PaymentRecord struct {
	ID         string     `json:"id"`
	PaidStatus PaidStatus `json:"paid_status"`
	AmountPaid float64    `json:"amount_paid"`
	Delta      float64    `json:"delta"`
	Method     string     `json:"method,omitempty"`
	Note       string     `json:"note,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
	RecordedBy string     `json:"recorded_by"`
}

// CustomerSnapshot is the bill-to block as it was when the invoice was issued.
type CustomerSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
}

// Invoice is an immutable snapshot of an order plus mutable payment fields.
type Invoice struct {
	ID                 string           `json:"id" validate:"required"`
	Number             string           `json:"number" validate:"required"`
	Sequence           int64            `json:"sequence" validate:"gt=0"`
	OrderID            string           `json:"order_id" validate:"required"`
	Customer           CustomerSnapshot `json:"customer"`
	Items              []orders.Item    `json:"items"`
	ShippingCost       *float64         `json:"shipping_cost,omitempty"`
	OutstandingAmount  *float64         `json:"outstanding_amount,omitempty"`
	IncludeOutstanding bool             `json:"include_outstanding"`
	TaxRate            float64          `json:"tax_rate" validate:"gte=0"`
	Total              float64          `json:"total" validate:"gte=0"`
	PaidStatus         PaidStatus       `json:"paid_status" validate:"required"`
	AmountPaid         float64          `json:"amount_paid" validate:"gte=0"`
	PaymentHistory     []PaymentRecord  `json:"payment_history"`
	IssuedAt           time.Time        `json:"issued_at"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// PaymentStatusRequest sets the payment status directly. AmountPaid is only
// read for partially_paid; paid and unpaid imply the amount.
type PaymentStatusRequest struct {
	PaidStatus PaidStatus `json:"paid_status" validate:"required,oneof=paid unpaid partially_paid"`
	AmountPaid *float64   `json:"amount_paid,omitempty" validate:"omitempty,gte=0"`
	Method     string     `json:"method" validate:"max=50"`
	Note       string     `json:"note" validate:"max=500"`
}

// AddPaymentRequest records an incremental payment.
type AddPaymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Method string  `json:"method" validate:"max=50"`
	Note   string  `json:"note" validate:"max=500"`
}

// ListInvoicesRequest filters the invoice list.
type ListInvoicesRequest struct {
	PaidStatus PaidStatus
	CustomerID string
	Search     string
	SortBy     string
	Desc       bool
	// Asc flips the default newest-first order when SortBy is empty.
	Asc  bool
	Page shared.PageRequest
}
