package customers

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

var (
	// ErrCustomerNotFound is returned when the customer does not exist.
	ErrCustomerNotFound = fmt.Errorf("customers: customer %w", shared.ErrNotFound)
	// ErrCustomerInUse blocks deleting a customer that still has orders.
	ErrCustomerInUse = fmt.Errorf("customers: customer has orders: %w", shared.ErrConflict)
)

// Customer is a billing contact.
type Customer struct {
	ID         string    `json:"id" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	State      string    `json:"state,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	GSTIN      string    `json:"gstin,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateCustomerRequest captures a new customer.
type CreateCustomerRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"max=50"`
	Email      string `json:"email" validate:"omitempty,email"`
	Address    string `json:"address" validate:"max=500"`
	City       string `json:"city" validate:"max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	GSTIN      string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// UpdateCustomerRequest patches a customer; nil fields are left unchanged.
type UpdateCustomerRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Address    *string `json:"address,omitempty" validate:"omitempty,max=500"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=100"`
	State      *string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	GSTIN      *string `json:"gstin,omitempty" validate:"omitempty,len=15,alphanum"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ListCustomersRequest filters the customer list.
type ListCustomersRequest struct {
	Search string
	City   string
	SortBy string
	Desc   bool
	Page   shared.PageRequest
}

// FullAddress joins the address parts for printing.
func (c Customer) FullAddress() string {
	out := c.Address
	for _, part := range []string{c.City, c.State, c.PostalCode} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}
