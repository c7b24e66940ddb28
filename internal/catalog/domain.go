package catalog

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/shopdesk/internal/ledger"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// ErrProductNotFound is returned when the product does not exist.
var ErrProductNotFound = fmt.Errorf("catalog: product %w", shared.ErrNotFound)

// Product is a catalog item with its stock held as FIFO batches.
type Product struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name" validate:"required"`
	Price       float64        `json:"price" validate:"gte=0"`
	Category    string         `json:"category"`
	Image       string         `json:"image,omitempty"`
	Batches     []ledger.Batch `json:"batches" validate:"dive"`
	TotalStock  float64        `json:"total_stock"`
	AverageCost float64        `json:"average_cost"`
	LastCost    float64        `json:"last_cost"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SetBatches replaces the batches and refreshes the derived stock figures.
func (p *Product) SetBatches(batches []ledger.Batch) {
	if batches == nil {
		batches = []ledger.Batch{}
	}
	p.Batches = batches
	p.TotalStock = ledger.TotalStock(batches)
	p.AverageCost = ledger.AverageCost(batches)
}

// CostHint is the unit cost used when stock returns without a known lot:
// the last purchase cost, falling back to the selling price.
func (p Product) CostHint() float64 {
	if p.LastCost > 0 {
		return p.LastCost
	}
	return p.Price
}

// CreateProductRequest captures a new catalog item and its opening stock.
type CreateProductRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Price        float64 `json:"price" validate:"gte=0"`
	Category     string  `json:"category" validate:"max=100"`
	Image        string  `json:"image" validate:"omitempty,url"`
	InitialStock float64 `json:"initial_stock" validate:"gte=0"`
	CostPrice    float64 `json:"cost_price" validate:"gte=0"`
}

// UpdateProductRequest changes descriptive fields; stock moves through restock and write-off.
type UpdateProductRequest struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Price    *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Category *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Image    *string  `json:"image,omitempty" validate:"omitempty,url"`
}

// RestockRequest appends a purchase batch.
type RestockRequest struct {
	Quantity  float64    `json:"quantity" validate:"gt=0"`
	CostPrice float64    `json:"cost_price" validate:"gte=0"`
	DateAdded *time.Time `json:"date_added,omitempty"`
}

// WriteOffRequest removes damaged or lost stock, oldest batches first.
type WriteOffRequest struct {
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Reason   string  `json:"reason" validate:"max=500"`
}

// Sort keys accepted by List.
const (
	SortName      = "name"
	SortPrice     = "price"
	SortStock     = "total_stock"
	SortCreatedAt = "created_at"
)

// ListProductsRequest filters the product list.
type ListProductsRequest struct {
	Search   string
	Category string
	MaxStock *float64
	SortBy   string
	Desc     bool
	Page     shared.PageRequest
}
