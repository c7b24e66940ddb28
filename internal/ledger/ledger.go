// Package ledger implements per-product stock batch accounting: batches are
// consumed oldest first and the remaining lots determine stock and cost.
package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// Epsilon is the tolerance under which a quantity counts as zero.
const Epsilon = 1e-9

// ErrInsufficientStock is returned when a depletion cannot be fully satisfied.
var ErrInsufficientStock = fmt.Errorf("ledger: insufficient stock: %w", shared.ErrConflict)

// Batch is a dated purchase lot with its own unit cost.
type Batch struct {
	ID        string    `json:"id" validate:"required"`
	Quantity  float64   `json:"quantity" validate:"gte=0"`
	CostPrice float64   `json:"cost_price" validate:"gte=0"`
	DateAdded time.Time `json:"date_added"`
}

// NewBatch creates a batch with a fresh identifier.
func NewBatch(quantity, costPrice float64, at time.Time) Batch {
	return Batch{
		ID:        uuid.NewString(),
		Quantity:  quantity,
		CostPrice: costPrice,
		DateAdded: at.UTC(),
	}
}

// Deplete consumes quantity from the oldest batches first. Batches that reach
// zero are dropped. The unsatisfied remainder is returned as shortfall; the
// input slice is never modified.
func Deplete(batches []Batch, quantity float64) ([]Batch, float64) {
	out := make([]Batch, 0, len(batches))
	remaining := quantity
	for _, b := range batches {
		if remaining > Epsilon {
			take := b.Quantity
			if take > remaining {
				take = remaining
			}
			b.Quantity -= take
			remaining -= take
		}
		if b.Quantity > Epsilon {
			out = append(out, b)
		}
	}
	if remaining <= Epsilon {
		remaining = 0
	}
	return out, remaining
}

// Replenish returns quantity to stock. It is added to the first (oldest)
// batch when one exists, which loses the original cost attribution of the
// returned units. Without batches a new one dated now is created at costHint.
func Replenish(batches []Batch, quantity, costHint float64, now time.Time) []Batch {
	out := make([]Batch, len(batches), len(batches)+1)
	copy(out, batches)
	if quantity <= Epsilon {
		return out
	}
	if len(out) > 0 {
		out[0].Quantity += quantity
		return out
	}
	return append(out, NewBatch(quantity, costHint, now))
}

// TotalStock sums batch quantities.
func TotalStock(batches []Batch) float64 {
	var total float64
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}

// AverageCost is the stock weighted mean unit cost, 0 without stock.
func AverageCost(batches []Batch) float64 {
	var qty, value float64
	for _, b := range batches {
		qty += b.Quantity
		value += b.Quantity * b.CostPrice
	}
	if qty <= Epsilon {
		return 0
	}
	return value / qty
}

// DrawCost is the total FIFO cost of the units Deplete would take for quantity.
func DrawCost(batches []Batch, quantity float64) float64 {
	var cost float64
	remaining := quantity
	for _, b := range batches {
		if remaining <= Epsilon {
			break
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		cost += take * b.CostPrice
		remaining -= take
	}
	return cost
}

// Shortfall describes one product that cannot cover a requested quantity.
type Shortfall struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Requested float64 `json:"requested"`
	Available float64 `json:"available"`
}

// InsufficientStockError lists every product that blocked a stock mutation.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		label := s.Name
		if label == "" {
			label = s.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s (requested %s, available %s)", label, formatQty(s.Requested), formatQty(s.Available)))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, ", ")
}

// Unwrap exposes ErrInsufficientStock.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

func formatQty(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
