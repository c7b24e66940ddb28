package orders

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/odyssey-erp/shopdesk/internal/catalog"
	"github.com/odyssey-erp/shopdesk/internal/ledger"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// QuantityChange is a line kept across an edit with a different quantity.
type QuantityChange struct {
	ProductID string
	From      float64
	To        float64
}

// Delta is positive when more stock must be drawn.
func (c QuantityChange) Delta() float64 {
	return c.To - c.From
}

// Reconciliation splits an edit into three disjoint sets keyed by product.
type Reconciliation struct {
	Removed []Item
	Changed []QuantityChange
	Added   []ItemRequest
}

// Reconcile diffs the original lines against the edited request. Lines whose
// quantity is unchanged appear in none of the sets.
func Reconcile(original []Item, edited []ItemRequest) Reconciliation {
	var rec Reconciliation
	before := make(map[string]Item, len(original))
	for _, it := range original {
		before[it.ProductID] = it
	}
	after := make(map[string]struct{}, len(edited))
	for _, req := range edited {
		after[req.ProductID] = struct{}{}
		prev, ok := before[req.ProductID]
		if !ok {
			rec.Added = append(rec.Added, req)
			continue
		}
		if math.Abs(prev.Quantity-req.Quantity) > ledger.Epsilon {
			rec.Changed = append(rec.Changed, QuantityChange{ProductID: req.ProductID, From: prev.Quantity, To: req.Quantity})
		}
	}
	for _, it := range original {
		if _, ok := after[it.ProductID]; !ok {
			rec.Removed = append(rec.Removed, it)
		}
	}
	return rec
}

// StockDeltas folds the reconciliation into a net quantity per product:
// positive values deplete, negative values restock.
func (r Reconciliation) StockDeltas() map[string]float64 {
	deltas := make(map[string]float64)
	for _, it := range r.Removed {
		deltas[it.ProductID] -= it.Quantity
	}
	for _, c := range r.Changed {
		deltas[c.ProductID] += c.Delta()
	}
	for _, a := range r.Added {
		deltas[a.ProductID] += a.Quantity
	}
	return deltas
}

// Empty reports whether the edit leaves stock untouched.
func (r Reconciliation) Empty() bool {
	return len(r.Removed) == 0 && len(r.Changed) == 0 && len(r.Added) == 0
}

// stockPlan holds the computed product updates for one order mutation.
type stockPlan struct {
	products map[string]catalog.Product
	unitCost map[string]float64
	skipped  []string
}

// planStock applies every delta to a copy of the locked products. Nothing is
// written: callers persist plan.products only when err is nil. Depletions of
// unknown products are validation errors; restocks of deleted products are
// skipped and reported.
func planStock(locked map[string]catalog.Product, deltas map[string]float64, hints map[string]float64, now time.Time) (stockPlan, error) {
	plan := stockPlan{
		products: make(map[string]catalog.Product, len(deltas)),
		unitCost: make(map[string]float64, len(deltas)),
	}
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var shortfalls []ledger.Shortfall
	for _, id := range ids {
		delta := deltas[id]
		if math.Abs(delta) <= ledger.Epsilon {
			continue
		}
		p, ok := locked[id]
		if !ok {
			if delta > 0 {
				return stockPlan{}, shared.NewValidationError("items", fmt.Sprintf("unknown product %s", id))
			}
			plan.skipped = append(plan.skipped, id)
			continue
		}
		if delta > 0 {
			plan.unitCost[id] = ledger.DrawCost(p.Batches, delta) / delta
			batches, shortfall := ledger.Deplete(p.Batches, delta)
			if shortfall > 0 {
				shortfalls = append(shortfalls, ledger.Shortfall{
					ProductID: id,
					Name:      p.Name,
					Requested: delta,
					Available: p.TotalStock,
				})
				continue
			}
			p.SetBatches(batches)
		} else {
			hint, ok := hints[id]
			if !ok || hint <= 0 {
				hint = restockHint(p, 0)
			}
			p.SetBatches(ledger.Replenish(p.Batches, -delta, hint, now))
		}
		p.UpdatedAt = now
		plan.products[id] = p
	}
	if len(shortfalls) > 0 {
		return stockPlan{}, &ledger.InsufficientStockError{Shortfalls: shortfalls}
	}
	return plan, nil
}

// restockHint picks the cost for returned units: the line's drawn cost, then
// the product's current average, then its last purchase cost or price.
func restockHint(p catalog.Product, lineCost float64) float64 {
	if lineCost > 0 {
		return lineCost
	}
	if p.AverageCost > 0 {
		return p.AverageCost
	}
	return p.CostHint()
}
