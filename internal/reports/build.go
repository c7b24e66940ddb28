package reports

import (
	"sort"

	"github.com/odyssey-erp/shopdesk/internal/catalog"
	"github.com/odyssey-erp/shopdesk/internal/invoices"
	"github.com/odyssey-erp/shopdesk/internal/orders"
)

// Summarize totals the orders of a window. Revenue excludes shipping and
// carried balances.
func Summarize(list []orders.Order) SalesSummary {
	s := SalesSummary{ByStatus: make(map[string]int)}
	for _, o := range list {
		s.Orders++
		s.Revenue += o.Subtotal()
		s.Shipping += o.Shipping()
		s.CostOfGoods += o.CostOfGoods()
		s.ByStatus[string(o.Status)]++
	}
	s.GrossProfit = s.Revenue - s.CostOfGoods
	if s.Revenue > 0 {
		s.MarginPercent = s.GrossProfit / s.Revenue * 100
	}
	if s.Orders > 0 {
		s.AverageOrderValue = s.Revenue / float64(s.Orders)
	}
	return s
}

// TopProducts ranks products by revenue, ties broken by name.
func TopProducts(list []orders.Order, n int) []ProductSales {
	byID := make(map[string]*ProductSales)
	for _, o := range list {
		for _, it := range o.Items {
			ps, ok := byID[it.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: it.ProductID, Name: it.Name}
				byID[it.ProductID] = ps
			}
			ps.Quantity += it.Quantity
			ps.Revenue += it.LineTotal()
			ps.Profit += it.LineTotal() - it.CostPrice*it.Quantity
		}
	}
	out := make([]ProductSales, 0, len(byID))
	for _, ps := range byID {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// LowStock lists products whose stock is at or below threshold, emptiest first.
func LowStock(products []catalog.Product, threshold float64) []LowStockItem {
	out := []LowStockItem{}
	for _, p := range products {
		if p.TotalStock <= threshold {
			out = append(out, LowStockItem{ProductID: p.ID, Name: p.Name, Category: p.Category, TotalStock: p.TotalStock})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalStock != out[j].TotalStock {
			return out[i].TotalStock < out[j].TotalStock
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// OutstandingBalances groups the due amounts of open invoices by customer.
func OutstandingBalances(open []invoices.Invoice) Receivables {
	byCustomer := make(map[string]*CustomerBalance)
	var r Receivables
	for _, inv := range open {
		due := inv.Due()
		if due <= 0 {
			continue
		}
		cb, ok := byCustomer[inv.Customer.ID]
		if !ok {
			cb = &CustomerBalance{CustomerID: inv.Customer.ID, CustomerName: inv.Customer.Name}
			byCustomer[inv.Customer.ID] = cb
		}
		cb.Invoices++
		cb.Due += due
		r.TotalDue += due
	}
	r.Customers = make([]CustomerBalance, 0, len(byCustomer))
	for _, cb := range byCustomer {
		r.Customers = append(r.Customers, *cb)
	}
	sort.Slice(r.Customers, func(i, j int) bool {
		if r.Customers[i].Due != r.Customers[j].Due {
			return r.Customers[i].Due > r.Customers[j].Due
		}
		return r.Customers[i].CustomerName < r.Customers[j].CustomerName
	})
	return r
}

// Value prices the stock on hand at each product's average cost.
func Value(products []catalog.Product) Valuation {
	byCategory := make(map[string]*CategoryValue)
	var v Valuation
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = "uncategorised"
		}
		cv, ok := byCategory[cat]
		if !ok {
			cv = &CategoryValue{Category: cat}
			byCategory[cat] = cv
		}
		value := p.TotalStock * p.AverageCost
		cv.Units += p.TotalStock
		cv.Value += value
		v.TotalValue += value
	}
	v.Categories = make([]CategoryValue, 0, len(byCategory))
	for _, cv := range byCategory {
		v.Categories = append(v.Categories, *cv)
	}
	sort.Slice(v.Categories, func(i, j int) bool { return v.Categories[i].Category < v.Categories[j].Category })
	return v
}
