package reports

import "time"

// Defaults for dashboard filters.
const (
	DefaultLowStockThreshold = 5
	DefaultTopN              = 5
	DefaultWindow            = 30 * 24 * time.Hour
)

// Filter selects the reporting window and section sizes.
type Filter struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	LowStockThreshold float64   `json:"low_stock_threshold"`
	TopN              int       `json:"top_n"`
}

// SalesSummary aggregates orders dated inside the window.
type SalesSummary struct {
	Orders            int            `json:"orders"`
	Revenue           float64        `json:"revenue"`
	Shipping          float64        `json:"shipping"`
	CostOfGoods       float64        `json:"cost_of_goods"`
	GrossProfit       float64        `json:"gross_profit"`
	MarginPercent     float64        `json:"margin_percent"`
	AverageOrderValue float64        `json:"average_order_value"`
	ByStatus          map[string]int `json:"by_status"`
}

// ProductSales ranks a product by revenue in the window.
type ProductSales struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Revenue   float64 `json:"revenue"`
	Profit    float64 `json:"profit"`
}

// LowStockItem is a product at or below the restock threshold.
type LowStockItem struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	TotalStock float64 `json:"total_stock"`
}

// CustomerBalance is the open balance of one customer.
type CustomerBalance struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Invoices     int     `json:"invoices"`
	Due          float64 `json:"due"`
}

// Receivables lists unpaid balances, largest first.
type Receivables struct {
	TotalDue  float64           `json:"total_due"`
	Customers []CustomerBalance `json:"customers"`
}

// CategoryValue is the stock value held in one category.
type CategoryValue struct {
	Category string  `json:"category"`
	Units    float64 `json:"units"`
	Value    float64 `json:"value"`
}

// Valuation is the inventory value at average cost.
type Valuation struct {
	TotalValue float64         `json:"total_value"`
	Categories []CategoryValue `json:"categories"`
}

// Dashboard bundles every report section.
type Dashboard struct {
	Filter      Filter         `json:"filter"`
	Sales       SalesSummary   `json:"sales"`
	TopProducts []ProductSales `json:"top_products"`
	LowStock    []LowStockItem `json:"low_stock"`
	Receivables Receivables    `json:"receivables"`
	Valuation   Valuation      `json:"valuation"`
	GeneratedAt time.Time      `json:"generated_at"`
}
