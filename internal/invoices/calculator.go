package invoices

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/shopdesk/internal/orders"
)

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Line is the priced quantity the calculator needs from an order line.
type Line struct {
	Price    float64
	Quantity float64
}

// Input is everything the calculator reads. Prices already include tax.
type Input struct {
	Lines              []Line
	ShippingCost       *float64
	OutstandingAmount  *float64
	IncludeOutstanding bool
	TaxRate            float64
	PaidStatus         PaidStatus
	AmountPaid         float64
}

// Breakdown is the full invoice arithmetic. Values keep full precision;
// Money rounds for display.
type Breakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	PretaxSubtotal decimal.Decimal `json:"pretax_subtotal"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Shipping       decimal.Decimal `json:"shipping"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	RoundedTotal   decimal.Decimal `json:"rounded_total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Due            decimal.Decimal `json:"due"`
	ShowDue        bool            `json:"show_due"`
}

// Calculate decomposes the embedded tax and totals the invoice.
func Calculate(in Input) Breakdown {
	subtotal := decimal.Zero
	for _, l := range in.Lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromFloat(l.Quantity)))
	}
	rate := decimal.NewFromFloat(in.TaxRate)
	pretax := subtotal.Div(one.Add(rate)).Round(2)
	tax := subtotal.Sub(pretax)
	half := tax.Div(two)

	shipping := optional(in.ShippingCost)
	orderTotal := subtotal.Add(shipping)
	outstanding := decimal.Zero
	if in.IncludeOutstanding {
		outstanding = optional(in.OutstandingAmount)
	}
	grand := orderTotal.Add(outstanding)
	paid := decimal.NewFromFloat(in.AmountPaid)
	due := grand.Sub(paid)

	return Breakdown{
		Subtotal:       subtotal,
		PretaxSubtotal: pretax,
		TotalTax:       tax,
		CGST:           half,
		SGST:           half,
		TaxRate:        rate,
		Shipping:       shipping,
		OrderTotal:     orderTotal,
		Outstanding:    outstanding,
		GrandTotal:     grand,
		RoundedTotal:   grand.Round(0),
		AmountPaid:     paid,
		Due:            due,
		ShowDue:        in.PaidStatus != StatusPaid && due.IsPositive(),
	}
}

// InputFromOrder prepares an unpaid calculation for an order.
func InputFromOrder(o orders.Order, taxRate float64) Input {
	return Input{
		Lines:              linesOf(o.Items),
		ShippingCost:       o.ShippingCost,
		OutstandingAmount:  o.OutstandingAmount,
		IncludeOutstanding: o.IncludeOutstanding,
		TaxRate:            taxRate,
		PaidStatus:         StatusUnpaid,
	}
}

// InputFromInvoice prepares a calculation from an invoice snapshot.
func InputFromInvoice(inv Invoice) Input {
	return Input{
		Lines:              linesOf(inv.Items),
		ShippingCost:       inv.ShippingCost,
		OutstandingAmount:  inv.OutstandingAmount,
		IncludeOutstanding: inv.IncludeOutstanding,
		TaxRate:            inv.TaxRate,
		PaidStatus:         inv.PaidStatus,
		AmountPaid:         inv.AmountPaid,
	}
}

// Money renders a value with two decimals, rounding half away from zero.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Due is the unpaid remainder, zero when settled.
func (inv Invoice) Due() float64 {
	b := Calculate(InputFromInvoice(inv))
	if !b.ShowDue {
		return 0
	}
	return b.Due.InexactFloat64()
}

func linesOf(items []orders.Item) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Price: it.Price, Quantity: it.Quantity})
	}
	return lines
}

func optional(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}
