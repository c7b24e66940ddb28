package invoices

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestCalculateDecomposesEmbeddedTax(t *testing.T) {
	b := Calculate(Input{Lines: []Line{{Price: 525, Quantity: 2}}, TaxRate: 0.05})
	require.Equal(t, "1050.00", Money(b.Subtotal))
	require.Equal(t, "1000.00", Money(b.PretaxSubtotal))
	require.Equal(t, "50.00", Money(b.TotalTax))
	require.Equal(t, "25.00", Money(b.CGST))
	require.Equal(t, "25.00", Money(b.SGST))
	require.True(t, b.CGST.Add(b.SGST).Equal(b.TotalTax))
}

func TestCalculateRoundsPretaxToCents(t *testing.T) {
	b := Calculate(Input{Lines: []Line{{Price: 100, Quantity: 1}}, TaxRate: 0.18})
	// 100 / 1.18 = 84.745...
	require.Equal(t, "84.75", b.PretaxSubtotal.String())
	require.Equal(t, "15.25", b.TotalTax.String())
	require.Equal(t, "7.625", b.CGST.String())
	require.Equal(t, "7.63", Money(b.CGST))
}

func TestCalculateOutstandingInclusion(t *testing.T) {
	in := Input{
		Lines:             []Line{{Price: 250, Quantity: 2}},
		ShippingCost:      ptr(50),
		OutstandingAmount: ptr(100),
		TaxRate:           0.05,
	}
	b := Calculate(in)
	require.Equal(t, "550.00", Money(b.GrandTotal))
	require.True(t, b.Outstanding.IsZero())

	in.IncludeOutstanding = true
	b = Calculate(in)
	require.Equal(t, "550.00", Money(b.OrderTotal))
	require.Equal(t, "650.00", Money(b.GrandTotal))
}

func TestCalculateRoundedTotalHalfUp(t *testing.T) {
	b := Calculate(Input{Lines: []Line{{Price: 10.25, Quantity: 2}}, ShippingCost: ptr(0.25)})
	require.Equal(t, "20.75", Money(b.GrandTotal))
	require.Equal(t, "21", b.RoundedTotal.String())

	b = Calculate(Input{Lines: []Line{{Price: 100.5, Quantity: 1}}})
	require.Equal(t, "101", b.RoundedTotal.String())
}

func TestCalculateDue(t *testing.T) {
	in := Input{Lines: []Line{{Price: 100, Quantity: 3}}, PaidStatus: StatusPartiallyPaid, AmountPaid: 120}
	b := Calculate(in)
	require.Equal(t, "180.00", Money(b.Due))
	require.True(t, b.ShowDue)

	in.PaidStatus, in.AmountPaid = StatusPaid, 300
	b = Calculate(in)
	require.False(t, b.ShowDue)

	in.PaidStatus, in.AmountPaid = StatusUnpaid, 0
	require.True(t, Calculate(in).ShowDue)
}

func TestCalculateFractionalQuantities(t *testing.T) {
	b := Calculate(Input{Lines: []Line{{Price: 0.1, Quantity: 3}, {Price: 80, Quantity: 1.25}}})
	require.Equal(t, "100.3", b.Subtotal.String())
}

func TestAmountInWords(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"0", "Rupees Zero Only"},
		{"7", "Rupees Seven Only"},
		{"1050", "Rupees One Thousand Fifty Only"},
		{"1049.5", "Rupees One Thousand Fifty Only"},
		{"215", "Rupees Two Hundred Fifteen Only"},
		{"100000", "Rupees One Lakh Only"},
		{"2345678", "Rupees Twenty Three Lakh Forty Five Thousand Six Hundred Seventy Eight Only"},
		{"123456789", "Rupees Twelve Crore Thirty Four Lakh Fifty Six Thousand Seven Hundred Eighty Nine Only"},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			require.Equal(t, tc.want, AmountInWords(decimal.RequireFromString(tc.amount), "Rupees"))
		})
	}
	require.Equal(t, "Ninety Only", AmountInWords(decimal.NewFromInt(90), ""))
}
