package invoices

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ones = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// indianScales groups digits as crore, lakh, thousand, hundred.
var indianScales = []struct {
	value int64
	name  string
}{
	{10000000, "Crore"},
	{100000, "Lakh"},
	{1000, "Thousand"},
	{100, "Hundred"},
}

// AmountInWords spells the amount rounded to a whole unit using Indian
// grouping, e.g. "Rupees One Thousand Fifty Only".
func AmountInWords(amount decimal.Decimal, currencyName string) string {
	n := amount.Round(0).IntPart()
	words := spell(n)
	if n < 0 {
		words = "Minus " + spell(-n)
	}
	if currencyName == "" {
		return words + " Only"
	}
	return currencyName + " " + words + " Only"
}

func spell(n int64) string {
	if n == 0 {
		return "Zero"
	}
	var parts []string
	for _, scale := range indianScales {
		if n >= scale.value {
			parts = append(parts, spell(n/scale.value), scale.name)
			n %= scale.value
		}
	}
	if n > 0 {
		parts = append(parts, belowHundred(n))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
