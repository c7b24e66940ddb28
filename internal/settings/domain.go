package settings

import "time"

// DocumentID is the key of the singleton settings document.
const DocumentID = "company"

// Defaults applied when no settings have been saved.
const (
	DefaultTaxRate        = 0.05
	DefaultInvoicePrefix  = "INV"
	DefaultCurrencySymbol = "₹"
	DefaultCurrencyName   = "Rupees"
)

// Bank holds the payment details printed on invoices.
type Bank struct {
	Name          string `json:"name,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
}

// CompanySettings describes the shop as printed on invoices.
type CompanySettings struct {
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	GSTIN          string    `json:"gstin,omitempty"`
	TaxRate        float64   `json:"tax_rate" validate:"gte=0,lt=1"`
	InvoicePrefix  string    `json:"invoice_prefix" validate:"required"`
	CurrencySymbol string    `json:"currency_symbol"`
	CurrencyName   string    `json:"currency_name"`
	Bank           Bank      `json:"bank"`
	LogoURL        string    `json:"logo_url,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Defaults returns the settings used before the first save.
func Defaults() CompanySettings {
	return CompanySettings{
		TaxRate:        DefaultTaxRate,
		InvoicePrefix:  DefaultInvoicePrefix,
		CurrencySymbol: DefaultCurrencySymbol,
		CurrencyName:   DefaultCurrencyName,
	}
}

// UpdateSettingsRequest patches the settings; nil fields are left as they are.
type UpdateSettingsRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Address        *string  `json:"address,omitempty" validate:"omitempty,max=1000"`
	Phone          *string  `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email          *string  `json:"email,omitempty" validate:"omitempty,email"`
	GSTIN          *string  `json:"gstin,omitempty" validate:"omitempty,len=15,alphanum"`
	TaxRate        *float64 `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lt=1"`
	InvoicePrefix  *string  `json:"invoice_prefix,omitempty" validate:"omitempty,min=1,max=12,alphanum"`
	CurrencySymbol *string  `json:"currency_symbol,omitempty" validate:"omitempty,max=5"`
	CurrencyName   *string  `json:"currency_name,omitempty" validate:"omitempty,max=30"`
	Bank           *Bank    `json:"bank,omitempty"`
	LogoURL        *string  `json:"logo_url,omitempty" validate:"omitempty,url"`
}
