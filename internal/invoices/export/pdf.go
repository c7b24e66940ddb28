package export

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/shopdesk/internal/invoices"
	"github.com/odyssey-erp/shopdesk/internal/orders"
)

//go:embed templates/invoice.html
var templates embed.FS

// HTMLRenderer converts an HTML document into a PDF.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, filename, html string) ([]byte, error)
}

// PDFExporter renders printable invoices.
type PDFExporter struct {
	renderer  HTMLRenderer
	templates *template.Template
	printer   *message.Printer
}

// NewPDFExporter parses the invoice template.
func NewPDFExporter(renderer HTMLRenderer) (*PDFExporter, error) {
	p := &PDFExporter{
		renderer: renderer,
		printer:  message.NewPrinter(language.English),
	}
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"formatQty": func(qty float64) string {
			s := fmt.Sprintf("%.4f", qty)
			s = strings.TrimRight(s, "0")
			return strings.TrimRight(s, ".")
		},
		"money":     func(v float64) string { return p.Money(decimal.NewFromFloat(v)) },
		"dmoney":    p.Money,
		"lineTotal": func(it orders.Item) float64 { return it.LineTotal() },
		"halfRate": func(rate decimal.Decimal) string {
			return rate.Mul(decimal.NewFromInt(50)).String()
		},
		"status": func(s invoices.PaidStatus) string {
			return strings.ToUpper(strings.ReplaceAll(string(s), "_", " "))
		},
		"inc": func(i int) int { return i + 1 },
		"now": func() string { return time.Now().Format("02 Jan 2006 15:04") },
	}
	tpl, err := template.New("invoice.html").Funcs(funcMap).ParseFS(templates, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	p.templates = tpl
	return p, nil
}

// Money formats a value with grouping and two decimals.
func (p *PDFExporter) Money(d decimal.Decimal) string {
	return p.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// BuildHTML renders the invoice document.
func (p *PDFExporter) BuildHTML(doc invoices.Document) (string, error) {
	if p == nil || p.templates == nil {
		return "", errors.New("pdf exporter not initialized")
	}
	buf := &bytes.Buffer{}
	if err := p.templates.ExecuteTemplate(buf, "invoice.html", doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderInvoice renders the invoice to HTML and converts it to PDF.
func (p *PDFExporter) RenderInvoice(ctx context.Context, doc invoices.Document) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, errors.New("pdf exporter not initialized")
	}
	html, err := p.BuildHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return p.renderer.RenderHTML(ctx, doc.Invoice.Number+".html", html)
}
