package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/sales/invoices"
)

// InvoiceRenderer turns a committed invoice into a printable PDF via
// Gotenberg.
type InvoiceRenderer struct {
	client *Client
	tmpl   *template.Template
}

// NewInvoiceRenderer builds the renderer.
func NewInvoiceRenderer(client *Client) *InvoiceRenderer {
	return &InvoiceRenderer{
		client: client,
		tmpl:   template.Must(template.New("invoice").Parse(invoiceTemplate)),
	}
}

type invoiceView struct {
	Number   string
	SaleType string
	IssuedAt string
	Series   string

	Lines []invoiceLineView

	Subtotal    string
	Discount    string
	GrandTotal  string
	Rounding    string
	AmountPaid  string
	Outstanding string
}

type invoiceLineView struct {
	Name   string
	Qty    string
	Rate   string
	Amount string
}

// RenderInvoice renders the invoice to PDF.
func (r *InvoiceRenderer) RenderInvoice(ctx context.Context, inv *invoices.Invoice) ([]byte, error) {
	view := buildView(inv)
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render invoice template: %w", err)
	}
	return r.client.RenderHTML(ctx, buf.String())
}

func buildView(inv *invoices.Invoice) invoiceView {
	p := message.NewPrinter(language.English)
	money := moneyFormatter(p, inv.Currency)

	view := invoiceView{
		Number:      inv.Number,
		SaleType:    string(inv.SaleType),
		IssuedAt:    inv.IssuedAt.Format("2006-01-02"),
		Series:      inv.Series,
		Subtotal:    money(inv.Subtotal),
		Discount:    money(inv.DiscountAmount),
		GrandTotal:  money(inv.GrandTotal),
		Rounding:    money(inv.Rounding),
		AmountPaid:  money(inv.AmountPaid),
		Outstanding: money(inv.Outstanding),
	}
	for _, line := range inv.Lines {
		view.Lines = append(view.Lines, invoiceLineView{
			Name:   line.Name,
			Qty:    p.Sprintf("%v", line.Qty),
			Rate:   money(line.Rate),
			Amount: money(line.Amount),
		})
	}
	return view
}

func moneyFormatter(p *message.Printer, c customers.Currency) func(float64) string {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		unit = currency.USD
	}
	return func(amount float64) string {
		return p.Sprintf("%v", currency.NarrowSymbol(unit.Amount(amount)))
	}
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; font-size: 13px; color: #222; }
h1 { font-size: 20px; margin-bottom: 0; }
.meta { color: #666; margin-bottom: 16px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 6px 8px; border-bottom: 1px solid #ddd; text-align: left; }
th { background: #f5f5f5; }
td.num, th.num { text-align: right; }
.totals { margin-top: 16px; width: 40%; margin-left: auto; }
.totals td { border: none; padding: 3px 8px; }
.totals .grand { font-weight: bold; border-top: 2px solid #222; }
</style>
</head>
<body>
<h1>Invoice {{.Number}}</h1>
<p class="meta">{{.SaleType}} &middot; {{.IssuedAt}}{{if .Series}} &middot; {{.Series}}{{end}}</p>
<table>
<thead><tr><th>Item</th><th class="num">Qty</th><th class="num">Rate</th><th class="num">Amount</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.Name}}</td><td class="num">{{.Qty}}</td><td class="num">{{.Rate}}</td><td class="num">{{.Amount}}</td></tr>
{{end}}</tbody>
</table>
<table class="totals">
<tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
<tr><td>Discount</td><td class="num">{{.Discount}}</td></tr>
<tr><td>Rounding</td><td class="num">{{.Rounding}}</td></tr>
<tr class="grand"><td>Grand Total</td><td class="num">{{.GrandTotal}}</td></tr>
<tr><td>Paid</td><td class="num">{{.AmountPaid}}</td></tr>
<tr><td>Outstanding</td><td class="num">{{.Outstanding}}</td></tr>
</table>
</body>
</html>`
