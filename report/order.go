package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epsum/epsumstock/internal/orders"
)

var orderTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(v decimal.Decimal) string { return v.StringFixed(2) },
	"date":  func(v time.Time) string { return v.Format("2006-01-02 15:04") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Order #{{.ID}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; margin: 32px; }
h1 { font-size: 20px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border-bottom: 1px solid #ddd; padding: 6px; text-align: left; }
td.num, th.num { text-align: right; }
.status { font-weight: bold; }
</style>
</head>
<body>
<h1>Order #{{.ID}}</h1>
<p>Date: {{date .Date}}<br>Customer: {{.CustomerName}}<br>Status: <span class="status">{{.Status}}</span></p>
<table>
<thead><tr><th>Product</th><th class="num">Quantity</th><th class="num">Price</th><th class="num">Amount</th></tr></thead>
<tbody>
{{- range .Items}}
<tr><td>{{.ProductName}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .Price}}</td><td class="num">{{money .Amount}}</td></tr>
{{- end}}
</tbody>
<tfoot><tr><th>Total</th><th class="num">{{.TotalQuantity}}</th><th></th><th class="num">{{money .TotalAmount}}</th></tr></tfoot>
</table>
</body>
</html>
`))

// HTMLRenderer converts HTML into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// OrderRenderer prints orders through an HTML-to-PDF renderer.
type OrderRenderer struct {
	html HTMLRenderer
}

var _ orders.DocumentRenderer = (*OrderRenderer)(nil)

// NewOrderRenderer builds an OrderRenderer.
func NewOrderRenderer(html HTMLRenderer) *OrderRenderer {
	return &OrderRenderer{html: html}
}

// OrderHTML renders the printable page of an order.
func OrderHTML(order orders.OrderView) (string, error) {
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, order); err != nil {
		return "", fmt.Errorf("report: execute order template: %w", err)
	}
	return buf.String(), nil
}

// RenderOrder returns the order as a PDF.
func (r *OrderRenderer) RenderOrder(ctx context.Context, order orders.OrderView) ([]byte, error) {
	html, err := OrderHTML(order)
	if err != nil {
		return nil, err
	}
	return r.html.RenderHTML(ctx, html)
}
