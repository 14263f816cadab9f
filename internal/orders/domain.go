package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epsum/epsumstock/internal/tenant"
)

// OrderInput is the desired state of an order. Items repeating the same
// product and quantity are rejected; other repeats of a product are summed.
type OrderInput struct {
	Status     tenant.OrderStatus `json:"status" validate:"required,oneof=UNPAID PAID"`
	CustomerID int64              `json:"customerId" validate:"required,gt=0"`
	Items      []ItemInput        `json:"items" validate:"required,min=1,unique,dive"`
}

// ItemInput is one requested line.
type ItemInput struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,max=2147483647"`
}

func (in OrderInput) items() []tenant.OrderItem {
	out := make([]tenant.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		out = append(out, tenant.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// ItemView is an order line resolved against the current product.
type ItemView struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderView is an order with its customer and products resolved.
type OrderView struct {
	ID            int64              `json:"id"`
	Status        tenant.OrderStatus `json:"status"`
	Date          time.Time          `json:"date"`
	CustomerID    int64              `json:"customerId"`
	CustomerName  string             `json:"customerName"`
	Items         []ItemView         `json:"items"`
	TotalQuantity int                `json:"totalQuantity"`
	TotalAmount   decimal.Decimal    `json:"totalAmount"`
}

// Document is a rendered order.
type Document struct {
	Filename string
	Content  []byte
	Size     int
}

// DocumentRenderer turns a resolved order into a printable file.
type DocumentRenderer interface {
	RenderOrder(ctx context.Context, order OrderView) ([]byte, error)
}

// Recorder observes the outcome of each lifecycle operation.
type Recorder interface {
	ObserveOrder(operation, outcome string)
}

// Config groups service settings.
type Config struct {
	PageSize int
}
