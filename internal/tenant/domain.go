// Package tenant holds the owner-scoped entities of the stock domain and the
// storage ports every business package works against.
package tenant

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/epsum/epsumstock/internal/shared"
)

// OrderStatus enumerates the payment states an order can be in.
type OrderStatus string

const (
	// OrderStatusUnpaid marks an order that has not been settled.
	OrderStatusUnpaid OrderStatus = "UNPAID"
	// OrderStatusPaid marks a settled order; only these count towards sales.
	OrderStatusPaid OrderStatus = "PAID"
)

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusUnpaid || s == OrderStatusPaid
}

// MaxQuantity bounds stock levels, line quantities and per-product demand.
// It matches the INTEGER columns that persist them.
const MaxQuantity = 1<<31 - 1

// EntityKind names the catalog entities that carry a per-owner unique name.
type EntityKind string

const (
	KindCategory EntityKind = "category"
	KindCustomer EntityKind = "customer"
	KindProduct  EntityKind = "product"
)

// Category groups products.
type Category struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"-"`
}

// Customer is the buyer referenced by orders.
type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	OwnerID int64  `json:"-"`
}

// Product carries the stock level maintained by the ledger.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	CategoryID *int64          `json:"categoryId,omitempty"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	OwnerID    int64           `json:"-"`
}

// OrderItem is a line of an order. Amounts are derived on read from the
// product's current price.
type OrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Order owns its items.
type Order struct {
	ID         int64       `json:"id"`
	Status     OrderStatus `json:"status"`
	Date       time.Time   `json:"date"`
	CustomerID int64       `json:"customerId"`
	Items      []OrderItem `json:"items"`
	OwnerID    int64       `json:"-"`
}

// Clone returns a copy that does not share the items slice.
func (o Order) Clone() Order {
	items := make([]OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// Clone returns a copy that does not share the category pointer.
func (p Product) Clone() Product {
	if p.CategoryID != nil {
		id := *p.CategoryID
		p.CategoryID = &id
	}
	return p
}

// PageRequest selects a 1-based page. A zero Size means no limit.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest normalises page numbers below one.
func NewPageRequest(page, size int) PageRequest {
	if page < 1 {
		page = 1
	}
	if size < 0 {
		size = 0
	}
	return PageRequest{Page: page, Size: size}
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	if p.Size <= 0 || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// Page is one slice of a sorted listing together with its pagination metadata.
type Page[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// NewPage assembles a page from the listed items and the total row count.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	perPage := req.Size
	if perPage <= 0 {
		perPage = total
	}
	return Page[T]{Items: items, Pagination: shared.NewPagination(req.Page, perPage, total)}
}
