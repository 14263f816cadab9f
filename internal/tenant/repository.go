package tenant

import (
	"context"

	"github.com/shopspring/decimal"
)

// ListFilter narrows catalog listings. Search is a case-insensitive substring
// of the name; results are sorted by name then id.
type ListFilter struct {
	Search string
	Page   PageRequest
}

// OrderFilter narrows order listings. An empty Status matches every status.
// Results are sorted by date then id, newest first.
type OrderFilter struct {
	Status       OrderStatus
	CustomerName string
	Page         PageRequest
}

// Reader exposes owner-scoped reads. Entities of another owner behave as absent.
type Reader interface {
	GetCategory(ctx context.Context, owner, id int64) (Category, error)
	GetCustomer(ctx context.Context, owner, id int64) (Customer, error)
	GetProduct(ctx context.Context, owner, id int64) (Product, error)
	GetOrder(ctx context.Context, owner, id int64) (Order, error)

	ListCategories(ctx context.Context, owner int64, filter ListFilter) ([]Category, int, error)
	ListCustomers(ctx context.Context, owner int64, filter ListFilter) ([]Customer, int, error)
	ListProducts(ctx context.Context, owner int64, filter ListFilter) ([]Product, int, error)
	ListOrders(ctx context.Context, owner int64, filter OrderFilter) ([]Order, int, error)

	// ProductsByID returns the owner's products among ids; missing ids are omitted.
	ProductsByID(ctx context.Context, owner int64, ids []int64) (map[int64]Product, error)
	// CustomersByID returns the owner's customers among ids; missing ids are omitted.
	CustomersByID(ctx context.Context, owner int64, ids []int64) (map[int64]Customer, error)

	CountCategories(ctx context.Context, owner int64) (int, error)
	CountCustomers(ctx context.Context, owner int64) (int, error)
	CountProducts(ctx context.Context, owner int64) (int, error)
	CountOrders(ctx context.Context, owner int64, status OrderStatus) (int, error)
	// SumOrderAmounts totals quantity times current price over the owner's orders in status.
	SumOrderAmounts(ctx context.Context, owner int64, status OrderStatus) (decimal.Decimal, error)
}

// Tx exposes the writes available inside a unit of work.
type Tx interface {
	Reader

	// NameTaken reports whether another entity of kind owned by owner uses name.
	NameTaken(ctx context.Context, owner int64, kind EntityKind, name string, excludeID int64) (bool, error)

	InsertCategory(ctx context.Context, category Category) (Category, error)
	UpdateCategory(ctx context.Context, category Category) error
	DeleteCategory(ctx context.Context, owner, id int64) error
	// ClearProductCategory nulls the category of the owner's products in categoryID.
	ClearProductCategory(ctx context.Context, owner, categoryID int64) error

	InsertCustomer(ctx context.Context, customer Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, customer Customer) error
	DeleteCustomer(ctx context.Context, owner, id int64) error
	CustomerReferenced(ctx context.Context, owner, customerID int64) (bool, error)

	InsertProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, product Product) error
	DeleteProduct(ctx context.Context, owner, id int64) error
	ProductReferenced(ctx context.Context, owner, productID int64) (bool, error)

	// LockProducts locks the owner's products in ascending id order for the rest
	// of the unit of work. Any id that is absent yields ErrNotFound.
	LockProducts(ctx context.Context, owner int64, ids []int64) (map[int64]Product, error)
	// SetProductQuantities writes new stock levels for previously locked products.
	SetProductQuantities(ctx context.Context, owner int64, levels map[int64]int) error

	// LockOrder loads and locks an order with its items.
	LockOrder(ctx context.Context, owner, id int64) (Order, error)
	InsertOrder(ctx context.Context, order Order) (Order, error)
	// ReplaceOrder overwrites status, customer and items of an existing order.
	ReplaceOrder(ctx context.Context, order Order) error
	DeleteOrder(ctx context.Context, owner, id int64) error
}

// Store is the owner-scoped persistence port. Mutations run inside WithTx: when
// fn returns an error nothing it wrote is kept.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}
