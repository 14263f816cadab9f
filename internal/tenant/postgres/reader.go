package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/epsum/epsumstock/internal/tenant"
)

// reader runs owner-scoped queries on a pool or a transaction.
type reader struct {
	q querier
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a search fragment into an ILIKE substring pattern.
func likePattern(fragment string) string {
	return "%" + likeEscaper.Replace(fragment) + "%"
}

// limitArg returns nil for an unlimited page, which LIMIT reads as no limit.
func limitArg(page tenant.PageRequest) any {
	if page.Size <= 0 {
		return nil
	}
	return page.Size
}

const productColumns = `id, owner_id, name, category_id, quantity, price`

func scanProduct(row pgx.Row) (tenant.Product, error) {
	var p tenant.Product
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CategoryID, &p.Quantity, &p.Price)
	return p, err
}

func scanCustomer(row pgx.Row) (tenant.Customer, error) {
	var c tenant.Customer
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Address, &c.Phone)
	return c, err
}

func scanCategory(row pgx.Row) (tenant.Category, error) {
	var c tenant.Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name)
	return c, err
}

func notFoundOr(err error, kind string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.NotFound(kind, id)
	}
	return fmt.Errorf("postgres: get %s %d: %w", kind, id, mapPostgresError(err))
}

func (r reader) GetCategory(ctx context.Context, owner, id int64) (tenant.Category, error) {
	c, err := scanCategory(r.q.QueryRow(ctx, `
		SELECT id, owner_id, name FROM categories WHERE owner_id = $1 AND id = $2
	`, owner, id))
	if err != nil {
		return tenant.Category{}, notFoundOr(err, "category", id)
	}
	return c, nil
}

func (r reader) GetCustomer(ctx context.Context, owner, id int64) (tenant.Customer, error) {
	c, err := scanCustomer(r.q.QueryRow(ctx, `
		SELECT id, owner_id, name, address, phone FROM customers WHERE owner_id = $1 AND id = $2
	`, owner, id))
	if err != nil {
		return tenant.Customer{}, notFoundOr(err, "customer", id)
	}
	return c, nil
}

func (r reader) GetProduct(ctx context.Context, owner, id int64) (tenant.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `
		SELECT `+productColumns+` FROM products WHERE owner_id = $1 AND id = $2
	`, owner, id))
	if err != nil {
		return tenant.Product{}, notFoundOr(err, "product", id)
	}
	return p, nil
}

func (r reader) GetOrder(ctx context.Context, owner, id int64) (tenant.Order, error) {
	return r.loadOrder(ctx, owner, id, "")
}

// loadOrder reads one order and its items. suffix is appended to the order
// query, e.g. FOR UPDATE.
func (r reader) loadOrder(ctx context.Context, owner, id int64, suffix string) (tenant.Order, error) {
	var o tenant.Order
	err := r.q.QueryRow(ctx, `
		SELECT id, owner_id, status, order_date, customer_id
		FROM orders WHERE owner_id = $1 AND id = $2 `+suffix,
		owner, id).Scan(&o.ID, &o.OwnerID, &o.Status, &o.Date, &o.CustomerID)
	if err != nil {
		return tenant.Order{}, notFoundOr(err, "order", id)
	}
	o.Date = o.Date.UTC()
	items, err := r.orderItems(ctx, []int64{o.ID})
	if err != nil {
		return tenant.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r reader) orderItems(ctx context.Context, orderIDs []int64) (map[int64][]tenant.OrderItem, error) {
	out := make(map[int64][]tenant.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT order_id, product_id, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: query order items: %w", mapPostgresError(err))
	}
	defer rows.Close()
	for rows.Next() {
		var orderID int64
		var item tenant.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("postgres: scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate order items: %w", err)
	}
	return out, nil
}

func (r reader) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", mapPostgresError(err))
	}
	return n, nil
}

// listNamed runs a name-sorted, searchable listing over table.
func listNamed[T any](ctx context.Context, r reader, table, columns string, owner int64, filter tenant.ListFilter, scan func(pgx.Row) (T, error)) ([]T, int, error) {
	pattern := likePattern(filter.Search)
	total, err := r.count(ctx, `SELECT count(*) FROM `+table+` WHERE owner_id = $1 AND name ILIKE $2`, owner, pattern)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+columns+` FROM `+table+`
		WHERE owner_id = $1 AND name ILIKE $2
		ORDER BY name COLLATE "C", id
		LIMIT $3 OFFSET $4
	`, owner, pattern, limitArg(filter.Page), filter.Page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: list %s: %w", table, mapPostgresError(err))
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: scan %s: %w", table, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: iterate %s: %w", table, err)
	}
	return out, total, nil
}

func (r reader) ListCategories(ctx context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Category, int, error) {
	return listNamed(ctx, r, "categories", "id, owner_id, name", owner, filter, scanCategory)
}

func (r reader) ListCustomers(ctx context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Customer, int, error) {
	return listNamed(ctx, r, "customers", "id, owner_id, name, address, phone", owner, filter, scanCustomer)
}

func (r reader) ListProducts(ctx context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Product, int, error) {
	return listNamed(ctx, r, "products", productColumns, owner, filter, scanProduct)
}

func (r reader) ListOrders(ctx context.Context, owner int64, filter tenant.OrderFilter) ([]tenant.Order, int, error) {
	const where = `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.owner_id = $1
		  AND ($2 = '' OR o.status = $2)
		  AND c.name ILIKE $3`
	status := string(filter.Status)
	pattern := likePattern(filter.CustomerName)

	total, err := r.count(ctx, `SELECT count(*) `+where, owner, status, pattern)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `
		SELECT o.id, o.owner_id, o.status, o.order_date, o.customer_id `+where+`
		ORDER BY o.order_date DESC, o.id DESC
		LIMIT $4 OFFSET $5
	`, owner, status, pattern, limitArg(filter.Page), filter.Page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: list orders: %w", mapPostgresError(err))
	}
	var out []tenant.Order
	for rows.Next() {
		var o tenant.Order
		var date time.Time
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.Status, &date, &o.CustomerID); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("postgres: scan order: %w", err)
		}
		o.Date = date.UTC()
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: iterate orders: %w", err)
	}

	ids := make([]int64, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	items, err := r.orderItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, total, nil
}

func (r reader) ProductsByID(ctx context.Context, owner int64, ids []int64) (map[int64]tenant.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+productColumns+` FROM products WHERE owner_id = $1 AND id = ANY($2)
	`, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: products by id: %w", mapPostgresError(err))
	}
	defer rows.Close()
	out := make(map[int64]tenant.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r reader) CustomersByID(ctx context.Context, owner int64, ids []int64) (map[int64]tenant.Customer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, owner_id, name, address, phone FROM customers WHERE owner_id = $1 AND id = ANY($2)
	`, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: customers by id: %w", mapPostgresError(err))
	}
	defer rows.Close()
	out := make(map[int64]tenant.Customer, len(ids))
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan customer: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (r reader) CountCategories(ctx context.Context, owner int64) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM categories WHERE owner_id = $1`, owner)
}

func (r reader) CountCustomers(ctx context.Context, owner int64) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM customers WHERE owner_id = $1`, owner)
}

func (r reader) CountProducts(ctx context.Context, owner int64) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM products WHERE owner_id = $1`, owner)
}

func (r reader) CountOrders(ctx context.Context, owner int64, status tenant.OrderStatus) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM orders WHERE owner_id = $1 AND status = $2`, owner, string(status))
}

func (r reader) SumOrderAmounts(ctx context.Context, owner int64, status tenant.OrderStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(i.quantity * p.price), 0)
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		JOIN products p ON p.id = i.product_id
		WHERE o.owner_id = $1 AND o.status = $2
	`, owner, string(status)).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: sum order amounts: %w", mapPostgresError(err))
	}
	return total, nil
}
