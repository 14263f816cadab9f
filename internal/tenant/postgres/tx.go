package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/epsum/epsumstock/internal/tenant"
)

// tx is the write side of a unit of work.
type tx struct {
	reader
}

var _ tenant.Tx = (*tx)(nil)

var namedTables = map[tenant.EntityKind]string{
	tenant.KindCategory: "categories",
	tenant.KindCustomer: "customers",
	tenant.KindProduct:  "products",
}

func (t *tx) NameTaken(ctx context.Context, owner int64, kind tenant.EntityKind, name string, excludeID int64) (bool, error) {
	table, ok := namedTables[kind]
	if !ok {
		return false, fmt.Errorf("postgres: unknown entity kind %q", kind)
	}
	var taken bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM `+table+` WHERE owner_id = $1 AND name = $2 AND id <> $3)
	`, owner, name, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("postgres: name taken: %w", mapPostgresError(err))
	}
	return taken, nil
}

// mustAffect turns a zero-row write into ErrNotFound.
func mustAffect(rows int64, kind string, id int64) error {
	if rows == 0 {
		return tenant.NotFound(kind, id)
	}
	return nil
}

// quantityInRange rejects levels the INTEGER quantity column cannot hold.
// pgx refuses them client-side with an error the tenant sentinels do not cover.
func quantityInRange(quantity int) error {
	if quantity > tenant.MaxQuantity {
		return &tenant.ValidationError{Fields: map[string]string{
			"quantity": fmt.Sprintf("must be at most %d", tenant.MaxQuantity),
		}}
	}
	return nil
}

func (t *tx) InsertCategory(ctx context.Context, category tenant.Category) (tenant.Category, error) {
	err := t.q.QueryRow(ctx, `
		INSERT INTO categories (owner_id, name) VALUES ($1, $2) RETURNING id
	`, category.OwnerID, category.Name).Scan(&category.ID)
	if err != nil {
		return tenant.Category{}, fmt.Errorf("postgres: insert category: %w", mapPostgresError(err))
	}
	return category, nil
}

func (t *tx) UpdateCategory(ctx context.Context, category tenant.Category) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE categories SET name = $3 WHERE owner_id = $1 AND id = $2
	`, category.OwnerID, category.ID, category.Name)
	if err != nil {
		return fmt.Errorf("postgres: update category: %w", mapPostgresError(err))
	}
	return mustAffect(tag.RowsAffected(), "category", category.ID)
}

func (t *tx) DeleteCategory(ctx context.Context, owner, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM categories WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("postgres: delete category: %w", mapPostgresError(err))
	}
	return mustAffect(tag.RowsAffected(), "category", id)
}

func (t *tx) ClearProductCategory(ctx context.Context, owner, categoryID int64) error {
	_, err := t.q.Exec(ctx, `
		UPDATE products SET category_id = NULL WHERE owner_id = $1 AND category_id = $2
	`, owner, categoryID)
	if err != nil {
		return fmt.Errorf("postgres: clear product category: %w", mapPostgresError(err))
	}
	return nil
}

func (t *tx) InsertCustomer(ctx context.Context, customer tenant.Customer) (tenant.Customer, error) {
	err := t.q.QueryRow(ctx, `
		INSERT INTO customers (owner_id, name, address, phone) VALUES ($1, $2, $3, $4) RETURNING id
	`, customer.OwnerID, customer.Name, customer.Address, customer.Phone).Scan(&customer.ID)
	if err != nil {
		return tenant.Customer{}, fmt.Errorf("postgres: insert customer: %w", mapPostgresError(err))
	}
	return customer, nil
}

func (t *tx) UpdateCustomer(ctx context.Context, customer tenant.Customer) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE customers SET name = $3, address = $4, phone = $5 WHERE owner_id = $1 AND id = $2
	`, customer.OwnerID, customer.ID, customer.Name, customer.Address, customer.Phone)
	if err != nil {
		return fmt.Errorf("postgres: update customer: %w", mapPostgresError(err))
	}
	return mustAffect(tag.RowsAffected(), "customer", customer.ID)
}

func (t *tx) DeleteCustomer(ctx context.Context, owner, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM customers WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("postgres: delete customer: %w", mapPostgresError(err))
	}
	return mustAffect(tag.RowsAffected(), "customer", id)
}

func (t *tx) CustomerReferenced(ctx context.Context, owner, customerID int64) (bool, error) {
	var referenced bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE owner_id = $1 AND customer_id = $2)
	`, owner, customerID).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("postgres: customer referenced: %w", mapPostgresError(err))
	}
	return referenced, nil
}

func (t *tx) InsertProduct(ctx context.Context, product tenant.Product) (tenant.Product, error) {
	if err := quantityInRange(product.Quantity); err != nil {
		return tenant.Product{}, err
	}
	err := t.q.QueryRow(ctx, `
		INSERT INTO products (owner_id, name, category_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, product.OwnerID, product.Name, product.CategoryID, product.Quantity, product.Price).Scan(&product.ID)
	if err != nil {
		return tenant.Product{}, fmt.Errorf("postgres: insert product: %w", mapPostgresError(err))
	}
	return product, nil
}

func (t *tx) UpdateProduct(ctx context.Context, product tenant.Product) error {
	if err := quantityInRange(product.Quantity); err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE products SET name = $3, category_id = $4, quantity = $5, price = $6
		WHERE owner_id = $1 AND id = $2
	`, product.OwnerID, product.ID, product.Name, product.CategoryID, product.Quantity, product.Price)
	if err != nil {
		return fmt.Errorf("postgres: update product: %w", mapPostgresError(err))
	}
	return mustAffect(tag.RowsAffected(), "product", product.ID)
}

func (t *tx) DeleteProduct(ctx context.Context, owner, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM products WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("postgres: delete product: %w", mapPostgresError(err))
	}
	return mustAffect(tag.RowsAffected(), "product", id)
}

func (t *tx) ProductReferenced(ctx context.Context, owner, productID int64) (bool, error) {
	var referenced bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM order_items i
			JOIN orders o ON o.id = i.order_id
			WHERE o.owner_id = $1 AND i.product_id = $2
		)
	`, owner, productID).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("postgres: product referenced: %w", mapPostgresError(err))
	}
	return referenced, nil
}

func (t *tx) LockProducts(ctx context.Context, owner int64, ids []int64) (map[int64]tenant.Product, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rows, err := t.q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE owner_id = $1 AND id = ANY($2)
		ORDER BY id
		FOR UPDATE
	`, owner, sorted)
	if err != nil {
		return nil, fmt.Errorf("postgres: lock products: %w", mapPostgresError(err))
	}
	defer rows.Close()
	out := make(map[int64]tenant.Product, len(sorted))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: lock products: %w", mapPostgresError(err))
	}
	for _, id := range sorted {
		if _, ok := out[id]; !ok {
			return nil, tenant.NotFound("product", id)
		}
	}
	return out, nil
}

func (t *tx) SetProductQuantities(ctx context.Context, owner int64, levels map[int64]int) error {
	ids := make([]int64, 0, len(levels))
	for id := range levels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := quantityInRange(levels[id]); err != nil {
			return err
		}
		tag, err := t.q.Exec(ctx, `
			UPDATE products SET quantity = $3 WHERE owner_id = $1 AND id = $2
		`, owner, id, levels[id])
		if err != nil {
			return fmt.Errorf("postgres: set quantity of product %d: %w", id, mapPostgresError(err))
		}
		if err := mustAffect(tag.RowsAffected(), "product", id); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) LockOrder(ctx context.Context, owner, id int64) (tenant.Order, error) {
	return t.loadOrder(ctx, owner, id, "FOR UPDATE")
}

func (t *tx) insertItems(ctx context.Context, orderID int64, items []tenant.OrderItem) error {
	products := make([]int64, 0, len(items))
	quantities := make([]int64, 0, len(items))
	for _, item := range items {
		products = append(products, item.ProductID)
		quantities = append(quantities, int64(item.Quantity))
	}
	// The cast to integer fails with 22003 instead of truncating.
	_, err := t.q.Exec(ctx, `
		INSERT INTO order_items (order_id, position, product_id, quantity)
		SELECT $1, item.position, item.product_id, item.quantity::integer
		FROM unnest($2::bigint[], $3::bigint[]) WITH ORDINALITY AS item(product_id, quantity, position)
	`, orderID, products, quantities)
	if err != nil {
		return fmt.Errorf("postgres: insert order items: %w", mapPostgresError(err))
	}
	return nil
}

func (t *tx) InsertOrder(ctx context.Context, order tenant.Order) (tenant.Order, error) {
	err := t.q.QueryRow(ctx, `
		INSERT INTO orders (owner_id, status, order_date, customer_id)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, order.OwnerID, string(order.Status), order.Date, order.CustomerID).Scan(&order.ID)
	if err != nil {
		return tenant.Order{}, fmt.Errorf("postgres: insert order: %w", mapPostgresError(err))
	}
	if err := t.insertItems(ctx, order.ID, order.Items); err != nil {
		return tenant.Order{}, err
	}
	return order.Clone(), nil
}

func (t *tx) ReplaceOrder(ctx context.Context, order tenant.Order) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE orders SET status = $3, customer_id = $4 WHERE owner_id = $1 AND id = $2
	`, order.OwnerID, order.ID, string(order.Status), order.CustomerID)
	if err != nil {
		return fmt.Errorf("postgres: update order: %w", mapPostgresError(err))
	}
	if err := mustAffect(tag.RowsAffected(), "order", order.ID); err != nil {
		return err
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("postgres: clear order items: %w", mapPostgresError(err))
	}
	return t.insertItems(ctx, order.ID, order.Items)
}

func (t *tx) DeleteOrder(ctx context.Context, owner, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM orders WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("postgres: delete order: %w", mapPostgresError(err))
	}
	return mustAffect(tag.RowsAffected(), "order", id)
}
