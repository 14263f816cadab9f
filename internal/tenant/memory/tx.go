package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/epsum/epsumstock/internal/tenant"
)

// tx writes into the private state of one unit of work.
type tx struct {
	reader
}

var _ tenant.Tx = (*tx)(nil)

func (t *tx) NameTaken(_ context.Context, owner int64, kind tenant.EntityKind, name string, excludeID int64) (bool, error) {
	switch kind {
	case tenant.KindCategory:
		for id, c := range t.st.categories {
			if c.OwnerID == owner && c.Name == name && id != excludeID {
				return true, nil
			}
		}
	case tenant.KindCustomer:
		for id, c := range t.st.customers {
			if c.OwnerID == owner && c.Name == name && id != excludeID {
				return true, nil
			}
		}
	case tenant.KindProduct:
		for id, p := range t.st.products {
			if p.OwnerID == owner && p.Name == name && id != excludeID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *tx) InsertCategory(_ context.Context, category tenant.Category) (tenant.Category, error) {
	t.st.categorySeq++
	category.ID = t.st.categorySeq
	t.st.categories[category.ID] = category
	return category, nil
}

func (t *tx) UpdateCategory(ctx context.Context, category tenant.Category) error {
	if _, err := t.GetCategory(ctx, category.OwnerID, category.ID); err != nil {
		return err
	}
	t.st.categories[category.ID] = category
	return nil
}

func (t *tx) DeleteCategory(ctx context.Context, owner, id int64) error {
	if _, err := t.GetCategory(ctx, owner, id); err != nil {
		return err
	}
	delete(t.st.categories, id)
	return nil
}

func (t *tx) ClearProductCategory(_ context.Context, owner, categoryID int64) error {
	for id, p := range t.st.products {
		if p.OwnerID == owner && p.CategoryID != nil && *p.CategoryID == categoryID {
			p.CategoryID = nil
			t.st.products[id] = p
		}
	}
	return nil
}

func (t *tx) InsertCustomer(_ context.Context, customer tenant.Customer) (tenant.Customer, error) {
	t.st.customerSeq++
	customer.ID = t.st.customerSeq
	t.st.customers[customer.ID] = customer
	return customer, nil
}

func (t *tx) UpdateCustomer(ctx context.Context, customer tenant.Customer) error {
	if _, err := t.GetCustomer(ctx, customer.OwnerID, customer.ID); err != nil {
		return err
	}
	t.st.customers[customer.ID] = customer
	return nil
}

func (t *tx) DeleteCustomer(ctx context.Context, owner, id int64) error {
	if _, err := t.GetCustomer(ctx, owner, id); err != nil {
		return err
	}
	delete(t.st.customers, id)
	return nil
}

func (t *tx) CustomerReferenced(_ context.Context, owner, customerID int64) (bool, error) {
	for _, o := range t.st.orders {
		if o.OwnerID == owner && o.CustomerID == customerID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) InsertProduct(_ context.Context, product tenant.Product) (tenant.Product, error) {
	t.st.productSeq++
	product.ID = t.st.productSeq
	t.st.products[product.ID] = product.Clone()
	return product, nil
}

func (t *tx) UpdateProduct(ctx context.Context, product tenant.Product) error {
	if _, err := t.GetProduct(ctx, product.OwnerID, product.ID); err != nil {
		return err
	}
	t.st.products[product.ID] = product.Clone()
	return nil
}

func (t *tx) DeleteProduct(ctx context.Context, owner, id int64) error {
	if _, err := t.GetProduct(ctx, owner, id); err != nil {
		return err
	}
	delete(t.st.products, id)
	return nil
}

func (t *tx) ProductReferenced(_ context.Context, owner, productID int64) (bool, error) {
	for _, o := range t.st.orders {
		if o.OwnerID != owner {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *tx) LockProducts(_ context.Context, owner int64, ids []int64) (map[int64]tenant.Product, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make(map[int64]tenant.Product, len(sorted))
	for _, id := range sorted {
		p, ok := t.st.products[id]
		if !ok || p.OwnerID != owner {
			return nil, tenant.NotFound("product", id)
		}
		out[id] = p.Clone()
	}
	return out, nil
}

func (t *tx) SetProductQuantities(_ context.Context, owner int64, levels map[int64]int) error {
	for id, qty := range levels {
		p, ok := t.st.products[id]
		if !ok || p.OwnerID != owner {
			return tenant.NotFound("product", id)
		}
		if qty < 0 {
			return fmt.Errorf("product %d: negative stock %d: %w", id, qty, tenant.ErrInsufficientStock)
		}
		p.Quantity = qty
		t.st.products[id] = p
	}
	return nil
}

func (t *tx) LockOrder(ctx context.Context, owner, id int64) (tenant.Order, error) {
	return t.GetOrder(ctx, owner, id)
}

func (t *tx) InsertOrder(_ context.Context, order tenant.Order) (tenant.Order, error) {
	t.st.orderSeq++
	order.ID = t.st.orderSeq
	t.st.orders[order.ID] = order.Clone()
	return order, nil
}

func (t *tx) ReplaceOrder(ctx context.Context, order tenant.Order) error {
	current, err := t.GetOrder(ctx, order.OwnerID, order.ID)
	if err != nil {
		return err
	}
	order.Date = current.Date
	t.st.orders[order.ID] = order.Clone()
	return nil
}

func (t *tx) DeleteOrder(ctx context.Context, owner, id int64) error {
	if _, err := t.GetOrder(ctx, owner, id); err != nil {
		return err
	}
	delete(t.st.orders, id)
	return nil
}
