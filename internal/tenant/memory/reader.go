package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/epsum/epsumstock/internal/tenant"
)

// reader answers queries against one state value. Published states are never
// mutated, so a reader needs no lock once it holds the pointer.
type reader struct {
	st *state
}

// containsFold builds its own Caser: a Caser keeps state and must not be
// shared by concurrent readers.
func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	folder := cases.Fold()
	return strings.Contains(folder.String(s), folder.String(substr))
}

func paginate[T any](items []T, page tenant.PageRequest) []T {
	if page.Size <= 0 {
		return items
	}
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func byName[T any](items []T, name func(T) string, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool {
		ni, nj := name(items[i]), name(items[j])
		if ni != nj {
			return ni < nj
		}
		return id(items[i]) < id(items[j])
	})
}

func (r reader) GetCategory(_ context.Context, owner, id int64) (tenant.Category, error) {
	c, ok := r.st.categories[id]
	if !ok || c.OwnerID != owner {
		return tenant.Category{}, tenant.NotFound("category", id)
	}
	return c, nil
}

func (r reader) GetCustomer(_ context.Context, owner, id int64) (tenant.Customer, error) {
	c, ok := r.st.customers[id]
	if !ok || c.OwnerID != owner {
		return tenant.Customer{}, tenant.NotFound("customer", id)
	}
	return c, nil
}

func (r reader) GetProduct(_ context.Context, owner, id int64) (tenant.Product, error) {
	p, ok := r.st.products[id]
	if !ok || p.OwnerID != owner {
		return tenant.Product{}, tenant.NotFound("product", id)
	}
	return p.Clone(), nil
}

func (r reader) GetOrder(_ context.Context, owner, id int64) (tenant.Order, error) {
	o, ok := r.st.orders[id]
	if !ok || o.OwnerID != owner {
		return tenant.Order{}, tenant.NotFound("order", id)
	}
	return o.Clone(), nil
}

func (r reader) ListCategories(_ context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Category, int, error) {
	var out []tenant.Category
	for _, c := range r.st.categories {
		if c.OwnerID == owner && containsFold(c.Name, filter.Search) {
			out = append(out, c)
		}
	}
	byName(out, func(c tenant.Category) string { return c.Name }, func(c tenant.Category) int64 { return c.ID })
	return paginate(out, filter.Page), len(out), nil
}

func (r reader) ListCustomers(_ context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Customer, int, error) {
	var out []tenant.Customer
	for _, c := range r.st.customers {
		if c.OwnerID == owner && containsFold(c.Name, filter.Search) {
			out = append(out, c)
		}
	}
	byName(out, func(c tenant.Customer) string { return c.Name }, func(c tenant.Customer) int64 { return c.ID })
	return paginate(out, filter.Page), len(out), nil
}

func (r reader) ListProducts(_ context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Product, int, error) {
	var out []tenant.Product
	for _, p := range r.st.products {
		if p.OwnerID == owner && containsFold(p.Name, filter.Search) {
			out = append(out, p.Clone())
		}
	}
	byName(out, func(p tenant.Product) string { return p.Name }, func(p tenant.Product) int64 { return p.ID })
	return paginate(out, filter.Page), len(out), nil
}

func (r reader) ListOrders(_ context.Context, owner int64, filter tenant.OrderFilter) ([]tenant.Order, int, error) {
	var out []tenant.Order
	for _, o := range r.st.orders {
		if o.OwnerID != owner {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerName != "" {
			c, ok := r.st.customers[o.CustomerID]
			if !ok || !containsFold(c.Name, filter.CustomerName) {
				continue
			}
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, filter.Page), len(out), nil
}

func (r reader) ProductsByID(_ context.Context, owner int64, ids []int64) (map[int64]tenant.Product, error) {
	out := make(map[int64]tenant.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok && p.OwnerID == owner {
			out[id] = p.Clone()
		}
	}
	return out, nil
}

func (r reader) CustomersByID(_ context.Context, owner int64, ids []int64) (map[int64]tenant.Customer, error) {
	out := make(map[int64]tenant.Customer, len(ids))
	for _, id := range ids {
		if c, ok := r.st.customers[id]; ok && c.OwnerID == owner {
			out[id] = c
		}
	}
	return out, nil
}

func (r reader) CountCategories(_ context.Context, owner int64) (int, error) {
	n := 0
	for _, c := range r.st.categories {
		if c.OwnerID == owner {
			n++
		}
	}
	return n, nil
}

func (r reader) CountCustomers(_ context.Context, owner int64) (int, error) {
	n := 0
	for _, c := range r.st.customers {
		if c.OwnerID == owner {
			n++
		}
	}
	return n, nil
}

func (r reader) CountProducts(_ context.Context, owner int64) (int, error) {
	n := 0
	for _, p := range r.st.products {
		if p.OwnerID == owner {
			n++
		}
	}
	return n, nil
}

func (r reader) CountOrders(_ context.Context, owner int64, status tenant.OrderStatus) (int, error) {
	n := 0
	for _, o := range r.st.orders {
		if o.OwnerID == owner && o.Status == status {
			n++
		}
	}
	return n, nil
}

func (r reader) SumOrderAmounts(_ context.Context, owner int64, status tenant.OrderStatus) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range r.st.orders {
		if o.OwnerID != owner || o.Status != status {
			continue
		}
		for _, item := range o.Items {
			p, ok := r.st.products[item.ProductID]
			if !ok {
				continue
			}
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return total, nil
}

func (s *Store) GetCategory(ctx context.Context, owner, id int64) (tenant.Category, error) {
	return s.read().GetCategory(ctx, owner, id)
}

func (s *Store) GetCustomer(ctx context.Context, owner, id int64) (tenant.Customer, error) {
	return s.read().GetCustomer(ctx, owner, id)
}

func (s *Store) GetProduct(ctx context.Context, owner, id int64) (tenant.Product, error) {
	return s.read().GetProduct(ctx, owner, id)
}

func (s *Store) GetOrder(ctx context.Context, owner, id int64) (tenant.Order, error) {
	return s.read().GetOrder(ctx, owner, id)
}

func (s *Store) ListCategories(ctx context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Category, int, error) {
	return s.read().ListCategories(ctx, owner, filter)
}

func (s *Store) ListCustomers(ctx context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Customer, int, error) {
	return s.read().ListCustomers(ctx, owner, filter)
}

func (s *Store) ListProducts(ctx context.Context, owner int64, filter tenant.ListFilter) ([]tenant.Product, int, error) {
	return s.read().ListProducts(ctx, owner, filter)
}

func (s *Store) ListOrders(ctx context.Context, owner int64, filter tenant.OrderFilter) ([]tenant.Order, int, error) {
	return s.read().ListOrders(ctx, owner, filter)
}

func (s *Store) ProductsByID(ctx context.Context, owner int64, ids []int64) (map[int64]tenant.Product, error) {
	return s.read().ProductsByID(ctx, owner, ids)
}

func (s *Store) CustomersByID(ctx context.Context, owner int64, ids []int64) (map[int64]tenant.Customer, error) {
	return s.read().CustomersByID(ctx, owner, ids)
}

func (s *Store) CountCategories(ctx context.Context, owner int64) (int, error) {
	return s.read().CountCategories(ctx, owner)
}

func (s *Store) CountCustomers(ctx context.Context, owner int64) (int, error) {
	return s.read().CountCustomers(ctx, owner)
}

func (s *Store) CountProducts(ctx context.Context, owner int64) (int, error) {
	return s.read().CountProducts(ctx, owner)
}

func (s *Store) CountOrders(ctx context.Context, owner int64, status tenant.OrderStatus) (int, error) {
	return s.read().CountOrders(ctx, owner, status)
}

func (s *Store) SumOrderAmounts(ctx context.Context, owner int64, status tenant.OrderStatus) (decimal.Decimal, error) {
	return s.read().SumOrderAmounts(ctx, owner, status)
}
