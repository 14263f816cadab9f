package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/epsum/epsumstock/internal/tenant"
)

// resolve builds views for orders with two batched lookups.
func resolve(ctx context.Context, r tenant.Reader, owner int64, orders []tenant.Order) ([]OrderView, error) {
	customerSet := make(map[int64]struct{})
	productSet := make(map[int64]struct{})
	for _, o := range orders {
		customerSet[o.CustomerID] = struct{}{}
		for _, item := range o.Items {
			productSet[item.ProductID] = struct{}{}
		}
	}
	customers, err := r.CustomersByID(ctx, owner, keys(customerSet))
	if err != nil {
		return nil, fmt.Errorf("orders: load customers: %w", err)
	}
	products, err := r.ProductsByID(ctx, owner, keys(productSet))
	if err != nil {
		return nil, fmt.Errorf("orders: load products: %w", err)
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, buildView(o, customers, products))
	}
	return views, nil
}

func buildView(o tenant.Order, customers map[int64]tenant.Customer, products map[int64]tenant.Product) OrderView {
	view := OrderView{
		ID:           o.ID,
		Status:       o.Status,
		Date:         o.Date,
		CustomerID:   o.CustomerID,
		CustomerName: customers[o.CustomerID].Name,
		Items:        make([]ItemView, 0, len(o.Items)),
		TotalAmount:  decimal.Zero,
	}
	for _, item := range o.Items {
		p := products[item.ProductID]
		amount := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Items = append(view.Items, ItemView{
			ProductID:   item.ProductID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			Price:       p.Price,
			Amount:      amount,
		})
		view.TotalQuantity += item.Quantity
		view.TotalAmount = view.TotalAmount.Add(amount)
	}
	return view
}

func keys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
