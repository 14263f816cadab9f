// Package ledger is the only writer of product stock levels. Every change runs
// in two phases: all demands are checked against the locked levels first and
// nothing is written unless every check passes.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/epsum/epsumstock/internal/tenant"
)

// Demand maps product ids to a total quantity.
type Demand map[int64]int

// Aggregate sums item quantities per distinct product. A line or a total
// above tenant.MaxQuantity is rejected with *tenant.ValidationError.
func Aggregate(items []tenant.OrderItem) (Demand, error) {
	d := make(Demand, len(items))
	for _, item := range items {
		if item.Quantity > tenant.MaxQuantity || d[item.ProductID] > tenant.MaxQuantity-item.Quantity {
			return nil, &tenant.ValidationError{Fields: map[string]string{
				"items": fmt.Sprintf("total quantity of product %d exceeds %d", item.ProductID, tenant.MaxQuantity),
			}}
		}
		d[item.ProductID] += item.Quantity
	}
	return d, nil
}

// ProductIDs returns the products in the demand in ascending order.
func (d Demand) ProductIDs() []int64 {
	ids := make([]int64, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func union(a, b Demand) []int64 {
	merged := make(Demand, len(a)+len(b))
	for id := range a {
		merged[id] = 0
	}
	for id := range b {
		merged[id] = 0
	}
	return merged.ProductIDs()
}

// Release returns the demand to the given levels.
func Release(levels map[int64]int, d Demand) map[int64]int {
	out := make(map[int64]int, len(levels))
	for id, qty := range levels {
		out[id] = qty
	}
	for id, qty := range d {
		out[id] += qty
	}
	return out
}

// Reserve checks every product in d against levels and returns the reduced
// levels. When any product falls short it returns *tenant.InsufficientStockError
// listing every shortage in ascending product order, and no levels.
func Reserve(levels map[int64]int, d Demand) (map[int64]int, error) {
	var shortages []tenant.Shortage
	for _, id := range d.ProductIDs() {
		if available := levels[id]; d[id] > available {
			shortages = append(shortages, tenant.Shortage{ProductID: id, Requested: d[id], Available: available})
		}
	}
	if len(shortages) > 0 {
		return nil, &tenant.InsufficientStockError{Shortages: shortages}
	}
	out := make(map[int64]int, len(levels))
	for id, qty := range levels {
		out[id] = qty
	}
	for id, qty := range d {
		out[id] -= qty
	}
	return out, nil
}

// Rebalance locks every product touched by release or reserve, gives back the
// released quantities, takes the reserved ones from the restored levels and
// writes the levels that changed. It must run inside a unit of work.
func Rebalance(ctx context.Context, tx tenant.Tx, owner int64, release, reserve Demand) error {
	ids := union(release, reserve)
	if len(ids) == 0 {
		return nil
	}
	locked, err := tx.LockProducts(ctx, owner, ids)
	if err != nil {
		return err
	}
	before := make(map[int64]int, len(locked))
	for id, p := range locked {
		before[id] = p.Quantity
	}

	after, err := Reserve(Release(before, release), reserve)
	if err != nil {
		return err
	}

	changed := make(map[int64]int)
	for id, qty := range after {
		if qty != before[id] {
			changed[id] = qty
		}
	}
	if len(changed) == 0 {
		return nil
	}
	if err := tx.SetProductQuantities(ctx, owner, changed); err != nil {
		return fmt.Errorf("ledger: write levels: %w", err)
	}
	return nil
}
