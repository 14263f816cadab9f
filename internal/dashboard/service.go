// Package dashboard summarises an owner's catalog and sales.
package dashboard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/epsum/epsumstock/internal/tenant"
)

// Source is the read side the dashboard needs.
type Source interface {
	CountCategories(ctx context.Context, owner int64) (int, error)
	CountCustomers(ctx context.Context, owner int64) (int, error)
	CountProducts(ctx context.Context, owner int64) (int, error)
	CountOrders(ctx context.Context, owner int64, status tenant.OrderStatus) (int, error)
	SumOrderAmounts(ctx context.Context, owner int64, status tenant.OrderStatus) (decimal.Decimal, error)
}

// Dashboard holds the headline figures for one owner.
type Dashboard struct {
	TotalCustomers    int             `json:"totalCustomers"`
	TotalCategories   int             `json:"totalCategories"`
	TotalProducts     int             `json:"totalProducts"`
	TotalUnpaidOrders int             `json:"totalUnpaidOrders"`
	TotalPaidOrders   int             `json:"totalPaidOrders"`
	TotalSales        decimal.Decimal `json:"totalSales"`
}

// Service computes dashboards.
type Service struct {
	source Source
}

// NewService builds Service.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Retrieve computes the dashboard from current data. Sales count PAID orders
// only, at today's product prices.
func (s *Service) Retrieve(ctx context.Context, owner int64) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	count := func(name string, dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(ctx)
			if err != nil {
				return fmt.Errorf("dashboard: %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	count("customers", &d.TotalCustomers, func(ctx context.Context) (int, error) {
		return s.source.CountCustomers(ctx, owner)
	})
	count("categories", &d.TotalCategories, func(ctx context.Context) (int, error) {
		return s.source.CountCategories(ctx, owner)
	})
	count("products", &d.TotalProducts, func(ctx context.Context) (int, error) {
		return s.source.CountProducts(ctx, owner)
	})
	count("unpaid orders", &d.TotalUnpaidOrders, func(ctx context.Context) (int, error) {
		return s.source.CountOrders(ctx, owner, tenant.OrderStatusUnpaid)
	})
	count("paid orders", &d.TotalPaidOrders, func(ctx context.Context) (int, error) {
		return s.source.CountOrders(ctx, owner, tenant.OrderStatusPaid)
	})
	g.Go(func() error {
		sales, err := s.source.SumOrderAmounts(ctx, owner, tenant.OrderStatusPaid)
		if err != nil {
			return fmt.Errorf("dashboard: sales: %w", err)
		}
		d.TotalSales = sales.Round(2)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
