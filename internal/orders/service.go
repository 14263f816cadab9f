// Package orders runs the order lifecycle. Every create, edit and delete moves
// stock through the ledger inside the same unit of work as the order itself.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/epsum/epsumstock/internal/ledger"
	"github.com/epsum/epsumstock/internal/tenant"
)

const defaultPageSize = 8

// ErrRendererMissing indicates Print was called without a document renderer.
var ErrRendererMissing = errors.New("orders: document renderer not configured")

// Service coordinates order operations.
type Service struct {
	store     tenant.Store
	renderer  DocumentRenderer
	recorder  Recorder
	validator *validator.Validate
	pageSize  int
	clock     func() time.Time
}

// NewService builds Service. renderer and recorder may be nil.
func NewService(store tenant.Store, renderer DocumentRenderer, recorder Recorder, cfg Config) *Service {
	size := cfg.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	return &Service{
		store:     store,
		renderer:  renderer,
		recorder:  recorder,
		validator: tenant.NewValidator(),
		pageSize:  size,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func (s *Service) observe(operation string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveOrder(operation, Outcome(err))
	}
}

// Outcome classifies an operation result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, tenant.ErrValidation):
		return "invalid"
	case errors.Is(err, tenant.ErrNotFound):
		return "not_found"
	case errors.Is(err, tenant.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}

// Create reserves stock for every item and stores the order, or changes nothing.
func (s *Service) Create(ctx context.Context, owner int64, input OrderInput) (order tenant.Order, err error) {
	defer func() { s.observe("create", err) }()

	if err := tenant.Validate(s.validator, input); err != nil {
		return tenant.Order{}, err
	}
	draft := tenant.Order{
		Status:     input.Status,
		Date:       s.now(),
		CustomerID: input.CustomerID,
		Items:      input.items(),
		OwnerID:    owner,
	}
	err = s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.GetCustomer(ctx, owner, draft.CustomerID); err != nil {
			return err
		}
		demand, err := ledger.Aggregate(draft.Items)
		if err != nil {
			return err
		}
		if err := ledger.Rebalance(ctx, tx, owner, nil, demand); err != nil {
			return err
		}
		created, err := tx.InsertOrder(ctx, draft)
		if err != nil {
			return fmt.Errorf("orders: insert: %w", err)
		}
		order = created
		return nil
	})
	if err != nil {
		return tenant.Order{}, err
	}
	return order, nil
}

// Update gives back the stock held by the current items, reserves the new
// items against the restored levels and replaces the order's status, customer
// and items. The date is kept.
func (s *Service) Update(ctx context.Context, owner, id int64, input OrderInput) (err error) {
	defer func() { s.observe("update", err) }()

	if err := tenant.Validate(s.validator, input); err != nil {
		return err
	}
	items := input.items()
	return s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		current, err := tx.LockOrder(ctx, owner, id)
		if err != nil {
			return err
		}
		if _, err := tx.GetCustomer(ctx, owner, input.CustomerID); err != nil {
			return err
		}
		held, err := ledger.Aggregate(current.Items)
		if err != nil {
			return err
		}
		demand, err := ledger.Aggregate(items)
		if err != nil {
			return err
		}
		if err := ledger.Rebalance(ctx, tx, owner, held, demand); err != nil {
			return err
		}
		next := tenant.Order{
			ID:         current.ID,
			Status:     input.Status,
			Date:       current.Date,
			CustomerID: input.CustomerID,
			Items:      items,
			OwnerID:    owner,
		}
		if err := tx.ReplaceOrder(ctx, next); err != nil {
			return fmt.Errorf("orders: replace: %w", err)
		}
		return nil
	})
}

// Delete gives back the stock held by the order and removes it.
func (s *Service) Delete(ctx context.Context, owner, id int64) (err error) {
	defer func() { s.observe("delete", err) }()

	return s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		current, err := tx.LockOrder(ctx, owner, id)
		if err != nil {
			return err
		}
		held, err := ledger.Aggregate(current.Items)
		if err != nil {
			return err
		}
		if err := ledger.Rebalance(ctx, tx, owner, held, nil); err != nil {
			return err
		}
		if err := tx.DeleteOrder(ctx, owner, id); err != nil {
			return fmt.Errorf("orders: delete: %w", err)
		}
		return nil
	})
}

// Get returns one resolved order.
func (s *Service) Get(ctx context.Context, owner, id int64) (OrderView, error) {
	order, err := s.store.GetOrder(ctx, owner, id)
	if err != nil {
		return OrderView{}, err
	}
	views, err := resolve(ctx, s.store, owner, []tenant.Order{order})
	if err != nil {
		return OrderView{}, err
	}
	return views[0], nil
}

func parseStatus(status tenant.OrderStatus) (tenant.OrderStatus, error) {
	status = tenant.OrderStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if status != "" && !status.Valid() {
		return "", &tenant.ValidationError{Fields: map[string]string{"status": "must be one of UNPAID PAID"}}
	}
	return status, nil
}

// List returns one page of the owner's orders in status, newest first. An
// empty status lists every order.
func (s *Service) List(ctx context.Context, owner int64, status tenant.OrderStatus, page int) (tenant.Page[OrderView], error) {
	status, err := parseStatus(status)
	if err != nil {
		return tenant.Page[OrderView]{}, err
	}
	req := tenant.NewPageRequest(page, s.pageSize)
	orders, total, err := s.store.ListOrders(ctx, owner, tenant.OrderFilter{Status: status, Page: req})
	if err != nil {
		return tenant.Page[OrderView]{}, fmt.Errorf("orders: list: %w", err)
	}
	views, err := resolve(ctx, s.store, owner, orders)
	if err != nil {
		return tenant.Page[OrderView]{}, err
	}
	return tenant.NewPage(views, req, total), nil
}

// Find returns the owner's orders in status whose customer name contains
// fragment, ignoring case, newest first.
func (s *Service) Find(ctx context.Context, owner int64, status tenant.OrderStatus, fragment string) ([]OrderView, error) {
	status, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	orders, _, err := s.store.ListOrders(ctx, owner, tenant.OrderFilter{Status: status, CustomerName: strings.TrimSpace(fragment)})
	if err != nil {
		return nil, fmt.Errorf("orders: find: %w", err)
	}
	return resolve(ctx, s.store, owner, orders)
}

// Print renders one order into a document.
func (s *Service) Print(ctx context.Context, owner, id int64) (Document, error) {
	if s.renderer == nil {
		return Document{}, ErrRendererMissing
	}
	view, err := s.Get(ctx, owner, id)
	if err != nil {
		return Document{}, err
	}
	content, err := s.renderer.RenderOrder(ctx, view)
	if err != nil {
		return Document{}, fmt.Errorf("orders: render %d: %w", id, err)
	}
	return Document{
		Filename: fmt.Sprintf("order-%d.pdf", id),
		Content:  content,
		Size:     len(content),
	}, nil
}
