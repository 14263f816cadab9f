// Package memory keeps the tenant data in process. Each unit of work runs
// against a private copy of the state that replaces the live state only when
// the callback succeeds.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/epsum/epsumstock/internal/tenant"
)

type state struct {
	categories map[int64]tenant.Category
	customers  map[int64]tenant.Customer
	products   map[int64]tenant.Product
	orders     map[int64]tenant.Order

	categorySeq int64
	customerSeq int64
	productSeq  int64
	orderSeq    int64
}

func newState() *state {
	return &state{
		categories: make(map[int64]tenant.Category),
		customers:  make(map[int64]tenant.Customer),
		products:   make(map[int64]tenant.Product),
		orders:     make(map[int64]tenant.Order),
	}
}

func (s *state) clone() *state {
	out := &state{
		categories:  make(map[int64]tenant.Category, len(s.categories)),
		customers:   make(map[int64]tenant.Customer, len(s.customers)),
		products:    make(map[int64]tenant.Product, len(s.products)),
		orders:      make(map[int64]tenant.Order, len(s.orders)),
		categorySeq: s.categorySeq,
		customerSeq: s.customerSeq,
		productSeq:  s.productSeq,
		orderSeq:    s.orderSeq,
	}
	for id, c := range s.categories {
		out.categories[id] = c
	}
	for id, c := range s.customers {
		out.customers[id] = c
	}
	for id, p := range s.products {
		out.products[id] = p.Clone()
	}
	for id, o := range s.orders {
		out.orders[id] = o.Clone()
	}
	return out
}

// Store is an in-memory tenant.Store. Writers are serialised; readers load the
// last published state without blocking.
type Store struct {
	mu    sync.Mutex
	state atomic.Pointer[state]
}

var _ tenant.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.state.Store(newState())
	return s
}

// WithTx runs fn against a copy of the state and publishes the copy if fn
// succeeds and ctx is still live.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, tenant.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.Load().clone()
	if err := fn(ctx, &tx{reader: reader{st: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state.Store(work)
	return nil
}

func (s *Store) read() reader {
	return reader{st: s.state.Load()}
}
