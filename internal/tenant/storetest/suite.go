// Package storetest holds the behaviour every tenant.Store implementation must
// share. Implementations run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/epsum/epsumstock/internal/tenant"
)

// Suite exercises a tenant.Store. NewStore must return an empty store.
type Suite struct {
	suite.Suite
	NewStore func(t *testing.T) tenant.Store

	store tenant.Store
	ctx   context.Context
}

const (
	ownerA int64 = 1
	ownerB int64 = 2
)

var errBoom = errors.New("boom")

// SetupTest creates a fresh store for every test.
func (s *Suite) SetupTest() {
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
}

func (s *Suite) tx(fn func(tx tenant.Tx)) {
	s.Require().NoError(s.store.WithTx(s.ctx, func(ctx context.Context, tx tenant.Tx) error {
		fn(tx)
		return nil
	}))
}

func (s *Suite) seedProduct(owner int64, name string, qty int, price string) tenant.Product {
	var out tenant.Product
	s.tx(func(tx tenant.Tx) {
		p, err := tx.InsertProduct(s.ctx, tenant.Product{Name: name, Quantity: qty, Price: decimal.RequireFromString(price), OwnerID: owner})
		s.Require().NoError(err)
		out = p
	})
	return out
}

func (s *Suite) seedCustomer(owner int64, name string) tenant.Customer {
	var out tenant.Customer
	s.tx(func(tx tenant.Tx) {
		c, err := tx.InsertCustomer(s.ctx, tenant.Customer{Name: name, Address: "Street 1", Phone: "555", OwnerID: owner})
		s.Require().NoError(err)
		out = c
	})
	return out
}

func (s *Suite) seedOrder(order tenant.Order) tenant.Order {
	var out tenant.Order
	s.tx(func(tx tenant.Tx) {
		o, err := tx.InsertOrder(s.ctx, order)
		s.Require().NoError(err)
		out = o
	})
	return out
}

func (s *Suite) TestEntitiesAreOwnerScoped() {
	var category tenant.Category
	s.tx(func(tx tenant.Tx) {
		c, err := tx.InsertCategory(s.ctx, tenant.Category{Name: "Tools", OwnerID: ownerA})
		s.Require().NoError(err)
		category = c
	})

	got, err := s.store.GetCategory(s.ctx, ownerA, category.ID)
	s.Require().NoError(err)
	s.Equal("Tools", got.Name)

	_, err = s.store.GetCategory(s.ctx, ownerB, category.ID)
	s.ErrorIs(err, tenant.ErrNotFound)

	items, total, err := s.store.ListCategories(s.ctx, ownerB, tenant.ListFilter{})
	s.Require().NoError(err)
	s.Empty(items)
	s.Zero(total)

	err = s.store.WithTx(s.ctx, func(ctx context.Context, tx tenant.Tx) error {
		return tx.DeleteCategory(ctx, ownerB, category.ID)
	})
	s.ErrorIs(err, tenant.ErrNotFound)
}

func (s *Suite) TestNameTakenIsPerOwnerAndKind() {
	product := s.seedProduct(ownerA, "Widget", 1, "1.00")

	s.tx(func(tx tenant.Tx) {
		taken, err := tx.NameTaken(s.ctx, ownerA, tenant.KindProduct, "Widget", 0)
		s.Require().NoError(err)
		s.True(taken)

		taken, err = tx.NameTaken(s.ctx, ownerA, tenant.KindProduct, "Widget", product.ID)
		s.Require().NoError(err)
		s.False(taken)

		taken, err = tx.NameTaken(s.ctx, ownerB, tenant.KindProduct, "Widget", 0)
		s.Require().NoError(err)
		s.False(taken)

		taken, err = tx.NameTaken(s.ctx, ownerA, tenant.KindCategory, "Widget", 0)
		s.Require().NoError(err)
		s.False(taken)
	})
}

func (s *Suite) TestListSortsByNameAndPages() {
	for _, name := range []string{"Cherry", "apple", "Banana"} {
		s.seedProduct(ownerA, name, 1, "1.00")
	}
	s.seedProduct(ownerB, "Avocado", 1, "1.00")

	items, total, err := s.store.ListProducts(s.ctx, ownerA, tenant.ListFilter{Page: tenant.NewPageRequest(1, 2)})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(items, 2)
	s.Equal("Banana", items[0].Name)
	s.Equal("Cherry", items[1].Name)

	items, _, err = s.store.ListProducts(s.ctx, ownerA, tenant.ListFilter{Page: tenant.NewPageRequest(2, 2)})
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("apple", items[0].Name)

	items, total, err = s.store.ListProducts(s.ctx, ownerA, tenant.ListFilter{Search: "AN"})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("Banana", items[0].Name)
}

func (s *Suite) TestFailedUnitOfWorkLeavesNoTrace() {
	product := s.seedProduct(ownerA, "Widget", 5, "2.50")

	err := s.store.WithTx(s.ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.InsertCategory(ctx, tenant.Category{Name: "Ghost", OwnerID: ownerA}); err != nil {
			return err
		}
		if err := tx.SetProductQuantities(ctx, ownerA, map[int64]int{product.ID: 1}); err != nil {
			return err
		}
		return errBoom
	})
	s.ErrorIs(err, errBoom)

	n, err := s.store.CountCategories(s.ctx, ownerA)
	s.Require().NoError(err)
	s.Zero(n)
	got, err := s.store.GetProduct(s.ctx, ownerA, product.ID)
	s.Require().NoError(err)
	s.Equal(5, got.Quantity)
}

func (s *Suite) TestLockProductsRequiresEveryID() {
	a := s.seedProduct(ownerA, "A", 1, "1.00")
	foreign := s.seedProduct(ownerB, "B", 1, "1.00")

	s.tx(func(tx tenant.Tx) {
		locked, err := tx.LockProducts(s.ctx, ownerA, []int64{a.ID})
		s.Require().NoError(err)
		s.Equal(1, locked[a.ID].Quantity)
	})

	err := s.store.WithTx(s.ctx, func(ctx context.Context, tx tenant.Tx) error {
		_, err := tx.LockProducts(ctx, ownerA, []int64{a.ID, foreign.ID})
		return err
	})
	s.ErrorIs(err, tenant.ErrNotFound)
}

func (s *Suite) TestOrderRoundTripAndListing() {
	alice := s.seedCustomer(ownerA, "Alice Smith")
	bob := s.seedCustomer(ownerA, "Bob Jones")
	p1 := s.seedProduct(ownerA, "P1", 10, "1.50")
	p2 := s.seedProduct(ownerA, "P2", 10, "2.00")

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	first := s.seedOrder(tenant.Order{Status: tenant.OrderStatusPaid, Date: day, CustomerID: alice.ID, OwnerID: ownerA,
		Items: []tenant.OrderItem{{ProductID: p2.ID, Quantity: 2}, {ProductID: p1.ID, Quantity: 1}}})
	second := s.seedOrder(tenant.Order{Status: tenant.OrderStatusUnpaid, Date: day, CustomerID: bob.ID, OwnerID: ownerA,
		Items: []tenant.OrderItem{{ProductID: p1.ID, Quantity: 3}}})
	third := s.seedOrder(tenant.Order{Status: tenant.OrderStatusPaid, Date: day.AddDate(0, 0, 1), CustomerID: bob.ID, OwnerID: ownerA,
		Items: []tenant.OrderItem{{ProductID: p2.ID, Quantity: 1}}})

	got, err := s.store.GetOrder(s.ctx, ownerA, first.ID)
	s.Require().NoError(err)
	s.Equal(tenant.OrderStatusPaid, got.Status)
	s.Equal(alice.ID, got.CustomerID)
	s.True(day.Equal(got.Date))
	s.Equal([]tenant.OrderItem{{ProductID: p2.ID, Quantity: 2}, {ProductID: p1.ID, Quantity: 1}}, got.Items)

	_, err = s.store.GetOrder(s.ctx, ownerB, first.ID)
	s.ErrorIs(err, tenant.ErrNotFound)

	orders, total, err := s.store.ListOrders(s.ctx, ownerA, tenant.OrderFilter{})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Equal([]int64{third.ID, second.ID, first.ID}, orderIDs(orders))

	orders, total, err = s.store.ListOrders(s.ctx, ownerA, tenant.OrderFilter{Status: tenant.OrderStatusPaid, Page: tenant.NewPageRequest(1, 1)})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal([]int64{third.ID}, orderIDs(orders))

	orders, _, err = s.store.ListOrders(s.ctx, ownerA, tenant.OrderFilter{CustomerName: "alice"})
	s.Require().NoError(err)
	s.Equal([]int64{first.ID}, orderIDs(orders))

	count, err := s.store.CountOrders(s.ctx, ownerA, tenant.OrderStatusPaid)
	s.Require().NoError(err)
	s.Equal(2, count)

	sum, err := s.store.SumOrderAmounts(s.ctx, ownerA, tenant.OrderStatusPaid)
	s.Require().NoError(err)
	s.Equal("7.50", sum.StringFixed(2))

	s.tx(func(tx tenant.Tx) {
		locked, err := tx.LockOrder(s.ctx, ownerA, second.ID)
		s.Require().NoError(err)
		locked.Status = tenant.OrderStatusPaid
		locked.CustomerID = alice.ID
		locked.Items = []tenant.OrderItem{{ProductID: p2.ID, Quantity: 4}}
		s.Require().NoError(tx.ReplaceOrder(s.ctx, locked))
	})
	got, err = s.store.GetOrder(s.ctx, ownerA, second.ID)
	s.Require().NoError(err)
	s.Equal(tenant.OrderStatusPaid, got.Status)
	s.Equal(alice.ID, got.CustomerID)
	s.Equal([]tenant.OrderItem{{ProductID: p2.ID, Quantity: 4}}, got.Items)
	s.True(day.Equal(got.Date))

	s.tx(func(tx tenant.Tx) {
		referenced, err := tx.CustomerReferenced(s.ctx, ownerA, bob.ID)
		s.Require().NoError(err)
		s.True(referenced)
		referenced, err = tx.ProductReferenced(s.ctx, ownerA, p1.ID)
		s.Require().NoError(err)
		s.True(referenced)
		s.Require().NoError(tx.DeleteOrder(s.ctx, ownerA, first.ID))
		referenced, err = tx.ProductReferenced(s.ctx, ownerA, p1.ID)
		s.Require().NoError(err)
		s.False(referenced)
	})
	_, err = s.store.GetOrder(s.ctx, ownerA, first.ID)
	s.ErrorIs(err, tenant.ErrNotFound)
}

func (s *Suite) TestClearProductCategory() {
	var category tenant.Category
	var product tenant.Product
	s.tx(func(tx tenant.Tx) {
		var err error
		category, err = tx.InsertCategory(s.ctx, tenant.Category{Name: "Fruit", OwnerID: ownerA})
		s.Require().NoError(err)
		id := category.ID
		product, err = tx.InsertProduct(s.ctx, tenant.Product{Name: "Apple", CategoryID: &id, Quantity: 1, Price: decimal.RequireFromString("0.50"), OwnerID: ownerA})
		s.Require().NoError(err)
	})

	s.tx(func(tx tenant.Tx) {
		s.Require().NoError(tx.ClearProductCategory(s.ctx, ownerA, category.ID))
		s.Require().NoError(tx.DeleteCategory(s.ctx, ownerA, category.ID))
	})

	got, err := s.store.GetProduct(s.ctx, ownerA, product.ID)
	s.Require().NoError(err)
	s.Nil(got.CategoryID)
	s.Equal("0.50", got.Price.StringFixed(2))
}

func (s *Suite) TestLookupsByID() {
	c := s.seedCustomer(ownerA, "Carol")
	foreign := s.seedCustomer(ownerB, "Dave")
	p := s.seedProduct(ownerA, "P", 1, "1.00")

	customers, err := s.store.CustomersByID(s.ctx, ownerA, []int64{c.ID, foreign.ID})
	s.Require().NoError(err)
	s.Len(customers, 1)
	s.Equal("Carol", customers[c.ID].Name)

	products, err := s.store.ProductsByID(s.ctx, ownerA, []int64{p.ID, p.ID + 1000})
	s.Require().NoError(err)
	s.Len(products, 1)

	n, err := s.store.CountCustomers(s.ctx, ownerA)
	s.Require().NoError(err)
	s.Equal(1, n)
	n, err = s.store.CountProducts(s.ctx, ownerB)
	s.Require().NoError(err)
	s.Zero(n)
}

func orderIDs(orders []tenant.Order) []int64 {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
