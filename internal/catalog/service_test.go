package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/epsum/epsumstock/internal/tenant"
	"github.com/epsum/epsumstock/internal/tenant/memory"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.NewStore()
	return NewService(store, Config{PageSize: 2}), store
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCategoryNamesArePerOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateCategory(ctx, 1, CategoryInput{Name: "Tools"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, 1, CategoryInput{Name: "Tools"})
	require.ErrorIs(t, err, tenant.ErrNameTaken)

	_, err = svc.CreateCategory(ctx, 2, CategoryInput{Name: "Tools"})
	require.NoError(t, err)

	renamed, err := svc.UpdateCategory(ctx, 1, first.ID, CategoryInput{Name: "Tools"})
	require.NoError(t, err)
	require.Equal(t, "Tools", renamed.Name)

	second, err := svc.CreateCategory(ctx, 1, CategoryInput{Name: "Garden"})
	require.NoError(t, err)
	_, err = svc.UpdateCategory(ctx, 1, second.ID, CategoryInput{Name: "Tools"})
	require.ErrorIs(t, err, tenant.ErrNameTaken)

	got, err := svc.GetCategory(ctx, 1, second.ID)
	require.NoError(t, err)
	require.Equal(t, "Garden", got.Name)
}

func TestDeleteCategoryDetachesProducts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, 1, CategoryInput{Name: "Fruit"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, 1, ProductInput{Name: "Apple", CategoryID: &category.ID, Quantity: 3, Price: price("0.40")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, 1, category.ID))

	got, err := svc.GetProduct(ctx, 1, product.ID)
	require.NoError(t, err)
	require.Nil(t, got.CategoryID)
	require.Equal(t, 3, got.Quantity)

	require.ErrorIs(t, svc.DeleteCategory(ctx, 1, category.ID), tenant.ErrNotFound)
}

func TestProductCategoryMustBelongToOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	foreign, err := svc.CreateCategory(ctx, 2, CategoryInput{Name: "Theirs"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, 1, ProductInput{Name: "Mine", CategoryID: &foreign.ID, Quantity: 1, Price: price("1.00")})
	require.ErrorIs(t, err, tenant.ErrNotFound)

	n, err := svc.ListProducts(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, n)
}

func TestProductValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := map[string]ProductInput{
		"blank name":       {Name: "  ", Quantity: 1, Price: price("1.00")},
		"negative stock":   {Name: "A", Quantity: -1, Price: price("1.00")},
		"price too small":  {Name: "A", Quantity: 1, Price: price("0.001")},
		"zero price":       {Name: "A", Quantity: 1},
		"invalid category": {Name: "A", Quantity: 1, Price: price("1.00"), CategoryID: new(int64)},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, 1, input)
			require.ErrorIs(t, err, tenant.ErrValidation)
		})
	}

	product, err := svc.CreateProduct(ctx, 1, ProductInput{Name: "A", Quantity: 0, Price: price("0.01")})
	require.NoError(t, err)
	require.Equal(t, "0.01", product.Price.StringFixed(2))
}

func TestCustomerValidationNamesFields(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateCustomer(context.Background(), 1, CustomerInput{})
	var validationErr *tenant.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "Name")
	require.Contains(t, validationErr.Fields, "Address")
	require.Contains(t, validationErr.Fields, "Phone")
}

func TestCreateAllCustomersIsAllOrNothing(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, 1, CustomerInput{Name: "Existing", Address: "A", Phone: "1"})
	require.NoError(t, err)

	_, err = svc.CreateAllCustomers(ctx, 1, []CustomerInput{
		{Name: "New One", Address: "A", Phone: "1"},
		{Name: "Existing", Address: "B", Phone: "2"},
	})
	require.ErrorIs(t, err, tenant.ErrNameTaken)

	_, err = svc.CreateAllCustomers(ctx, 1, []CustomerInput{
		{Name: "Twin", Address: "A", Phone: "1"},
		{Name: "Twin", Address: "B", Phone: "2"},
	})
	require.ErrorIs(t, err, tenant.ErrNameTaken)

	_, err = svc.CreateAllCustomers(ctx, 1, []CustomerInput{
		{Name: "Valid", Address: "A", Phone: "1"},
		{Name: "", Address: "B", Phone: "2"},
	})
	require.ErrorIs(t, err, tenant.ErrValidation)

	all, err := svc.ListCustomers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)

	created, err := svc.CreateAllCustomers(ctx, 1, []CustomerInput{
		{Name: "Zed", Address: "A", Phone: "1"},
		{Name: "Amy", Address: "B", Phone: "2"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	all, err = svc.ListCustomers(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Amy", "Existing", "Zed"}, customerNames(all))
}

func TestCustomerPagingAndSearch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateAllCustomers(ctx, 1, []CustomerInput{
		{Name: "Carla", Address: "A", Phone: "1"},
		{Name: "Alan", Address: "A", Phone: "1"},
		{Name: "Bert", Address: "A", Phone: "1"},
	})
	require.NoError(t, err)

	page, err := svc.PageCustomers(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Carla"}, customerNames(page.Items))
	require.Equal(t, 3, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)

	found, err := svc.FindCustomers(ctx, 1, "AL")
	require.NoError(t, err)
	require.Equal(t, []string{"Alan"}, customerNames(found))

	none, err := svc.FindCustomers(ctx, 2, "a")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestDeletionGuards(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, 1, CustomerInput{Name: "Buyer", Address: "A", Phone: "1"})
	require.NoError(t, err)
	ordered, err := svc.CreateProduct(ctx, 1, ProductInput{Name: "Ordered", Quantity: 5, Price: price("1.00")})
	require.NoError(t, err)
	spare, err := svc.CreateProduct(ctx, 1, ProductInput{Name: "Spare", Quantity: 5, Price: price("1.00")})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		_, err := tx.InsertOrder(ctx, tenant.Order{Status: tenant.OrderStatusUnpaid, CustomerID: customer.ID, OwnerID: 1,
			Items: []tenant.OrderItem{{ProductID: ordered.ID, Quantity: 1}}})
		return err
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteCustomer(ctx, 1, customer.ID), tenant.ErrDeletionNotAllowed)
	require.ErrorIs(t, svc.DeleteProduct(ctx, 1, ordered.ID), tenant.ErrDeletionNotAllowed)
	require.NoError(t, svc.DeleteProduct(ctx, 1, spare.ID))
	require.ErrorIs(t, svc.DeleteProduct(ctx, 2, ordered.ID), tenant.ErrNotFound)

	_, err = svc.GetCustomer(ctx, 1, customer.ID)
	require.NoError(t, err)
	_, err = svc.GetProduct(ctx, 1, ordered.ID)
	require.NoError(t, err)
}

func TestUpdateProductRestocks(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, 1, ProductInput{Name: "Bolt", Quantity: 1, Price: price("0.10")})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, 1, product.ID, ProductInput{Name: "Bolt", Quantity: 40, Price: price("0.12")})
	require.NoError(t, err)
	require.Equal(t, 40, updated.Quantity)

	_, err = svc.UpdateProduct(ctx, 2, product.ID, ProductInput{Name: "Bolt", Quantity: 1, Price: price("0.12")})
	require.ErrorIs(t, err, tenant.ErrNotFound)
}

func customerNames(items []tenant.Customer) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.Name)
	}
	return out
}
