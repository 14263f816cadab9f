// Package catalog manages the categories, customers and products an owner sells
// from, and guards their per-owner names and order references.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/epsum/epsumstock/internal/tenant"
)

const defaultPageSize = 8

// Service coordinates catalog operations.
type Service struct {
	store     tenant.Store
	validator *validator.Validate
	pageSize  int
}

// NewService builds Service.
func NewService(store tenant.Store, cfg Config) *Service {
	size := cfg.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	return &Service{store: store, validator: tenant.NewValidator(), pageSize: size}
}

func (s *Service) validate(input any) error {
	return tenant.Validate(s.validator, input)
}

func (s *Service) page(page int) tenant.PageRequest {
	return tenant.NewPageRequest(page, s.pageSize)
}

// CreateCategory stores a new category.
func (s *Service) CreateCategory(ctx context.Context, owner int64, input CategoryInput) (tenant.Category, error) {
	if err := s.validate(input); err != nil {
		return tenant.Category{}, err
	}
	category := tenant.Category{Name: strings.TrimSpace(input.Name), OwnerID: owner}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if err := ensureNameFree(ctx, tx, owner, tenant.KindCategory, category.Name, 0); err != nil {
			return err
		}
		created, err := tx.InsertCategory(ctx, category)
		if err != nil {
			return fmt.Errorf("catalog: insert category: %w", err)
		}
		category = created
		return nil
	})
	if err != nil {
		return tenant.Category{}, err
	}
	return category, nil
}

// UpdateCategory renames a category.
func (s *Service) UpdateCategory(ctx context.Context, owner, id int64, input CategoryInput) (tenant.Category, error) {
	if err := s.validate(input); err != nil {
		return tenant.Category{}, err
	}
	category := tenant.Category{ID: id, Name: strings.TrimSpace(input.Name), OwnerID: owner}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.GetCategory(ctx, owner, id); err != nil {
			return err
		}
		if err := ensureNameFree(ctx, tx, owner, tenant.KindCategory, category.Name, id); err != nil {
			return err
		}
		return tx.UpdateCategory(ctx, category)
	})
	if err != nil {
		return tenant.Category{}, err
	}
	return category, nil
}

// DeleteCategory removes a category and detaches its products.
func (s *Service) DeleteCategory(ctx context.Context, owner, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.GetCategory(ctx, owner, id); err != nil {
			return err
		}
		if err := tx.ClearProductCategory(ctx, owner, id); err != nil {
			return fmt.Errorf("catalog: detach products: %w", err)
		}
		return tx.DeleteCategory(ctx, owner, id)
	})
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, owner, id int64) (tenant.Category, error) {
	return s.store.GetCategory(ctx, owner, id)
}

// ListCategories returns every category of the owner sorted by name.
func (s *Service) ListCategories(ctx context.Context, owner int64) ([]tenant.Category, error) {
	items, _, err := s.store.ListCategories(ctx, owner, tenant.ListFilter{})
	return items, err
}

// PageCategories returns one page of categories sorted by name.
func (s *Service) PageCategories(ctx context.Context, owner int64, page int) (tenant.Page[tenant.Category], error) {
	req := s.page(page)
	items, total, err := s.store.ListCategories(ctx, owner, tenant.ListFilter{Page: req})
	if err != nil {
		return tenant.Page[tenant.Category]{}, err
	}
	return tenant.NewPage(items, req, total), nil
}

// FindCategories returns categories whose name contains fragment, ignoring case.
func (s *Service) FindCategories(ctx context.Context, owner int64, fragment string) ([]tenant.Category, error) {
	items, _, err := s.store.ListCategories(ctx, owner, tenant.ListFilter{Search: strings.TrimSpace(fragment)})
	return items, err
}

// CreateCustomer stores a new customer.
func (s *Service) CreateCustomer(ctx context.Context, owner int64, input CustomerInput) (tenant.Customer, error) {
	created, err := s.CreateAllCustomers(ctx, owner, []CustomerInput{input})
	if err != nil {
		return tenant.Customer{}, err
	}
	return created[0], nil
}

// CreateAllCustomers validates and stores a batch of customers in one unit of
// work. A single invalid or clashing entry rejects the whole batch.
func (s *Service) CreateAllCustomers(ctx context.Context, owner int64, inputs []CustomerInput) ([]tenant.Customer, error) {
	if len(inputs) == 0 {
		return nil, &tenant.ValidationError{Fields: map[string]string{"customers": "must contain at least 1"}}
	}
	for i, input := range inputs {
		if err := s.validate(input); err != nil {
			if len(inputs) == 1 {
				return nil, err
			}
			return nil, fmt.Errorf("customer %d: %w", i+1, err)
		}
	}
	created := make([]tenant.Customer, 0, len(inputs))
	err := s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		created = created[:0]
		for _, input := range inputs {
			customer := customerFrom(owner, 0, input)
			if err := ensureNameFree(ctx, tx, owner, tenant.KindCustomer, customer.Name, 0); err != nil {
				return err
			}
			saved, err := tx.InsertCustomer(ctx, customer)
			if err != nil {
				return fmt.Errorf("catalog: insert customer: %w", err)
			}
			created = append(created, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateCustomer overwrites a customer's fields.
func (s *Service) UpdateCustomer(ctx context.Context, owner, id int64, input CustomerInput) (tenant.Customer, error) {
	if err := s.validate(input); err != nil {
		return tenant.Customer{}, err
	}
	customer := customerFrom(owner, id, input)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.GetCustomer(ctx, owner, id); err != nil {
			return err
		}
		if err := ensureNameFree(ctx, tx, owner, tenant.KindCustomer, customer.Name, id); err != nil {
			return err
		}
		return tx.UpdateCustomer(ctx, customer)
	})
	if err != nil {
		return tenant.Customer{}, err
	}
	return customer, nil
}

// DeleteCustomer removes a customer no order references.
func (s *Service) DeleteCustomer(ctx context.Context, owner, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.GetCustomer(ctx, owner, id); err != nil {
			return err
		}
		if err := ensureCustomerDeletable(ctx, tx, owner, id); err != nil {
			return err
		}
		return tx.DeleteCustomer(ctx, owner, id)
	})
}

// GetCustomer returns one customer.
func (s *Service) GetCustomer(ctx context.Context, owner, id int64) (tenant.Customer, error) {
	return s.store.GetCustomer(ctx, owner, id)
}

// ListCustomers returns every customer of the owner sorted by name.
func (s *Service) ListCustomers(ctx context.Context, owner int64) ([]tenant.Customer, error) {
	items, _, err := s.store.ListCustomers(ctx, owner, tenant.ListFilter{})
	return items, err
}

// PageCustomers returns one page of customers sorted by name.
func (s *Service) PageCustomers(ctx context.Context, owner int64, page int) (tenant.Page[tenant.Customer], error) {
	req := s.page(page)
	items, total, err := s.store.ListCustomers(ctx, owner, tenant.ListFilter{Page: req})
	if err != nil {
		return tenant.Page[tenant.Customer]{}, err
	}
	return tenant.NewPage(items, req, total), nil
}

// FindCustomers returns customers whose name contains fragment, ignoring case.
func (s *Service) FindCustomers(ctx context.Context, owner int64, fragment string) ([]tenant.Customer, error) {
	items, _, err := s.store.ListCustomers(ctx, owner, tenant.ListFilter{Search: strings.TrimSpace(fragment)})
	return items, err
}

func customerFrom(owner, id int64, input CustomerInput) tenant.Customer {
	return tenant.Customer{
		ID:      id,
		Name:    strings.TrimSpace(input.Name),
		Address: strings.TrimSpace(input.Address),
		Phone:   strings.TrimSpace(input.Phone),
		OwnerID: owner,
	}
}

// CreateProduct stores a new product with its opening stock.
func (s *Service) CreateProduct(ctx context.Context, owner int64, input ProductInput) (tenant.Product, error) {
	if err := s.validate(input); err != nil {
		return tenant.Product{}, err
	}
	product := productFrom(owner, 0, input)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if err := ensureNameFree(ctx, tx, owner, tenant.KindProduct, product.Name, 0); err != nil {
			return err
		}
		if err := ensureCategoryOwned(ctx, tx, owner, product.CategoryID); err != nil {
			return err
		}
		created, err := tx.InsertProduct(ctx, product)
		if err != nil {
			return fmt.Errorf("catalog: insert product: %w", err)
		}
		product = created
		return nil
	})
	if err != nil {
		return tenant.Product{}, err
	}
	return product, nil
}

// UpdateProduct overwrites a product's fields, stock level included. The row is
// locked the same way the ledger locks it.
func (s *Service) UpdateProduct(ctx context.Context, owner, id int64, input ProductInput) (tenant.Product, error) {
	if err := s.validate(input); err != nil {
		return tenant.Product{}, err
	}
	product := productFrom(owner, id, input)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.LockProducts(ctx, owner, []int64{id}); err != nil {
			return err
		}
		if err := ensureNameFree(ctx, tx, owner, tenant.KindProduct, product.Name, id); err != nil {
			return err
		}
		if err := ensureCategoryOwned(ctx, tx, owner, product.CategoryID); err != nil {
			return err
		}
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		return tenant.Product{}, err
	}
	return product, nil
}

// DeleteProduct removes a product no order item references.
func (s *Service) DeleteProduct(ctx context.Context, owner, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		if _, err := tx.LockProducts(ctx, owner, []int64{id}); err != nil {
			return err
		}
		if err := ensureProductDeletable(ctx, tx, owner, id); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, owner, id)
	})
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, owner, id int64) (tenant.Product, error) {
	return s.store.GetProduct(ctx, owner, id)
}

// ListProducts returns every product of the owner sorted by name.
func (s *Service) ListProducts(ctx context.Context, owner int64) ([]tenant.Product, error) {
	items, _, err := s.store.ListProducts(ctx, owner, tenant.ListFilter{})
	return items, err
}

// PageProducts returns one page of products sorted by name.
func (s *Service) PageProducts(ctx context.Context, owner int64, page int) (tenant.Page[tenant.Product], error) {
	req := s.page(page)
	items, total, err := s.store.ListProducts(ctx, owner, tenant.ListFilter{Page: req})
	if err != nil {
		return tenant.Page[tenant.Product]{}, err
	}
	return tenant.NewPage(items, req, total), nil
}

// FindProducts returns products whose name contains fragment, ignoring case.
func (s *Service) FindProducts(ctx context.Context, owner int64, fragment string) ([]tenant.Product, error) {
	items, _, err := s.store.ListProducts(ctx, owner, tenant.ListFilter{Search: strings.TrimSpace(fragment)})
	return items, err
}

func productFrom(owner, id int64, input ProductInput) tenant.Product {
	return tenant.Product{
		ID:         id,
		Name:       strings.TrimSpace(input.Name),
		CategoryID: input.CategoryID,
		Quantity:   input.Quantity,
		Price:      input.Price.Round(2),
		OwnerID:    owner,
	}
}
