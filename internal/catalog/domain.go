package catalog

import "github.com/shopspring/decimal"

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name string `json:"name" validate:"notblank"`
}

// CustomerInput carries the editable fields of a customer.
type CustomerInput struct {
	Name    string `json:"name" validate:"notblank"`
	Address string `json:"address" validate:"notblank"`
	Phone   string `json:"phone" validate:"notblank"`
}

// ProductInput carries the editable fields of a product, including the stock
// level set when restocking.
type ProductInput struct {
	Name       string          `json:"name" validate:"notblank"`
	CategoryID *int64          `json:"categoryId" validate:"omitempty,gt=0"`
	Quantity   int             `json:"quantity" validate:"gte=0,max=2147483647"`
	Price      decimal.Decimal `json:"price" validate:"price"`
}

// Config groups service settings.
type Config struct {
	PageSize int
}
