package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the part of the catalog that checkout relies on.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateProductRequest is the admin DTO for adding a product.
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,notblank,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"dgte0"`
	Stock       *int            `json:"stock" validate:"required,gte=0"`
}

// UpdateProductRequest replaces a product's catalog fields.
type UpdateProductRequest = CreateProductRequest

// UpdateStockRequest sets a product's stock to an absolute value.
type UpdateStockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}
