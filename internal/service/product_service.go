package service

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ProductRepositoryInterface defines the catalog operations the API exposes.
type ProductRepositoryInterface interface {
	Insert(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	SetStock(ctx context.Context, id int64, stock int) (*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id int64) error
}

// ProductService provides catalog reads and stock administration.
type ProductService struct {
	products ProductRepositoryInterface
}

// NewProductService creates a new ProductService.
func NewProductService(products ProductRepositoryInterface) *ProductService {
	return &ProductService{products: products}
}

// List returns all products.
func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	return s.products.List(ctx)
}

// Get returns a product or ErrProductNotFound.
func (s *ProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func productFromRequest(req *model.CreateProductRequest) (*model.Product, error) {
	if req == nil || req.Stock == nil || *req.Stock < 0 || req.Price.IsNegative() {
		return nil, ErrInvalidRequest
	}
	return &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       *req.Stock,
	}, nil
}

// Create adds a product to the catalog.
func (s *ProductService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	p, err := productFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStock sets a product's stock to an absolute value.
func (s *ProductService) UpdateStock(ctx context.Context, id int64, stock int) (*model.Product, error) {
	if stock < 0 {
		return nil, ErrInvalidRequest
	}
	return s.products.SetStock(ctx, id, stock)
}

// Update replaces a product's name, description, price and stock.
// Orders already placed keep the price they were placed at.
func (s *ProductService) Update(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error) {
	p, err := productFromRequest(req)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product from the catalog.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.products.Delete(ctx, id)
}
