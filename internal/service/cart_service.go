package service

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CartRepositoryInterface defines the interface for cart data access.
type CartRepositoryInterface interface {
	Items(ctx context.Context, userID string) ([]model.CartItem, error)
	AddItem(ctx context.Context, userID string, productID int64, qty int) error
	UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) error
	RemoveItem(ctx context.Context, userID string, itemID int64) error
	Clear(ctx context.Context, userID string) error
}

// CartService manages a user's cart. Every mutation returns the re-read cart.
type CartService struct {
	carts CartRepositoryInterface
}

// NewCartService creates a new CartService.
func NewCartService(carts CartRepositoryInterface) *CartService {
	return &CartService{carts: carts}
}

// Get returns userID's cart with totals.
func (s *CartService) Get(ctx context.Context, userID string) (*model.Cart, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return model.NewCart(userID, items), nil
}

// AddItem puts qty of a product into the cart, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.Cart, error) {
	if req == nil || req.ProductID < 1 || req.Quantity < 1 {
		return nil, ErrInvalidRequest
	}
	if err := s.carts.AddItem(ctx, userID, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// UpdateQuantity sets a line's quantity. A quantity below 1 removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) (*model.Cart, error) {
	if qty < 1 {
		return s.RemoveItem(ctx, userID, itemID)
	}
	if err := s.carts.UpdateQuantity(ctx, userID, itemID, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, itemID int64) (*model.Cart, error) {
	if err := s.carts.RemoveItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID string) (*model.Cart, error) {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return nil, err
	}
	return model.NewCart(userID, nil), nil
}
