package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ReviewRepositoryInterface defines the review data access the service needs.
type ReviewRepositoryInterface interface {
	Insert(ctx context.Context, rv *model.Review) error
	Update(ctx context.Context, rv *model.Review) error
	Delete(ctx context.Context, id int64, userID string) error
	GetByOrder(ctx context.Context, orderID int64, userID string) (*model.Review, error)
	ListByUser(ctx context.Context, userID string) ([]model.Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]model.Review, error)
}

// OrderReader looks up an order scoped to its owner.
type OrderReader interface {
	GetByID(ctx context.Context, orderID int64, userID string) (*model.Order, error)
}

// ReviewService lets buyers rate orders once they have been delivered.
type ReviewService struct {
	reviews ReviewRepositoryInterface
	orders  OrderReader
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviews ReviewRepositoryInterface, orders OrderReader) *ReviewService {
	return &ReviewService{reviews: reviews, orders: orders}
}

// Create records userID's review of orderID. The order must belong to the
// user and be delivered, and each order takes one review per user.
func (s *ReviewService) Create(ctx context.Context, orderID int64, userID string, req *model.ReviewRequest) (*model.Review, error) {
	if req == nil || strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}

	order, err := s.orders.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.StatusID != model.StatusDelivered {
		return nil, ErrOrderNotReviewable
	}

	rv := &model.Review{
		OrderID:     orderID,
		OrderNumber: order.OrderNumber,
		UserID:      userID,
		Rating:      req.Rating,
		Comment:     strings.TrimSpace(req.Comment),
	}
	if err := s.reviews.Insert(ctx, rv); err != nil {
		return nil, err
	}

	log.Info().
		Int64("order_id", orderID).
		Str("user_id", userID).
		Int("rating", rv.Rating).
		Msg("order reviewed")
	return rv, nil
}

// Update edits a review owned by userID.
func (s *ReviewService) Update(ctx context.Context, reviewID int64, userID string, req *model.ReviewRequest) (*model.Review, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	rv := &model.Review{
		ID:      reviewID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: strings.TrimSpace(req.Comment),
	}
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// Delete removes a review owned by userID.
func (s *ReviewService) Delete(ctx context.Context, reviewID int64, userID string) error {
	return s.reviews.Delete(ctx, reviewID, userID)
}

// ForOrder returns the user's review of an order or ErrReviewNotFound.
func (s *ReviewService) ForOrder(ctx context.Context, orderID int64, userID string) (*model.Review, error) {
	rv, err := s.reviews.GetByOrder(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if rv == nil {
		return nil, ErrReviewNotFound
	}
	return rv, nil
}

// ListByUser returns the user's reviews newest first.
func (s *ReviewService) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	return s.reviews.ListByUser(ctx, userID)
}

// ForProduct aggregates the reviews of orders that contained productID.
func (s *ReviewService) ForProduct(ctx context.Context, productID int64) (*model.ProductReviews, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return model.NewProductReviews(productID, reviews), nil
}
