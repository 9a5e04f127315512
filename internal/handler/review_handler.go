package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ReviewServiceInterface defines the review operations exposed over HTTP.
type ReviewServiceInterface interface {
	Create(ctx context.Context, orderID int64, userID string, req *model.ReviewRequest) (*model.Review, error)
	Update(ctx context.Context, reviewID int64, userID string, req *model.ReviewRequest) (*model.Review, error)
	Delete(ctx context.Context, reviewID int64, userID string) error
	ForOrder(ctx context.Context, orderID int64, userID string) (*model.Review, error)
	ListByUser(ctx context.Context, userID string) ([]model.Review, error)
	ForProduct(ctx context.Context, productID int64) (*model.ProductReviews, error)
}

// ReviewHandler serves order reviews.
type ReviewHandler struct {
	service   ReviewServiceInterface
	validator *validator.Validate
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(svc ReviewServiceInterface, v *validator.Validate) *ReviewHandler {
	return &ReviewHandler{service: svc, validator: v}
}

// Create handles POST /api/orders/:id/review.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid order id")
	}

	var req model.ReviewRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	rv, err := h.service.Create(c.Context(), orderID, userID(c), &req)
	if err != nil {
		return respondError(c, err, "create review")
	}
	return c.Status(fiber.StatusCreated).JSON(rv)
}

// ForOrder handles GET /api/orders/:id/review.
func (h *ReviewHandler) ForOrder(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid order id")
	}

	rv, err := h.service.ForOrder(c.Context(), orderID, userID(c))
	if err != nil {
		return respondError(c, err, "get review")
	}
	return c.JSON(rv)
}

// List handles GET /api/reviews.
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	reviews, err := h.service.ListByUser(c.Context(), userID(c))
	if err != nil {
		return respondError(c, err, "list reviews")
	}
	return c.JSON(reviews)
}

// Update handles PUT /api/reviews/:id.
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid review id")
	}

	var req model.ReviewRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	rv, err := h.service.Update(c.Context(), id, userID(c), &req)
	if err != nil {
		return respondError(c, err, "update review")
	}
	return c.JSON(rv)
}

// Delete handles DELETE /api/reviews/:id.
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid review id")
	}

	if err := h.service.Delete(c.Context(), id, userID(c)); err != nil {
		return respondError(c, err, "delete review")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ForProduct handles GET /api/products/:id/reviews.
func (h *ReviewHandler) ForProduct(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid product id")
	}

	pr, err := h.service.ForProduct(c.Context(), id)
	if err != nil {
		return respondError(c, err, "list product reviews")
	}
	return c.JSON(pr)
}
