package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CartServiceInterface defines the cart operations exposed over HTTP.
type CartServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.Cart, error)
	AddItem(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.Cart, error)
	UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID string, itemID int64) (*model.Cart, error)
	Clear(ctx context.Context, userID string) (*model.Cart, error)
}

// CartHandler handles requests against the caller's cart.
type CartHandler struct {
	service   CartServiceInterface
	validator *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(svc CartServiceInterface, v *validator.Validate) *CartHandler {
	return &CartHandler{service: svc, validator: v}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(c *fiber.Ctx) error {
	cart, err := h.service.Get(c.Context(), userID(c))
	if err != nil {
		return respondError(c, err, "get cart")
	}
	return c.JSON(cart)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req model.AddCartItemRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	cart, err := h.service.AddItem(c.Context(), userID(c), &req)
	if err != nil {
		return respondError(c, err, "add cart item")
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

// UpdateItem handles PATCH /api/cart/items/:id.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	itemID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid cart item id")
	}

	var req model.UpdateCartItemRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	cart, err := h.service.UpdateQuantity(c.Context(), userID(c), itemID, *req.Quantity)
	if err != nil {
		return respondError(c, err, "update cart item")
	}
	return c.JSON(cart)
}

// RemoveItem handles DELETE /api/cart/items/:id.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	itemID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid cart item id")
	}

	cart, err := h.service.RemoveItem(c.Context(), userID(c), itemID)
	if err != nil {
		return respondError(c, err, "remove cart item")
	}
	return c.JSON(cart)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	cart, err := h.service.Clear(c.Context(), userID(c))
	if err != nil {
		return respondError(c, err, "clear cart")
	}
	return c.JSON(cart)
}
