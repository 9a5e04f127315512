package handler

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// OrderServiceInterface defines the order operations exposed over HTTP.
type OrderServiceInterface interface {
	GetByID(ctx context.Context, orderID int64, userID string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	ListAll(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	Tracking(ctx context.Context, orderID int64, userID string) ([]model.OrderTracking, error)
	Cancel(ctx context.Context, orderID int64, userID, reason string) (*model.CancellationResult, error)
	UpdateStatus(ctx context.Context, orderID int64, statusID int, notes, by string) (*model.Order, error)
	Statuses() []model.OrderStatus
}

// OrderHandler handles order history, cancellation and admin status changes.
type OrderHandler struct {
	service   OrderServiceInterface
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServiceInterface, v *validator.Validate) *OrderHandler {
	return &OrderHandler{service: svc, validator: v}
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.service.ListByUser(c.Context(), userID(c))
	if err != nil {
		return respondError(c, err, "list orders")
	}
	return c.JSON(orders)
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.service.GetByID(c.Context(), id, userID(c))
	if err != nil {
		return respondError(c, err, "get order")
	}
	return c.JSON(order)
}

// Tracking handles GET /api/orders/:id/tracking.
func (h *OrderHandler) Tracking(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid order id")
	}

	entries, err := h.service.Tracking(c.Context(), id, userID(c))
	if err != nil {
		return respondError(c, err, "get order tracking")
	}
	return c.JSON(entries)
}

// Cancel handles POST /api/orders/:id/cancel.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid order id")
	}

	var req model.CancelOrderRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	res, err := h.service.Cancel(c.Context(), id, userID(c), req.Reason)
	if err != nil {
		return respondError(c, err, "cancel order")
	}

	log.Info().
		Int64("order_id", id).
		Str("user_id", userID(c)).
		Int("restored_items", res.RestoredItems).
		Msg("order cancelled")

	return c.JSON(res)
}

// Statuses handles GET /api/order-statuses.
func (h *OrderHandler) Statuses(c *fiber.Ctx) error {
	return c.JSON(h.service.Statuses())
}

// ListAll handles GET /api/admin/orders with optional status_id and q
// (order number search) filters.
func (h *OrderHandler) ListAll(c *fiber.Ctx) error {
	filter := model.OrderFilter{Search: c.Query("q")}
	if raw := c.Query("status_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid status_id")
		}
		filter.StatusID = &id
	}

	orders, err := h.service.ListAll(c.Context(), filter)
	if err != nil {
		return respondError(c, err, "list all orders")
	}
	return c.JSON(orders)
}

// UpdateStatus handles PATCH /api/admin/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid order id")
	}

	var req model.UpdateOrderStatusRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	order, err := h.service.UpdateStatus(c.Context(), id, req.StatusID, req.Notes, userID(c))
	if err != nil {
		return respondError(c, err, "update order status")
	}

	log.Info().
		Int64("order_id", id).
		Int("status_id", order.StatusID).
		Str("updated_by", userID(c)).
		Msg("order status updated")

	return c.JSON(order)
}
