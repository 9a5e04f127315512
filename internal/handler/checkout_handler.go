package handler

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// HeaderIdempotencyKey lets clients retry a checkout without creating a second order.
const HeaderIdempotencyKey = "Idempotency-Key"

// CheckoutServiceInterface defines the checkout operation.
type CheckoutServiceInterface interface {
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
}

// CheckoutHandler turns the caller's cart into an order.
type CheckoutHandler struct {
	service   CheckoutServiceInterface
	validator *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(svc CheckoutServiceInterface, v *validator.Validate) *CheckoutHandler {
	return &CheckoutHandler{service: svc, validator: v}
}

// Checkout handles POST /api/checkout.
// Items in the body override the stored cart; without them the cart is used.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var req model.CheckoutRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}
	req.UserID = userID(c)
	req.IdempotencyKey = strings.TrimSpace(c.Get(HeaderIdempotencyKey))

	res, err := h.service.Checkout(c.Context(), &req)
	if err != nil {
		return respondError(c, err, "checkout")
	}

	log.Info().
		Int64("order_id", res.Order.ID).
		Str("order_number", res.Order.OrderNumber).
		Str("user_id", req.UserID).
		Str("total", res.Total.String()).
		Bool("voucher_redeemed", res.VoucherRedeemed).
		Msg("checkout completed")

	return c.Status(fiber.StatusCreated).JSON(res)
}
