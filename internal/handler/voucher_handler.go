package handler

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// VoucherServiceInterface defines the voucher operations exposed over HTTP.
type VoucherServiceInterface interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error)
	ListActive(ctx context.Context) ([]model.Voucher, error)
	List(ctx context.Context) ([]model.Voucher, error)
	Get(ctx context.Context, id int64) (*model.Voucher, error)
	Create(ctx context.Context, req *model.VoucherRequest, createdBy string) (*model.Voucher, error)
	Update(ctx context.Context, id int64, req *model.VoucherRequest) (*model.Voucher, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) (*model.Voucher, error)
	ListUsage(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error)
	Stats(ctx context.Context) (*model.VoucherStats, error)
}

// VoucherHandler handles buyer and admin voucher requests.
type VoucherHandler struct {
	service   VoucherServiceInterface
	validator *validator.Validate
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(svc VoucherServiceInterface, v *validator.Validate) *VoucherHandler {
	return &VoucherHandler{service: svc, validator: v}
}

// Validate handles POST /api/vouchers/validate.
func (h *VoucherHandler) Validate(c *fiber.Ctx) error {
	var req model.ValidateVoucherRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	res, err := h.service.Validate(c.Context(), req.Code, req.Subtotal, userID(c))
	if err != nil {
		return respondError(c, err, "validate voucher")
	}

	log.Debug().
		Str("voucher_code", res.Voucher.Code).
		Str("user_id", userID(c)).
		Str("discount", res.DiscountAmount.String()).
		Msg("voucher validated")

	return c.JSON(res)
}

// ListActive handles GET /api/vouchers/active.
func (h *VoucherHandler) ListActive(c *fiber.Ctx) error {
	vouchers, err := h.service.ListActive(c.Context())
	if err != nil {
		return respondError(c, err, "list active vouchers")
	}
	return c.JSON(vouchers)
}

// List handles GET /api/admin/vouchers.
func (h *VoucherHandler) List(c *fiber.Ctx) error {
	vouchers, err := h.service.List(c.Context())
	if err != nil {
		return respondError(c, err, "list vouchers")
	}
	return c.JSON(vouchers)
}

// Get handles GET /api/admin/vouchers/:id.
func (h *VoucherHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid voucher id")
	}

	v, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err, "get voucher")
	}
	return c.JSON(v)
}

// Create handles POST /api/admin/vouchers.
func (h *VoucherHandler) Create(c *fiber.Ctx) error {
	var req model.VoucherRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	v, err := h.service.Create(c.Context(), &req, userID(c))
	if err != nil {
		return respondError(c, err, "create voucher")
	}

	log.Info().Int64("voucher_id", v.ID).Str("voucher_code", v.Code).Str("created_by", userID(c)).Msg("voucher created")
	return c.Status(fiber.StatusCreated).JSON(v)
}

// Update handles PUT /api/admin/vouchers/:id.
func (h *VoucherHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid voucher id")
	}

	var req model.VoucherRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	v, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		return respondError(c, err, "update voucher")
	}
	return c.JSON(v)
}

// Delete handles DELETE /api/admin/vouchers/:id.
func (h *VoucherHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid voucher id")
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return respondError(c, err, "delete voucher")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetStatus handles PATCH /api/admin/vouchers/:id/status.
func (h *VoucherHandler) SetStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid voucher id")
	}

	var req model.SetVoucherStatusRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	v, err := h.service.SetActive(c.Context(), id, *req.Active)
	if err != nil {
		return respondError(c, err, "set voucher status")
	}
	return c.JSON(v)
}

// Usage handles GET /api/admin/vouchers/usage with an optional voucher_id filter.
func (h *VoucherHandler) Usage(c *fiber.Ctx) error {
	var voucherID *int64
	if raw := c.Query("voucher_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			return errorJSON(c, fiber.StatusBadRequest, "invalid voucher_id")
		}
		voucherID = &id
	}

	usages, err := h.service.ListUsage(c.Context(), voucherID)
	if err != nil {
		return respondError(c, err, "list voucher usage")
	}
	return c.JSON(usages)
}

// Stats handles GET /api/admin/vouchers/stats.
func (h *VoucherHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return respondError(c, err, "get voucher stats")
	}
	return c.JSON(stats)
}
