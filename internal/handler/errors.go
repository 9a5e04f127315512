package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/service"
)

// formatValidationError converts the first validator error into a client message.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "lte":
		return "invalid request: " + field + " must be at most " + fe.Param()
	case "dgt0":
		return "invalid request: " + field + " must be greater than 0"
	case "dgte0":
		return "invalid request: " + field + " cannot be negative"
	case "oneof":
		return "invalid request: " + field + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gtefield":
		return "invalid request: " + field + " must not be before " + toSnake(fe.Param())
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// toSnake turns a Go field name such as StartsAt into starts_at.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// statusFor maps service errors onto HTTP status codes. Zero means unclassified.
func statusFor(err error) int {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.Is(err, service.ErrVoucherNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrReviewNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrVoucherAlreadyUsed),
		errors.As(err, &stockErr),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrVoucherExists),
		errors.Is(err, service.ErrVoucherInUse),
		errors.Is(err, service.ErrReviewExists),
		errors.Is(err, service.ErrOrderNotReviewable):
		return fiber.StatusConflict
	case service.IsVoucherError(err),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidRequest):
		return fiber.StatusBadRequest
	}
	return 0
}

// respondError writes the mapped status with the error's message, or a 500
// with a generic message after logging the cause.
func respondError(c *fiber.Ctx, err error, action string) error {
	if status := statusFor(err); status != 0 {
		return errorJSON(c, status, err.Error())
	}

	log.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("user_id", userID(c)).
		Msg("failed to " + action)
	return errorJSON(c, fiber.StatusInternalServerError, "internal server error")
}

// parseBody decodes and validates the JSON body into dst. On failure the
// 400 response has been written and ok is false.
func parseBody(c *fiber.Ctx, v *validator.Validate, dst interface{}) (ok bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return false, errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := v.Struct(dst); err != nil {
		return false, errorJSON(c, fiber.StatusBadRequest, formatValidationError(err))
	}
	return true, nil
}

// paramID parses a positive integer route parameter.
func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id < 1 {
		return 0, false
	}
	return int64(id), true
}
