package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Identity headers set by the upstream gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	roleAdmin  = "admin"
	localsUser = "user_id"
)

// RequireUser rejects requests without an X-User-ID header and stores the id for handlers.
func RequireUser(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(HeaderUserID))
	if id == "" {
		return errorJSON(c, fiber.StatusUnauthorized, "missing user identity")
	}
	c.Locals(localsUser, id)
	return c.Next()
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(c *fiber.Ctx) error {
	if !strings.EqualFold(strings.TrimSpace(c.Get(HeaderUserRole)), roleAdmin) {
		return errorJSON(c, fiber.StatusForbidden, "admin role required")
	}
	return c.Next()
}

func userID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localsUser).(string); ok {
		return id
	}
	return ""
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
