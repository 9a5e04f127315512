package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependency is a named backend the health check pings.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// HealthHandler reports whether the database and optional backends are reachable.
type HealthHandler struct {
	db   Pinger
	deps []Dependency
}

// NewHealthHandler creates a HealthHandler. The database is always checked;
// deps are checked in order after it.
func NewHealthHandler(db Pinger, deps ...Dependency) *HealthHandler {
	return &HealthHandler{db: db, deps: deps}
}

// Check handles GET /health. It answers 503 naming the first unreachable backend.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	all := append([]Dependency{{Name: "database", Pinger: h.db}}, h.deps...)

	checks := fiber.Map{}
	for _, d := range all {
		if err := d.Pinger.Ping(c.Context()); err != nil {
			log.Error().Err(err).Str("dependency", d.Name).Msg("health check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  d.Name + " connection failed",
			})
		}
		checks[d.Name] = "ok"
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
		"checks": checks,
	})
}
