package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/persistence"
)

// HealthHandler reports service liveness and dependency reachability.
type HealthHandler struct {
	postgres *persistence.Postgres
	redis    *persistence.Redis
}

// NewHealthHandler constructs handler.
func NewHealthHandler(postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Health GET /healthz.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	checks := fiber.Map{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := h.postgres.Ping(c.Context()); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if h.redis != nil {
		if err := h.redis.Ping(c.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	} else {
		checks["redis"] = "disabled"
	}

	status := fiber.StatusOK
	message := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		message = "degraded"
	}
	return success(c, status, message, checks)
}
