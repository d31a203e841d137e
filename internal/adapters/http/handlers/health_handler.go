package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthChecker pings a backing store
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db   HealthChecker
	mode string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, mode string) *HealthHandler {
	return &HealthHandler{db: db, mode: mode}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "Student Portal API is running",
		"mode":    h.mode,
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	// Check database
	code, status, dbStatus := fiber.StatusOK, "ok", "healthy"
	if err := h.db.HealthCheck(ctx); err != nil {
		code, status, dbStatus = fiber.StatusServiceUnavailable, "degraded", "unhealthy"
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"api":      "healthy",
			"database": dbStatus,
		},
	})
}
