package handlers

import (
	"student-portal/internal/adapters/http/middleware"
	"student-portal/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PortalHandler serves the gate-guarded page endpoints.
// Page rendering lives in the frontend; these return the page context.
type PortalHandler struct {
	callbackParam string
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(callbackParam string) *PortalHandler {
	return &PortalHandler{callbackParam: callbackParam}
}

// LoginPage is reached only without a session cookie
func (h *PortalHandler) LoginPage(c *fiber.Ctx) error {
	return response.Success(c, "", fiber.Map{
		"page":     "login",
		"callback": c.Query(h.callbackParam),
	})
}

// Landing is the default page after login
func (h *PortalHandler) Landing(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)
	return response.Success(c, "", fiber.Map{
		"page":     "portal",
		"fullName": claims.FullName,
		"role":     claims.Role,
	})
}

// Me returns the caller's session claims
func (h *PortalHandler) Me(c *fiber.Ctx) error {
	return response.Success(c, "", middleware.ClaimsFrom(c))
}
