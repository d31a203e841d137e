package middleware

import (
	"strings"

	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "claims"

// SessionResolver decodes a session token into claims
type SessionResolver interface {
	Resolve(token string) (*domain.Claims, error)
}

// TokenFromRequest reads the session token from the cookie, falling back to
// an Authorization: Bearer header
func TokenFromRequest(c *fiber.Ctx, cookieName string) string {
	// 1. Try to get token from cookie first
	if token := c.Cookies(cookieName); token != "" {
		return token
	}

	// 2. If not in cookie, try Authorization header
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// RequireSession resolves the session claims and stores them for handlers.
// No or invalid session is 401.
func RequireSession(resolver SessionResolver, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := resolver.Resolve(TokenFromRequest(c, cookieName))
		if err != nil {
			return response.FromError(c, err, "invalid session")
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by RequireSession, or nil
func ClaimsFrom(c *fiber.Ctx) *domain.Claims {
	claims, _ := c.Locals(claimsKey).(*domain.Claims)
	return claims
}

// RequireRole allows only the listed roles. Must run after RequireSession;
// missing claims is 401 and a role outside the list is 403.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := domain.RequireRole(ClaimsFrom(c), allowed...); err != nil {
			return response.FromError(c, err, "forbidden")
		}
		return c.Next()
	}
}

// SuperAdminOnly middleware allows only super admins
func SuperAdminOnly() fiber.Handler {
	return RequireRole(domain.RoleSuperAdmin)
}

// AdminOrSuperAdmin middleware allows admins and super admins
func AdminOrSuperAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)
}
