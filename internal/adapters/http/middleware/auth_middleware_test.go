package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"student-portal/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver maps raw tokens to claims
type fakeResolver map[string]*domain.Claims

func (r fakeResolver) Resolve(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, domain.ErrSessionMissing
	}
	c, ok := r[token]
	if !ok {
		return nil, domain.ErrSessionInvalid
	}
	return c, nil
}

func newRoleApp() *fiber.App {
	resolver := fakeResolver{
		"student": {ID: 1, Role: domain.RoleStudent},
		"admin":   {ID: 2, Role: domain.RoleAdmin},
		"root":    {ID: 3, Role: domain.RoleSuperAdmin},
	}
	app := fiber.New()
	app.Use(RequireSession(resolver, "session_token"))
	app.Get("/any", func(c *fiber.Ctx) error { return c.JSON(ClaimsFrom(c)) })
	app.Get("/admins", AdminOrSuperAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/root", SuperAdminOnly(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func get(t *testing.T, app *fiber.App, path, bearer string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireSessionAndRole(t *testing.T) {
	app := newRoleApp()

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/any", "", fiber.StatusUnauthorized},
		{"/any", "forged", fiber.StatusUnauthorized},
		{"/any", "student", fiber.StatusOK},
		{"/admins", "student", fiber.StatusForbidden},
		{"/admins", "admin", fiber.StatusOK},
		{"/admins", "root", fiber.StatusOK},
		{"/root", "admin", fiber.StatusForbidden},
		{"/root", "root", fiber.StatusOK},
		{"/root", "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, get(t, app, tt.path, tt.token))
		})
	}
}

func TestRequireSession_CookieAndClaims(t *testing.T) {
	app := newRoleApp()

	req := httptest.NewRequest("GET", "/any", nil)
	req.Header.Set("Cookie", "session_token=admin")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var claims domain.Claims
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&claims))
	assert.Equal(t, uint(2), claims.ID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestRequireRole_WithoutSession(t *testing.T) {
	app := fiber.New()
	app.Get("/x", SuperAdminOnly(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
