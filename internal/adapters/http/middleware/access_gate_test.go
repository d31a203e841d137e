package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = GatePolicy{
	LoginPath:         "/login",
	LandingPath:       "/portal",
	ProtectedPrefixes: []string{"/portal", "/admin-ui/"},
	CallbackParam:     "callbackUrl",
}

func TestGatePolicy_IsProtected(t *testing.T) {
	assert.True(t, testPolicy.IsProtected("/portal"))
	assert.True(t, testPolicy.IsProtected("/portal/me"))
	assert.True(t, testPolicy.IsProtected("/admin-ui/users"))
	assert.False(t, testPolicy.IsProtected("/portality"))
	assert.False(t, testPolicy.IsProtected("/login"))
	assert.False(t, testPolicy.IsProtected("/"))
}

func TestGatePolicy_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		target     string
		hasSession bool
		callback   string
		want       string
	}{
		{"protected without session", "/portal/me", "/portal/me", false, "", "/login?callbackUrl=%2Fportal%2Fme"},
		{"protected keeps query", "/portal/me", "/portal/me?tab=2", false, "", "/login?callbackUrl=%2Fportal%2Fme%3Ftab%3D2"},
		{"protected with session", "/portal/me", "/portal/me", true, "", ""},
		{"public without session", "/about", "/about", false, "", ""},
		{"login without session", "/login", "/login", false, "/portal/me", ""},
		{"login with session and protected callback", "/login", "/login", true, "/portal/me", "/portal/me"},
		{"login with session no callback", "/login", "/login", true, "", "/portal"},
		{"login with unprotected callback", "/login", "/login", true, "/about", "/portal"},
		{"absolute url callback", "/login", "/login", true, "https://evil.test/portal", "/portal"},
		{"protocol relative callback", "/login", "/login", true, "//evil.test/portal", "/portal"},
		{"backslash callback", "/login", "/login", true, `/\evil.test/portal`, "/portal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testPolicy.Evaluate(tt.path, tt.target, tt.hasSession, tt.callback))
		})
	}
}

func TestAccessGate_Handler(t *testing.T) {
	app := fiber.New()
	app.Use(AccessGate(testPolicy, "session_token"))
	app.Get("/portal", func(c *fiber.Ctx) error { return c.SendString("portal") })
	app.Get("/login", func(c *fiber.Ctx) error { return c.SendString("login") })

	resp, err := app.Test(httptest.NewRequest("GET", "/portal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?callbackUrl=%2Fportal", resp.Header.Get("Location"))

	// presence is all the gate checks
	req := httptest.NewRequest("GET", "/portal", nil)
	req.Header.Set("Cookie", "session_token=anything")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/login?callbackUrl=%2Fportal", nil)
	req.Header.Set("Cookie", "session_token=anything")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/portal", resp.Header.Get("Location"))

	resp, err = app.Test(httptest.NewRequest("GET", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
