package middleware

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatePolicy is the edge routing policy for page requests.
// It only looks at whether a session cookie is present; the token itself is
// validated later by RequireSession.
type GatePolicy struct {
	LoginPath         string
	LandingPath       string
	ProtectedPrefixes []string
	CallbackParam     string
}

// IsProtected reports whether path falls under a protected prefix
func (p GatePolicy) IsProtected(path string) bool {
	for _, prefix := range p.ProtectedPrefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Evaluate returns the redirect target for a request, or "" to let it through.
// target is the request path plus query string.
func (p GatePolicy) Evaluate(path, target string, hasSession bool, callback string) string {
	if p.IsProtected(path) && !hasSession {
		return p.LoginPath + "?" + url.Values{p.CallbackParam: {target}}.Encode()
	}
	if path == p.LoginPath && hasSession {
		if cb, ok := p.safeCallback(callback); ok {
			return cb
		}
		return p.LandingPath
	}
	return ""
}

// safeCallback accepts only same-origin relative paths under a protected prefix
func (p GatePolicy) safeCallback(callback string) (string, bool) {
	if callback == "" || !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") || strings.Contains(callback, `\`) {
		return "", false
	}
	u, err := url.Parse(callback)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if !p.IsProtected(u.Path) {
		return "", false
	}
	return callback, true
}

// AccessGate applies the policy before any page handler runs
func AccessGate(p GatePolicy, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target := c.Path()
		if q := string(c.Request().URI().QueryString()); q != "" {
			target += "?" + q
		}

		hasSession := c.Cookies(cookieName) != ""
		if to := p.Evaluate(c.Path(), target, hasSession, c.Query(p.CallbackParam)); to != "" {
			return c.Redirect(to, fiber.StatusFound)
		}
		return c.Next()
	}
}
