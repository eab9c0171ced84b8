package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"
	apiPermissionsPolicy     = "camera=(), microphone=(), geolocation=(), payment=()"
	hstsMaxAge               = 63072000
)

// SecurityHeadersConfig overrides individual response headers. Empty fields
// keep the API defaults.
type SecurityHeadersConfig struct {
	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// DefaultSecurityHeadersConfig locks responses down for a JSON-only API.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: apiContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     apiPermissionsPolicy,
	}
}

func (c SecurityHeadersConfig) withDefaults() SecurityHeadersConfig {
	d := DefaultSecurityHeadersConfig()
	if c.ContentSecurityPolicy != "" {
		d.ContentSecurityPolicy = c.ContentSecurityPolicy
	}
	if c.ReferrerPolicy != "" {
		d.ReferrerPolicy = c.ReferrerPolicy
	}
	if c.PermissionsPolicy != "" {
		d.PermissionsPolicy = c.PermissionsPolicy
	}
	return d
}

// SecurityHeaders wraps echo's Secure middleware and adds Permissions-Policy
// and Cache-Control, which it does not cover. Billing responses carry
// per-user data, so nothing is cacheable.
func SecurityHeaders(config SecurityHeadersConfig) echo.MiddlewareFunc {
	cfg := config.withDefaults()
	secure := middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            hstsMaxAge,
		ContentSecurityPolicy: cfg.ContentSecurityPolicy,
		ReferrerPolicy:        cfg.ReferrerPolicy,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return secure(func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Permissions-Policy", cfg.PermissionsPolicy)
			h.Set(echo.HeaderCacheControl, "no-store")
			return next(c)
		})
	}
}
