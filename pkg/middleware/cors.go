package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4/middleware"
)

// AllowedMethods are the methods browsers may use cross-origin.
var AllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodOptions,
}

// CORSConfig returns the CORS configuration for the given frontend origins.
// Empty entries are dropped and trailing slashes trimmed so FRONTEND_URL can
// be passed straight from config.
func CORSConfig(origins ...string) middleware.CORSConfig {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			allowed = append(allowed, o)
		}
	}

	return middleware.CORSConfig{
		AllowOrigins:     allowed,
		AllowMethods:     AllowedMethods,
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}
}
