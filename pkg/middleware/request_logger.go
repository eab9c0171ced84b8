package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/restoplan/pkg/logger"
)

// RequestLogger stores a logger tagged with the request id in the request
// context. It must run after echo's RequestID middleware.
func RequestLogger(base logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := base
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				l = base.With("request_id", id)
			}
			req := c.Request()
			c.SetRequest(req.WithContext(logger.IntoContext(req.Context(), l)))
			return next(c)
		}
	}
}
