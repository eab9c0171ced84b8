package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/restoplan/pkg/auth"
	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/models"
)

const verifyTimeout = 5 * time.Second

var errMalformedHeader = errors.New("authorization header must be 'Bearer {token}'")

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errMalformedHeader
	}
	return strings.TrimSpace(parts[1]), nil
}

func attach(c echo.Context, caller *auth.Caller) {
	req := c.Request()
	c.SetRequest(req.WithContext(auth.WithCaller(req.Context(), caller)))
	c.Set("user_id", caller.UID)
}

// Authenticate attaches the caller when a valid bearer token is present and
// lets the request through either way. Handlers decide what an anonymous
// caller may do; the RPC endpoints answer with "unauthenticated".
func Authenticate(verifier auth.TokenVerifier, log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				log.Debug("ignoring malformed authorization header", "path", c.Path())
				return next(c)
			}
			if token == "" {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), verifyTimeout)
			defer cancel()

			caller, err := verifier.Verify(ctx, token)
			if err != nil {
				log.Debug("bearer token rejected", "path", c.Path(), "error", err)
				return next(c)
			}

			attach(c, caller)
			return next(c)
		}
	}
}

// RequireAuth rejects requests without a verified caller.
func RequireAuth(verifier auth.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), verifyTimeout)
			defer cancel()

			caller, err := verifier.Verify(ctx, token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired token",
				})
			}

			attach(c, caller)
			return next(c)
		}
	}
}
