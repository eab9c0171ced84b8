// Package errors writes error responses without exposing internal details.
// The real cause is logged; 500s are also reported to Sentry when the
// request carries a Sentry hub.
package errors

import (
	stderrors "errors"
	"log"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/restoplan/pkg/domain"
	"github.com/jordanlanch/restoplan/pkg/models"
)

// HTTPStatus maps a domain error code to its HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case domain.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case domain.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case domain.ErrCodePermissionDenied:
		return http.StatusForbidden
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case domain.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrCodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func report(c echo.Context, err error) {
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

// publicMessage returns the message safe to show a client for err. Internal
// errors never leak their cause.
func publicMessage(err error) string {
	var de *domain.DomainError
	if stderrors.As(err, &de) && de.Code != domain.ErrCodeInternal {
		return de.Message
	}
	return "An internal error occurred. Please try again later."
}

// Callable writes err in the RPC envelope: {"error":{"code","message"}}.
func Callable(c echo.Context, err error) error {
	code := domain.GetErrorCode(err)
	status := HTTPStatus(code)

	if status >= http.StatusInternalServerError {
		log.Printf("[RPC ERROR] Path: %s, Code: %s, Error: %v", c.Request().URL.Path, code, err)
		if code == domain.ErrCodeInternal {
			report(c, err)
		}
	}

	return c.JSON(status, models.CallableResponse{
		Error: &models.CallableError{Code: code, Message: publicMessage(err)},
	})
}

// Domain writes err as a REST error body with the status of its code.
func Domain(c echo.Context, err error) error {
	code := domain.GetErrorCode(err)
	if code == domain.ErrCodeInternal {
		return InternalError(c, err)
	}
	return c.JSON(HTTPStatus(code), models.ErrorResponse{
		Error:   code,
		Message: publicMessage(err),
	})
}

// ValidationError returns a generic validation error without exposing internal details
func ValidationError(c echo.Context, err error) error {
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
	report(c, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "Authentication required.",
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: resource + " not found.",
	})
}
