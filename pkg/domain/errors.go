package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message.
// Codes follow the callable-function vocabulary the web client understands.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeUnauthenticated    = "unauthenticated"
	ErrCodeInvalidArgument    = "invalid-argument"
	ErrCodePermissionDenied   = "permission-denied"
	ErrCodeNotFound           = "not-found"
	ErrCodeDeadlineExceeded   = "deadline-exceeded"
	ErrCodeUnavailable        = "unavailable"
	ErrCodeFailedPrecondition = "failed-precondition"
	ErrCodeInternal           = "internal"
)

// NewUnauthenticatedError creates a new unauthenticated error
func NewUnauthenticatedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthenticated,
		Message: "Authentication required",
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(msg string) error {
	return &DomainError{
		Code:    ErrCodeInvalidArgument,
		Message: msg,
	}
}

// NewPermissionDeniedError creates a new permission denied error
func NewPermissionDeniedError(msg string) error {
	return &DomainError{
		Code:    ErrCodePermissionDenied,
		Message: msg,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewDeadlineExceededError marks a timed-out upstream call. Callers may retry.
func NewDeadlineExceededError(err error) error {
	return &DomainError{
		Code:    ErrCodeDeadlineExceeded,
		Message: "The billing provider did not respond in time. Please try again.",
		Err:     err,
	}
}

// NewUnavailableError creates a new unavailable error
func NewUnavailableError(err error) error {
	return &DomainError{
		Code:    ErrCodeUnavailable,
		Message: "Billing service is temporarily unavailable",
		Err:     err,
	}
}

// NewFailedPreconditionError reports a server-side configuration fault.
func NewFailedPreconditionError(msg string) error {
	return &DomainError{
		Code:    ErrCodeFailedPrecondition,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// GetErrorCode extracts the error code from a domain error.
// Anything that is not a DomainError is internal.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

// HTTPStatus maps an error code to the HTTP status used on the wire.
func HTTPStatus(code string) int {
	switch code {
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodePermissionDenied:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to callers.
func PublicMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "An internal error occurred"
}
