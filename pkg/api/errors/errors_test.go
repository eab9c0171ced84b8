package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/restoplan/pkg/domain"
	"github.com/jordanlanch/restoplan/pkg/models"
)

// newContext creates an echo.Context backed by an httptest.NewRecorder.
func newContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// captureLog redirects the standard logger to a buffer for the duration of fn.
func captureLog(fn func()) string {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	fn()
	return buf.String()
}

func TestHTTPStatus(t *testing.T) {
	tests := map[string]int{
		domain.ErrCodeUnauthenticated:    http.StatusUnauthorized,
		domain.ErrCodeInvalidArgument:    http.StatusBadRequest,
		domain.ErrCodePermissionDenied:   http.StatusForbidden,
		domain.ErrCodeNotFound:           http.StatusNotFound,
		domain.ErrCodeDeadlineExceeded:   http.StatusGatewayTimeout,
		domain.ErrCodeUnavailable:        http.StatusServiceUnavailable,
		domain.ErrCodeFailedPrecondition: http.StatusPreconditionFailed,
		domain.ErrCodeInternal:           http.StatusInternalServerError,
		"something-new":                  http.StatusInternalServerError,
	}

	for code, want := range tests {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, want, HTTPStatus(code))
		})
	}
}

func TestCallable_Envelope(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"unauthenticated", domain.NewUnauthenticatedError(), http.StatusUnauthorized, "unauthenticated", "Authentication required"},
		{"invalid argument", domain.NewInvalidArgumentError("Missing or invalid fields: priceId"), http.StatusBadRequest, "invalid-argument", "Missing or invalid fields: priceId"},
		{"not found", domain.NewNotFoundError("Billing account"), http.StatusNotFound, "not-found", "Billing account not found"},
		{"deadline", domain.NewDeadlineExceededError(errors.New("context deadline exceeded")), http.StatusGatewayTimeout, "deadline-exceeded", "The billing provider did not respond in time. Please try again."},
		{"plain error is internal", errors.New("stripe: invalid api key sk_live_abc"), http.StatusInternalServerError, "internal", "An internal error occurred. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/api/v1/rpc/createCheckoutSession")
			require.NoError(t, Callable(c, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body models.CallableResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Nil(t, body.Result)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMessage, body.Error.Message)
		})
	}
}

func TestCallable_InternalNeverLeaksCause(t *testing.T) {
	secret := "stripe: invalid api key sk_live_abc"
	var rec *httptest.ResponseRecorder
	logged := captureLog(func() {
		var c echo.Context
		c, rec = newContext(http.MethodPost, "/api/v1/rpc/createCheckoutSession")
		_ = Callable(c, domain.NewInternalError(errors.New(secret)))
	})

	assert.NotContains(t, rec.Body.String(), "sk_live_abc")
	assert.Contains(t, logged, "[RPC ERROR]")
	assert.Contains(t, logged, secret)
}

func TestDomain(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/v1/billing/entitlements")
	require.NoError(t, Domain(c, domain.NewPermissionDeniedError("nope")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, models.ErrorResponse{Error: "permission-denied", Message: "nope"}, parseBody(t, rec))

	c, rec = newContext(http.MethodGet, "/api/v1/billing/entitlements")
	require.NoError(t, Domain(c, errors.New("firestore: unavailable")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", parseBody(t, rec).Error)
}

func TestValidationError(t *testing.T) {
	internalMsg := "Key: 'GateCheckRequest.Feature' Error:Field validation for 'Feature' failed on the 'required' tag"
	var rec *httptest.ResponseRecorder
	logged := captureLog(func() {
		var c echo.Context
		c, rec = newContext(http.MethodPost, "/api/v1/gate/check")
		assert.NoError(t, ValidationError(c, errors.New(internalMsg)))
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "validation_error", parseBody(t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "GateCheckRequest")
	assert.Contains(t, logged, "[VALIDATION ERROR]")
	assert.Contains(t, logged, "/api/v1/gate/check")
}

func TestInternalError(t *testing.T) {
	internalMsg := "rpc error: code = Unavailable desc = firestore down"
	var rec *httptest.ResponseRecorder
	logged := captureLog(func() {
		var c echo.Context
		c, rec = newContext(http.MethodGet, "/api/v1/billing/entitlements")
		assert.NoError(t, InternalError(c, errors.New(internalMsg)))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "firestore")
	assert.Contains(t, logged, "[INTERNAL ERROR]")
	assert.Contains(t, logged, internalMsg)
}

func TestUnauthorizedAndNotFound(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/v1/billing/entitlements")
	require.NoError(t, UnauthorizedError(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", parseBody(t, rec).Error)

	c, rec = newContext(http.MethodPost, "/api/v1/usage/unknown/consume")
	require.NoError(t, NotFoundError(c, "Usage counter"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Usage counter not found.", parseBody(t, rec).Message)
}
