package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/restoplan/pkg/logger"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithFormat("info", "json", &buf)

	e := echo.New()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return "req-42" },
	}))
	e.Use(RequestLogger(base))
	e.GET("/", func(c echo.Context) error {
		logger.FromContext(c.Request().Context(), logger.Nop()).Info("inside handler")
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "inside handler", line["msg"])
	assert.Equal(t, "req-42", line["request_id"])
}
