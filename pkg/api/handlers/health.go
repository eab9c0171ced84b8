package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/restoplan/pkg/models"
)

// Checker reports whether one dependency is reachable.
type Checker func(ctx context.Context) error

// HealthHandler reports dependency status.
type HealthHandler struct {
	checks map[string]Checker
}

// NewHealthHandler creates a health handler over the named checks.
func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health returns 200 when every dependency is up and 503 otherwise
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := models.HealthResponse{Status: "healthy", Services: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Services[name] = "down"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Services[name] = "up"
	}

	return c.JSON(status, resp)
}
