package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/restoplan/pkg/api/errors"
	"github.com/jordanlanch/restoplan/pkg/auth"
	"github.com/jordanlanch/restoplan/pkg/entitlement"
	"github.com/jordanlanch/restoplan/pkg/gate"
	"github.com/jordanlanch/restoplan/pkg/models"
	"github.com/jordanlanch/restoplan/pkg/plans"
	"github.com/jordanlanch/restoplan/pkg/usage"
)

// GateRecorder receives gate and usage metrics.
type GateRecorder interface {
	RecordGateDecision(feature string, allowed bool)
	RecordUsage(counter string)
}

type nopGateRecorder struct{}

func (nopGateRecorder) RecordGateDecision(string, bool) {}
func (nopGateRecorder) RecordUsage(string)              {}

// EntitlementHandler exposes the entitlement resolver, the feature gate and
// the monthly usage counters to authenticated callers.
type EntitlementHandler struct {
	source    *entitlement.Service
	gate      *gate.Gate
	tracker   *usage.Tracker
	metrics   GateRecorder
	validator *validator.Validate
}

// NewEntitlementHandler creates a new entitlement handler. metrics may be nil.
func NewEntitlementHandler(source *entitlement.Service, g *gate.Gate, tracker *usage.Tracker, metrics GateRecorder) *EntitlementHandler {
	if metrics == nil {
		metrics = nopGateRecorder{}
	}
	return &EntitlementHandler{
		source:    source,
		gate:      g,
		tracker:   tracker,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// GetEntitlements returns the caller's resolved plan, status and usage
// @Summary Get entitlements
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} entitlement.View
// @Failure 401 {object} models.ErrorResponse
// @Router /billing/entitlements [get]
func (h *EntitlementHandler) GetEntitlements(c echo.Context) error {
	ctx := c.Request().Context()
	caller := auth.FromContext(ctx)
	if caller == nil {
		return apierrors.UnauthorizedError(c)
	}

	ent := h.source.ForUser(ctx, caller.UID)
	return c.JSON(http.StatusOK, ent.View(h.source.Usage(ctx, caller.UID)))
}

// CheckGate evaluates one feature for the caller
// @Summary Check a feature gate
// @Tags Gate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.GateCheckRequest true "Feature and optional counters"
// @Success 200 {object} gate.Decision
// @Failure 400 {object} models.ErrorResponse
// @Router /gate/check [post]
func (h *EntitlementHandler) CheckGate(c echo.Context) error {
	ctx := c.Request().Context()
	caller := auth.FromContext(ctx)
	if caller == nil {
		return apierrors.UnauthorizedError(c)
	}

	var req models.GateCheckRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	f, ok := plans.ParseFeature(req.Feature)
	if !ok {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "unknown_feature",
			Message: "Unknown feature: " + req.Feature,
		})
	}

	var d gate.Decision
	if req.Max != nil {
		var current int64
		if req.Usage != nil {
			current = *req.Usage
		}
		d = h.gate.CheckLimit(current, *req.Max)
		d.Feature = f
	} else {
		ent := h.source.ForUser(ctx, caller.UID)
		var current int64
		if req.Usage != nil {
			current = *req.Usage
		} else if usage.IsMetered(f) {
			current = h.source.Usage(ctx, caller.UID)[f]
		}

		if _, numeric := ent.Limit(f).Numeric(); numeric {
			d = h.gate.CheckUsage(ent, f, current)
		} else {
			d = h.gate.Check(ent, f, current)
		}
	}

	h.metrics.RecordGateDecision(string(f), d.Allowed)
	return c.JSON(http.StatusOK, d)
}

// ConsumeUsage checks the gate for a metered counter and increments it
// @Summary Consume one unit of a metered counter
// @Tags Gate
// @Produce json
// @Security BearerAuth
// @Param counter path string true "Counter name, e.g. maxExports"
// @Success 200 {object} models.UsageResponse
// @Failure 402 {object} gate.BlockedResponse "Limit reached"
// @Failure 404 {object} models.ErrorResponse "Not a metered counter"
// @Router /usage/{counter}/consume [post]
func (h *EntitlementHandler) ConsumeUsage(c echo.Context) error {
	ctx := c.Request().Context()
	caller := auth.FromContext(ctx)
	if caller == nil {
		return apierrors.UnauthorizedError(c)
	}

	f, ok := plans.ParseFeature(c.Param("counter"))
	if !ok || !usage.IsMetered(f) {
		return apierrors.NotFoundError(c, "Usage counter")
	}

	current, err := h.tracker.Current(ctx, caller.UID, f)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	ent := h.source.ForUser(ctx, caller.UID)
	d := h.gate.CheckUsage(ent, f, current)
	h.metrics.RecordGateDecision(string(f), d.Allowed)
	if !d.Allowed {
		return c.JSON(http.StatusPaymentRequired, gate.BlockedResponse{
			Error:    "upgrade_required",
			Message:  "You have reached your plan's monthly limit.",
			Decision: d,
		})
	}

	n, err := h.tracker.Increment(ctx, caller.UID, f)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	h.metrics.RecordUsage(string(f))

	return c.JSON(http.StatusOK, models.UsageResponse{
		Feature: f,
		Usage:   n,
		Limit:   d.Limit,
	})
}
