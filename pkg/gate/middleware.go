package gate

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/restoplan/pkg/auth"
	"github.com/jordanlanch/restoplan/pkg/entitlement"
	"github.com/jordanlanch/restoplan/pkg/plans"
)

// Source resolves a user's entitlements and usage.
type Source interface {
	ForUser(ctx context.Context, userID string) entitlement.Entitlements
	Usage(ctx context.Context, userID string) map[plans.Feature]int64
}

// BlockedResponse is the 402 body returned by RequireFeature.
type BlockedResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Decision Decision `json:"decision"`
}

// RequireFeature rejects requests whose caller may not use f. It must run
// after the authentication middleware.
func (g *Gate) RequireFeature(src Source, f plans.Feature) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			caller := auth.FromContext(ctx)
			if caller == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":   "unauthorized",
					"message": "You are not authorized to access this resource.",
				})
			}

			ent := src.ForUser(ctx, caller.UID)
			var d Decision
			if _, numeric := ent.Limit(f).Numeric(); numeric {
				d = g.CheckUsage(ent, f, src.Usage(ctx, caller.UID)[f])
			} else {
				d = g.Check(ent, f, 0)
			}

			if !d.Allowed {
				return c.JSON(http.StatusPaymentRequired, BlockedResponse{
					Error:    "upgrade_required",
					Message:  "Your current plan does not include this feature.",
					Decision: d,
				})
			}

			return next(c)
		}
	}
}

// RequireFeatureParam is RequireFeature with the feature read from the path
// parameter param. Names that are unknown or rejected by accept pass through
// so the handler can answer 404.
func (g *Gate) RequireFeatureParam(src Source, param string, accept func(plans.Feature) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			f, ok := plans.ParseFeature(c.Param(param))
			if !ok || !accept(f) {
				return next(c)
			}
			return g.RequireFeature(src, f)(next)(c)
		}
	}
}
