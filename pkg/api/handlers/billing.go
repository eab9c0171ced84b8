package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/jordanlanch/restoplan/pkg/api/errors"
	"github.com/jordanlanch/restoplan/pkg/auth"
	"github.com/jordanlanch/restoplan/pkg/billing"
	"github.com/jordanlanch/restoplan/pkg/domain"
	"github.com/jordanlanch/restoplan/pkg/models"
	"github.com/jordanlanch/restoplan/pkg/plans"
)

// MaxWebhookBody caps a Stripe webhook payload.
const MaxWebhookBody = 64 << 10

// BillingHandler serves the Stripe webhook, the checkout and portal RPCs,
// and the public pricing list.
type BillingHandler struct {
	webhooks *billing.WebhookService
	sessions *billing.SessionIssuer
	catalog  *plans.Catalog
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(webhooks *billing.WebhookService, sessions *billing.SessionIssuer, catalog *plans.Catalog) *BillingHandler {
	return &BillingHandler{
		webhooks: webhooks,
		sessions: sessions,
		catalog:  catalog,
	}
}

// HandleWebhook handles Stripe webhook events
// @Summary Handle Stripe webhook
// @Tags Billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe webhook signature"
// @Success 200 {object} models.WebhookResponse
// @Failure 400 {object} models.ErrorResponse "Missing or invalid signature"
// @Failure 500 {object} models.ErrorResponse "Not configured or processing failed; Stripe retries"
// @Router /webhook/stripe [post]
func (h *BillingHandler) HandleWebhook(c echo.Context) error {
	req := c.Request()
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, MaxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "payload_too_large",
				Message: "Webhook payload exceeds 64KB",
			})
		}
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_body",
			Message: "Failed to read request body",
		})
	}

	_, err = h.webhooks.Handle(req.Context(), body, req.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, models.WebhookResponse{Received: true})
	case errors.Is(err, billing.ErrWebhookNotConfigured):
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "webhook_not_configured",
			Message: "Webhook endpoint is not configured",
		})
	case errors.Is(err, billing.ErrMissingSignature):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "missing_signature",
			Message: "Stripe-Signature header is required",
		})
	case errors.Is(err, billing.ErrInvalidSignature):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_signature",
			Message: "Webhook signature verification failed",
		})
	default:
		return apierrors.InternalError(c, err)
	}
}

// CreateCheckoutSession is the createCheckoutSession RPC.
// @Summary Create Stripe checkout session
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CallableRequest[models.CheckoutRequest] true "Checkout request"
// @Success 200 {object} models.CallableResponse
// @Router /rpc/createCheckoutSession [post]
func (h *BillingHandler) CreateCheckoutSession(c echo.Context) error {
	var req models.CallableRequest[models.CheckoutRequest]
	if err := c.Bind(&req); err != nil {
		return apierrors.Callable(c, domain.NewInvalidArgumentError("Invalid request data"))
	}

	ctx := c.Request().Context()
	resp, err := h.sessions.CreateCheckoutSession(ctx, auth.FromContext(ctx), req.Data)
	if err != nil {
		return apierrors.Callable(c, err)
	}

	return c.JSON(http.StatusOK, models.CallableResponse{Result: resp})
}

// CreateCustomerPortalSession is the createCustomerPortalSession RPC.
// @Summary Create Stripe customer portal session
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CallableRequest[models.PortalRequest] true "Portal request"
// @Success 200 {object} models.CallableResponse
// @Router /rpc/createCustomerPortalSession [post]
func (h *BillingHandler) CreateCustomerPortalSession(c echo.Context) error {
	var req models.CallableRequest[models.PortalRequest]
	if err := c.Bind(&req); err != nil {
		return apierrors.Callable(c, domain.NewInvalidArgumentError("Invalid request data"))
	}

	ctx := c.Request().Context()
	resp, err := h.sessions.CreateCustomerPortalSession(ctx, auth.FromContext(ctx), req.Data)
	if err != nil {
		return apierrors.Callable(c, err)
	}

	return c.JSON(http.StatusOK, models.CallableResponse{Result: resp})
}

// GetPricing returns the plan catalog
// @Summary Get pricing plans
// @Tags Billing
// @Produce json
// @Success 200 {object} models.PricingResponse
// @Router /billing/pricing [get]
func (h *BillingHandler) GetPricing(c echo.Context) error {
	return c.JSON(http.StatusOK, models.PricingResponse{Plans: h.catalog.List()})
}
