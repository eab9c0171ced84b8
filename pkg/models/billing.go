package models

import "github.com/jordanlanch/restoplan/pkg/plans"

// CheckoutRequest represents a request to create a checkout session
type CheckoutRequest struct {
	PriceID    string `json:"priceId" validate:"required"`
	UserID     string `json:"userId" validate:"required"`
	UserEmail  string `json:"userEmail" validate:"required,email"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// CheckoutResponse represents a checkout session response
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PortalRequest represents a request to open the customer billing portal
type PortalRequest struct {
	UserID    string `json:"userId" validate:"required"`
	ReturnURL string `json:"returnUrl,omitempty"`
}

// CustomerPortalResponse represents a customer portal session response
type CustomerPortalResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a webhook delivery
type WebhookResponse struct {
	Received bool `json:"received"`
}

// PricingResponse lists the plan catalog
type PricingResponse struct {
	Plans []plans.Plan `json:"plans"`
}

// GateCheckRequest asks whether the caller may use a feature. When Max is
// set the counter is compared directly against it.
type GateCheckRequest struct {
	Feature string `json:"feature" validate:"required"`
	Usage   *int64 `json:"usage,omitempty" validate:"omitempty,min=0"`
	Max     *int64 `json:"max,omitempty" validate:"omitempty,min=-1"`
}

// UsageResponse reports a counter after it was consumed
type UsageResponse struct {
	Feature plans.Feature `json:"feature"`
	Usage   int64         `json:"usage"`
	Limit   *int64        `json:"limit,omitempty"`
}
