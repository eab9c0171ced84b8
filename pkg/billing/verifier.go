package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	// ErrWebhookNotConfigured means no signing secret is configured. It is a
	// server fault, not a fault of the request.
	ErrWebhookNotConfigured = errors.New("webhook signing secret is not configured")

	// ErrMissingSignature means the Stripe-Signature header is absent.
	ErrMissingSignature = errors.New("missing Stripe-Signature header")

	// ErrInvalidSignature means the payload does not match its signature.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Verifier authenticates Stripe webhook deliveries.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a verifier. A zero tolerance uses Stripe's default.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify checks the signature header against payload and decodes the event.
// Failures are deterministic and never retried here.
func (v *Verifier) Verify(payload []byte, header string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, ErrWebhookNotConfigured
	}
	if header == "" {
		return stripe.Event{}, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}
