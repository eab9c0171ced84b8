package billing

import (
	"context"

	"github.com/stripe/stripe-go/v76"

	"github.com/jordanlanch/restoplan/pkg/logger"
)

// Dispatcher routes verified events to exactly one projector handler.
type Dispatcher struct {
	projector *Projector
	logger    logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(projector *Projector, log logger.Logger) *Dispatcher {
	return &Dispatcher{projector: projector, logger: log}
}

// Dispatch applies event. Unknown types are acknowledged with OutcomeIgnored
// so Stripe does not retry them; handler errors are returned so it does.
func (d *Dispatcher) Dispatch(ctx context.Context, event stripe.Event) (Outcome, error) {
	switch event.Type {
	case EventCheckoutSessionCompleted:
		return d.projector.CheckoutCompleted(ctx, event)
	case EventCustomerSubscriptionCreated, EventCustomerSubscriptionUpdated:
		return d.projector.SubscriptionUpserted(ctx, event)
	case EventCustomerSubscriptionDeleted:
		return d.projector.SubscriptionDeleted(ctx, event)
	case EventInvoicePaymentSucceeded:
		return d.projector.PaymentSucceeded(ctx, event)
	case EventInvoicePaymentFailed:
		return d.projector.PaymentFailed(ctx, event)
	default:
		d.logger.Info("unhandled webhook event type", "event_id", event.ID, "event_type", event.Type)
		return OutcomeIgnored, nil
	}
}
