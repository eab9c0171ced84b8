// Package billing keeps subscription state in sync with Stripe and issues
// checkout and customer-portal sessions.
//
// Write path: Verifier -> WebhookService (dedup) -> Dispatcher -> Projector -> store.
package billing

import "time"

// Stripe event types handled by the dispatcher.
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventCustomerSubscriptionCreated = "customer.subscription.created"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventInvoicePaymentFailed        = "invoice.payment_failed"
)

// MetadataUserID is the metadata key correlating Stripe objects to users.
const MetadataUserID = "userId"

// Outcome labels what a webhook delivery did.
type Outcome string

const (
	// OutcomeApplied means the event was written to the user document.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means the event could not be correlated to a user.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeStale means a newer event was already applied.
	OutcomeStale Outcome = "stale"
	// OutcomeIgnored means the event type is not handled.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate means the event id was already processed.
	OutcomeDuplicate Outcome = "duplicate"
)

// Recorder receives billing metrics.
type Recorder interface {
	RecordWebhook(eventType, outcome string, duration time.Duration)
	RecordSession(kind, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordWebhook(string, string, time.Duration) {}
func (nopRecorder) RecordSession(string, string)                {}
