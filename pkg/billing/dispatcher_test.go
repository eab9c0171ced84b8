package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Routes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		eventType string
		object    map[string]interface{}
		want      Outcome
	}{
		{EventCheckoutSessionCompleted, checkoutObject("u1", "cus_1"), OutcomeApplied},
		{EventCustomerSubscriptionCreated, subscriptionObject("u1", "cus_1", "sub_1", "trialing", "price_pro", t0), OutcomeApplied},
		{EventCustomerSubscriptionUpdated, subscriptionObject("u1", "cus_1", "sub_1", "active", "price_pro", t0), OutcomeApplied},
		{EventCustomerSubscriptionDeleted, subscriptionObject("u1", "cus_1", "sub_1", "canceled", "price_pro", t0), OutcomeApplied},
		{EventInvoicePaymentSucceeded, invoiceObject("cus_1", "sub_1"), OutcomeApplied},
		{EventInvoicePaymentFailed, invoiceObject("cus_1", "sub_1"), OutcomeApplied},
		{"invoice.paid", invoiceObject("cus_1", "sub_1"), OutcomeIgnored},
		{"charge.refunded", map[string]interface{}{"id": "ch_1"}, OutcomeIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			u := newUser("u1")
			u.StripeCustomerID = "cus_1"
			f := newProjectorFixture(t, u)
			d := NewDispatcher(f.proj, f.proj.logger)

			outcome, err := d.Dispatch(ctx, newEvent(t, "evt_1", tt.eventType, t0, tt.object))
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

func TestDispatcher_MalformedPayloadIsAnError(t *testing.T) {
	f := newProjectorFixture(t, newUser("u1"))
	d := NewDispatcher(f.proj, f.proj.logger)

	event := newEvent(t, "evt_1", EventCustomerSubscriptionUpdated, t0, nil)
	event.Data.Raw = []byte(`{"status": 42}`)

	_, err := d.Dispatch(context.Background(), event)
	assert.Error(t, err)
}
