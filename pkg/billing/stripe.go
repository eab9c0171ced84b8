package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CheckoutParams describes a subscription checkout for one user.
type CheckoutParams struct {
	PriceID       string
	UserID        string
	CustomerID    string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is a provider-hosted checkout page.
type CheckoutSession struct {
	ID  string
	URL string
}

// BillingProvider is the subset of Stripe the billing core calls.
type BillingProvider interface {
	NewCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// StripeProvider implements BillingProvider with a per-instance Stripe client.
type StripeProvider struct {
	sc *client.API
}

// NewStripeProvider creates a provider authenticated with secretKey.
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{sc: client.New(secretKey, nil)}
}

// NewCheckoutSession creates a subscription-mode checkout session. The user
// id is stamped on both the session and the subscription it creates; that
// is what correlates later webhook events back to the user.
func (p *StripeProvider) NewCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error) {
	metadata := map[string]string{MetadataUserID: in.UserID}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.UserID),
		Metadata:          metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	params.Context = ctx

	sess, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// NewPortalSession creates a billing portal session scoped to customerID.
func (p *StripeProvider) NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.sc.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}

	return sess.URL, nil
}

// GetSubscription fetches the current state of a subscription.
func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := p.sc.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription %s: %w", subscriptionID, err)
	}
	return sub, nil
}
