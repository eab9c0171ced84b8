package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/store/memstore"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

const testWebhookSecret = "whsec_test_secret"

// signHeader builds a Stripe-Signature header for payload at ts.
func signHeader(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// envelope wraps a data.object into a full event body.
func envelope(t *testing.T, id, eventType string, created time.Time, object map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     created.Unix(),
		"api_version": "2020-08-27",
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return body
}

// newEvent builds a verified-looking event without a signature round trip.
func newEvent(t *testing.T, id, eventType string, created time.Time, object map[string]interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{
		ID:      id,
		Type:    stripe.EventType(eventType),
		Created: created.Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func subscriptionObject(userID, customer, subID, status, price string, periodEnd time.Time) map[string]interface{} {
	metadata := map[string]string{}
	if userID != "" {
		metadata["userId"] = userID
	}
	return map[string]interface{}{
		"id":                   subID,
		"object":               "subscription",
		"customer":             customer,
		"status":               status,
		"metadata":             metadata,
		"cancel_at_period_end": false,
		"current_period_end":   periodEnd.Unix(),
		"items": map[string]interface{}{
			"object": "list",
			"data": []interface{}{
				map[string]interface{}{
					"id":     "si_1",
					"object": "subscription_item",
					"price":  map[string]interface{}{"id": price, "object": "price"},
				},
			},
		},
	}
}

func checkoutObject(userID, customer string) map[string]interface{} {
	metadata := map[string]string{}
	if userID != "" {
		metadata["userId"] = userID
	}
	obj := map[string]interface{}{
		"id":       "cs_test_1",
		"object":   "checkout.session",
		"metadata": metadata,
	}
	if customer != "" {
		obj["customer"] = customer
	}
	return obj
}

func invoiceObject(customer, subID string) map[string]interface{} {
	obj := map[string]interface{}{
		"id":          "in_1",
		"object":      "invoice",
		"amount_due":  1900,
		"amount_paid": 1900,
	}
	if customer != "" {
		obj["customer"] = customer
	}
	if subID != "" {
		obj["subscription"] = subID
	}
	return obj
}

// failingStore fails every write with err.
type failingStore struct {
	store.UserStore
	err error
}

func (f failingStore) UpdateBilling(context.Context, string, store.MutateFunc) (*subscription.User, error) {
	return nil, f.err
}

// recordingNotifier captures notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	canceled []string
	failed   []string
}

func (r *recordingNotifier) SubscriptionCanceled(_ context.Context, u *subscription.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = append(r.canceled, u.ID)
}

func (r *recordingNotifier) PaymentFailed(_ context.Context, u *subscription.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, u.ID)
}

type projectorFixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	proj     *Projector
}

func newProjectorFixture(t *testing.T, users ...*subscription.User) *projectorFixture {
	t.Helper()
	s := memstore.New()
	for _, u := range users {
		s.Put(u)
	}
	n := &recordingNotifier{}
	return &projectorFixture{
		store:    s,
		notifier: n,
		proj:     NewProjector(s, n, logger.Nop()),
	}
}

func (f *projectorFixture) user(t *testing.T, id string) *subscription.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

var stripeSubscriptionWithoutItems = stripe.Subscription{ID: "sub_empty", Status: stripe.SubscriptionStatusActive}
