package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jordanlanch/restoplan/pkg/subscription"
)

func TestIsStale(t *testing.T) {
	before := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	old := before.Add(-time.Hour)
	recent := before.Add(time.Hour)

	user := func(status subscription.Status, subID string, lastEvent *time.Time) *subscription.User {
		return &subscription.User{ID: "u1", Subscription: &subscription.Record{
			Status:               status,
			StripeSubscriptionID: subID,
			LastEventAt:          lastEvent,
		}}
	}

	tests := []struct {
		name string
		user *subscription.User
		want bool
	}{
		{"active and old", user(subscription.StatusActive, "sub_1", &old), true},
		{"trialing and old", user(subscription.StatusTrialing, "sub_1", &old), true},
		{"past due and old", user(subscription.StatusPastDue, "sub_1", &old), true},
		{"unknown status and old", user(subscription.StatusNone, "sub_1", &old), true},
		{"empty status and old", user("", "sub_1", &old), true},
		{"never touched", user(subscription.StatusActive, "sub_1", nil), true},
		{"recent", user(subscription.StatusActive, "sub_1", &recent), false},
		{"canceled", user(subscription.StatusCanceled, "sub_1", &old), false},
		{"no subscription id", user(subscription.StatusActive, "", &old), false},
		{"no record", &subscription.User{ID: "u1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStale(tt.user, before))
		})
	}
}

func TestReconcilableStatuses_ExcludeCanceled(t *testing.T) {
	assert.NotContains(t, ReconcilableStatuses, subscription.StatusCanceled)
	assert.False(t, IsReconcilable(subscription.StatusCanceled))
	for _, s := range ReconcilableStatuses {
		assert.True(t, IsReconcilable(s), s)
	}
}
