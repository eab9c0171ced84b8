package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

func fakeUser() *subscription.User {
	return &subscription.User{
		ID:          gofakeit.UUID(),
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
	}
}

func TestStore_UpdateBilling_WritesIndex(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := fakeUser()
	s.Put(u)

	_, err := s.UpdateBilling(ctx, u.ID, func(next *subscription.User) error {
		next.StripeCustomerID = "cus_1"
		next.DisplayName = "renamed by billing"
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", got.StripeCustomerID)
	assert.Equal(t, u.DisplayName, got.DisplayName, "non-billing fields are never written")

	id, err := s.FindUserIDByCustomer(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestStore_UpdateBilling_AbortLeavesDocument(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := fakeUser()
	s.Put(u)

	_, err := s.UpdateBilling(ctx, u.ID, func(next *subscription.User) error {
		next.StripeCustomerID = "cus_x"
		return store.ErrNoChange
	})
	assert.True(t, errors.Is(err, store.ErrNoChange))
	assert.Equal(t, 0, s.Writes())

	got, _ := s.GetUser(ctx, u.ID)
	assert.Empty(t, got.StripeCustomerID)
}

func TestStore_UpdateBilling_MissingUser(t *testing.T) {
	_, err := New().UpdateBilling(context.Background(), "ghost", func(*subscription.User) error { return nil })
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestStore_FindUserIDByCustomer_Fallback(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := fakeUser()
	a.StripeCustomerID = "cus_legacy"
	s.Put(a)

	id, err := s.FindUserIDByCustomer(ctx, "cus_legacy")
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	b := fakeUser()
	b.StripeCustomerID = "cus_legacy"
	s.Put(b)

	_, err = s.FindUserIDByCustomer(ctx, "cus_legacy")
	assert.ErrorIs(t, err, store.ErrAmbiguousCustomer)

	_, err = s.FindUserIDByCustomer(ctx, "cus_nobody")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestStore_ListStale(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)

	users := []struct {
		rec   *subscription.Record
		stale bool
	}{
		{&subscription.Record{Status: subscription.StatusActive, StripeSubscriptionID: "sub_a", LastEventAt: &old}, true},
		{&subscription.Record{Status: subscription.StatusPastDue, StripeSubscriptionID: "sub_b"}, true},
		{&subscription.Record{Status: subscription.StatusActive, StripeSubscriptionID: "sub_c", LastEventAt: &recent}, false},
		{&subscription.Record{Status: subscription.StatusCanceled, StripeSubscriptionID: "sub_d", LastEventAt: &old}, false},
		{nil, false},
	}

	want := 0
	for _, tc := range users {
		u := fakeUser()
		u.Subscription = tc.rec
		s.Put(u)
		if tc.stale {
			want++
		}
	}

	got, err := s.ListStale(ctx, now.Add(-24*time.Hour), 100)
	require.NoError(t, err)
	assert.Len(t, got, want)

	got, err = s.ListStale(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_ListStale_CanceledDoNotCrowdOutLive(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	ancient := now.Add(-365 * 24 * time.Hour)
	old := now.Add(-48 * time.Hour)

	for i := 0; i < 250; i++ {
		u := fakeUser()
		u.Subscription = &subscription.Record{
			Status:               subscription.StatusCanceled,
			StripeSubscriptionID: gofakeit.UUID(),
			LastEventAt:          &ancient,
		}
		s.Put(u)
	}
	live := fakeUser()
	live.Subscription = &subscription.Record{Status: subscription.StatusActive, StripeSubscriptionID: "sub_live", LastEventAt: &old}
	s.Put(live)

	got, err := s.ListStale(ctx, now.Add(-24*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)
}

func TestStore_ListStale_OldestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	older := now.Add(-72 * time.Hour)
	old := now.Add(-48 * time.Hour)

	a := fakeUser()
	a.Subscription = &subscription.Record{Status: subscription.StatusActive, StripeSubscriptionID: "sub_a", LastEventAt: &old}
	b := fakeUser()
	b.Subscription = &subscription.Record{Status: subscription.StatusTrialing, StripeSubscriptionID: "sub_b", LastEventAt: &older}
	s.Put(a)
	s.Put(b)

	got, err := s.ListStale(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}
