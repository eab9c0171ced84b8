// Package store defines persistence for the billing view of user documents.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jordanlanch/restoplan/pkg/subscription"
)

var (
	// ErrUserNotFound is returned when no user document exists for an id or customer.
	ErrUserNotFound = errors.New("user not found")

	// ErrAmbiguousCustomer is returned when a customer id resolves to more than one user.
	ErrAmbiguousCustomer = errors.New("customer id is linked to more than one user")

	// ErrNoChange aborts an UpdateBilling mutation without writing.
	ErrNoChange = errors.New("no change")
)

// MutateFunc edits a copy of the stored user. Returning an error aborts the
// write and the error is passed back to the caller of UpdateBilling.
type MutateFunc func(u *subscription.User) error

// UserStore is the document store the billing core reads and writes.
type UserStore interface {
	// GetUser loads a user document.
	GetUser(ctx context.Context, userID string) (*subscription.User, error)

	// FindUserIDByCustomer resolves a billing-provider customer id to a user id.
	FindUserIDByCustomer(ctx context.Context, customerID string) (string, error)

	// UpdateBilling runs fn inside a transaction against the current user
	// document and persists only the billing fields (stripeCustomerId,
	// subscription, updatedAt). Any customer id present after fn runs is
	// written to the customer index in the same transaction.
	UpdateBilling(ctx context.Context, userID string, fn MutateFunc) (*subscription.User, error)

	// ListStale returns up to limit users with a reconcilable subscription
	// whose last applied event is older than before. Canceled records must not
	// crowd out live ones, however many there are.
	ListStale(ctx context.Context, before time.Time, limit int) ([]*subscription.User, error)
}

// CustomerIDs returns the distinct customer ids carried by u.
func CustomerIDs(u *subscription.User) []string {
	var ids []string
	if u.StripeCustomerID != "" {
		ids = append(ids, u.StripeCustomerID)
	}
	if u.Subscription != nil && u.Subscription.StripeCustomerID != "" && u.Subscription.StripeCustomerID != u.StripeCustomerID {
		ids = append(ids, u.Subscription.StripeCustomerID)
	}
	return ids
}

// ReconcilableStatuses are the stored statuses the reconciliation sweep
// re-fetches. Canceled subscriptions are final and never revisited.
var ReconcilableStatuses = []subscription.Status{
	subscription.StatusActive,
	subscription.StatusTrialing,
	subscription.StatusPastDue,
	subscription.StatusNone,
}

// IsReconcilable reports whether a stored status is swept by reconciliation.
func IsReconcilable(s subscription.Status) bool {
	parsed := subscription.ParseStatus(string(s))
	for _, r := range ReconcilableStatuses {
		if parsed == r {
			return true
		}
	}
	return false
}

// IsStale reports whether u is a candidate for reconciliation.
func IsStale(u *subscription.User, before time.Time) bool {
	rec := u.Subscription
	if rec == nil || rec.StripeSubscriptionID == "" || !IsReconcilable(rec.Status) {
		return false
	}
	return rec.LastEventAt == nil || rec.LastEventAt.Before(before)
}
