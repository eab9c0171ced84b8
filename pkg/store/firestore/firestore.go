// Package firestore implements store.UserStore on Cloud Firestore.
//
// Layout:
//
//	users/{uid}                 user document; only billing fields are written here
//	stripeCustomers/{customer}  {userId, updatedAt} reverse index for invoice events
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

const (
	usersCollection     = "users"
	customersCollection = "stripeCustomers"
)

type customerIndexEntry struct {
	UserID    string    `firestore:"userId"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// Store is a Firestore-backed store.UserStore.
type Store struct {
	client *firestore.Client
}

// New wraps an existing Firestore client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) users() *firestore.CollectionRef {
	return s.client.Collection(usersCollection)
}

func (s *Store) customers() *firestore.CollectionRef {
	return s.client.Collection(customersCollection)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func decodeUser(snap *firestore.DocumentSnapshot) (*subscription.User, error) {
	var u subscription.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", snap.Ref.ID, err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*subscription.User, error) {
	snap, err := s.users().Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeUser(snap)
}

func (s *Store) FindUserIDByCustomer(ctx context.Context, customerID string) (string, error) {
	snap, err := s.customers().Doc(customerID).Get(ctx)
	switch {
	case err == nil:
		var entry customerIndexEntry
		if err := snap.DataTo(&entry); err != nil {
			return "", fmt.Errorf("failed to decode customer index: %w", err)
		}
		if entry.UserID != "" {
			return entry.UserID, nil
		}
	case !isNotFound(err):
		return "", fmt.Errorf("failed to read customer index: %w", err)
	}

	// Documents written before the index existed are found by field equality.
	docs, err := s.users().
		Where("stripeCustomerId", "==", customerID).
		Limit(2).
		Documents(ctx).
		GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to query users by customer: %w", err)
	}

	switch len(docs) {
	case 0:
		return "", store.ErrUserNotFound
	case 1:
		return docs[0].Ref.ID, nil
	default:
		return "", store.ErrAmbiguousCustomer
	}
}

func (s *Store) UpdateBilling(ctx context.Context, userID string, fn store.MutateFunc) (*subscription.User, error) {
	ref := s.users().Doc(userID)
	var result *subscription.User

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return store.ErrUserNotFound
			}
			return fmt.Errorf("failed to read user: %w", err)
		}

		u, err := decodeUser(snap)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}

		updates := []firestore.Update{
			{Path: "updatedAt", Value: u.UpdatedAt},
		}
		if u.StripeCustomerID != "" {
			updates = append(updates, firestore.Update{Path: "stripeCustomerId", Value: u.StripeCustomerID})
		}
		if u.Subscription != nil {
			updates = append(updates, firestore.Update{Path: "subscription", Value: u.Subscription})
		}
		if err := tx.Update(ref, updates); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		for _, cus := range store.CustomerIDs(u) {
			entry := customerIndexEntry{UserID: userID, UpdatedAt: u.UpdatedAt}
			if err := tx.Set(s.customers().Doc(cus), entry); err != nil {
				return fmt.Errorf("failed to index customer: %w", err)
			}
		}

		result = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListStale filters on status in the query itself so canceled records, which
// are never re-applied and keep the oldest lastEventAt, cannot fill every page.
// Requires the composite index users(subscription.status ASC,
// subscription.lastEventAt ASC).
func (s *Store) ListStale(ctx context.Context, before time.Time, limit int) ([]*subscription.User, error) {
	// Records never touched by an event have no lastEventAt and are not
	// matched by the range filter; they are picked up once an event lands.
	docs, err := s.users().
		Where("subscription.status", "in", reconcilableStatusValues()).
		Where("subscription.lastEventAt", "<", before).
		OrderBy("subscription.lastEventAt", firestore.Asc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query stale subscriptions: %w", err)
	}

	out := make([]*subscription.User, 0, len(docs))
	for _, snap := range docs {
		u, err := decodeUser(snap)
		if err != nil {
			return nil, err
		}
		if store.IsStale(u, before) {
			out = append(out, u)
		}
	}
	return out, nil
}

// reconcilableStatusValues lists the stored status strings matched by
// ListStale. The empty string covers documents written before statuses were
// normalised.
func reconcilableStatusValues() []string {
	values := make([]string, 0, len(store.ReconcilableStatuses)+1)
	for _, st := range store.ReconcilableStatuses {
		values = append(values, string(st))
	}
	return append(values, "")
}

// Ping reads a sentinel document to confirm Firestore is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.customers().Doc("_health").Get(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("firestore unreachable: %w", err)
	}
	return nil
}
