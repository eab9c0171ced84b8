// Package memstore is an in-process UserStore used by tests and local runs
// without Firestore credentials.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

// Store keeps users and the customer index in maps guarded by one mutex.
type Store struct {
	mu        sync.Mutex
	users     map[string]*subscription.User
	customers map[string]string
	writes    int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]*subscription.User),
		customers: make(map[string]string),
	}
}

// Put inserts or replaces a user document without touching the index.
func (s *Store) Put(u *subscription.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u.Clone()
}

// Writes returns how many UpdateBilling calls committed.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) GetUser(_ context.Context, userID string) (*subscription.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *Store) FindUserIDByCustomer(_ context.Context, customerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.customers[customerID]; ok {
		if _, exists := s.users[id]; exists {
			return id, nil
		}
	}

	// Fall back to scanning documents written before the index existed.
	var matches []string
	for id, u := range s.users {
		if u.StripeCustomerID == customerID {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", store.ErrUserNotFound
	case 1:
		return matches[0], nil
	default:
		return "", store.ErrAmbiguousCustomer
	}
}

func (s *Store) UpdateBilling(_ context.Context, userID string, fn store.MutateFunc) (*subscription.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	// Only billing fields are persisted.
	stored := current.Clone()
	stored.StripeCustomerID = next.StripeCustomerID
	stored.Subscription = next.Subscription.Clone()
	stored.UpdatedAt = next.UpdatedAt
	s.users[userID] = stored

	for _, cus := range store.CustomerIDs(stored) {
		s.customers[cus] = userID
	}
	s.writes++

	return stored.Clone(), nil
}

func (s *Store) ListStale(_ context.Context, before time.Time, limit int) ([]*subscription.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*subscription.User
	for _, u := range s.users {
		if store.IsStale(u, before) {
			out = append(out, u.Clone())
		}
	}
	// Oldest first, like the Firestore query.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Subscription.LastEventAt, out[j].Subscription.LastEventAt
		switch {
		case a == nil || b == nil:
			if (a == nil) != (b == nil) {
				return a == nil
			}
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
