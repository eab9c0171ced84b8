package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/plans"
	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

// UserReader loads user documents.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (*subscription.User, error)
}

// UsageReader returns a user's current monthly counters.
type UsageReader interface {
	Snapshot(ctx context.Context, userID string) (map[plans.Feature]int64, error)
}

// Service resolves entitlements for stored users.
type Service struct {
	users   UserReader
	usage   UsageReader
	catalog *plans.Catalog
	logger  logger.Logger
	now     func() time.Time
}

// NewService creates an entitlement service. usage may be nil.
func NewService(users UserReader, usage UsageReader, catalog *plans.Catalog, log logger.Logger) *Service {
	return &Service{
		users:   users,
		usage:   usage,
		catalog: catalog,
		logger:  log,
		now:     time.Now,
	}
}

// Catalog returns the plan catalog used for resolution.
func (s *Service) Catalog() *plans.Catalog {
	return s.catalog
}

// ForUser resolves a user's entitlements. Store failures are logged and
// degrade to the free plan.
func (s *Service) ForUser(ctx context.Context, userID string) Entitlements {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Warn("entitlement lookup failed, using free plan", "user_id", userID, "error", err)
		}
		return Resolve(nil, s.catalog, s.now())
	}
	return Resolve(u.Subscription, s.catalog, s.now())
}

// Usage returns the user's monthly counters. Failures are logged and read as zero.
func (s *Service) Usage(ctx context.Context, userID string) map[plans.Feature]int64 {
	if s.usage == nil {
		return map[plans.Feature]int64{}
	}
	snap, err := s.usage.Snapshot(ctx, userID)
	if err != nil {
		s.logger.Warn("usage lookup failed", "user_id", userID, "error", err)
		return map[plans.Feature]int64{}
	}
	return snap
}
