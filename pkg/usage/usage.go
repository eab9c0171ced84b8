// Package usage keeps per-user monthly usage counters in Redis.
//
// A counter is keyed by user, counter name and calendar month (UTC), so the
// monthly reset is the key rolling over; old months expire on their own.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/restoplan/pkg/cache"
	"github.com/jordanlanch/restoplan/pkg/plans"
)

// retention keeps a month's key alive past the end of the month.
const retention = 40 * 24 * time.Hour

// Metered lists the features counted per month. Other numeric limits
// (maxPlans, maxCollaborators) are counts of owned resources supplied by the caller.
var Metered = []plans.Feature{plans.FeatureMaxExports}

// IsMetered reports whether f is tracked by this package.
func IsMetered(f plans.Feature) bool {
	for _, m := range Metered {
		if m == f {
			return true
		}
	}
	return false
}

// Tracker reads and increments usage counters.
type Tracker struct {
	cache *cache.Client
	now   func() time.Time
}

// NewTracker creates a tracker backed by Redis.
func NewTracker(c *cache.Client) *Tracker {
	return &Tracker{cache: c, now: time.Now}
}

// Period returns the counter period for t, e.g. "2026-10".
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func key(userID string, f plans.Feature, period string) string {
	return fmt.Sprintf("usage:%s:%s:%s", userID, f, period)
}

// Current returns this month's value of a counter.
func (t *Tracker) Current(ctx context.Context, userID string, f plans.Feature) (int64, error) {
	n, err := t.cache.GetInt(ctx, key(userID, f, Period(t.now())))
	if err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return n, nil
}

// Increment adds one to this month's counter and returns the new value.
func (t *Tracker) Increment(ctx context.Context, userID string, f plans.Feature) (int64, error) {
	n, err := t.cache.IncrWithTTL(ctx, key(userID, f, Period(t.now())), retention)
	if err != nil {
		return 0, fmt.Errorf("failed to record usage: %w", err)
	}
	return n, nil
}

// Snapshot returns this month's value of every metered counter.
func (t *Tracker) Snapshot(ctx context.Context, userID string) (map[plans.Feature]int64, error) {
	period := Period(t.now())
	keys := make([]string, len(Metered))
	for i, f := range Metered {
		keys[i] = key(userID, f, period)
	}

	values, err := t.cache.GetMultiInt(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	out := make(map[plans.Feature]int64, len(Metered))
	for i, f := range Metered {
		out[f] = values[i]
	}
	return out, nil
}
