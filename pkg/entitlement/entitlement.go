// Package entitlement derives what a user may do from their stored
// subscription record. Resolution never fails: a missing or unreadable
// record degrades to the free plan.
package entitlement

import (
	"math"
	"time"

	"github.com/jordanlanch/restoplan/pkg/plans"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

// Entitlements is the resolved view of a subscription record.
type Entitlements struct {
	Plan              plans.Plan
	Status            subscription.Status
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool

	now time.Time
}

// Resolve builds the entitlements for rec at time now.
func Resolve(rec *subscription.Record, catalog *plans.Catalog, now time.Time) Entitlements {
	if rec == nil {
		return Entitlements{
			Plan:   catalog.Free(),
			Status: subscription.StatusActive,
			now:    now,
		}
	}

	status := subscription.ParseStatus(string(rec.Status))
	plan := catalog.Resolve(rec.Plan)
	if status == subscription.StatusCanceled || status == subscription.StatusNone {
		plan = catalog.Free()
	}

	return Entitlements{
		Plan:              plan,
		Status:            status,
		CurrentPeriodEnd:  rec.CurrentPeriodEnd,
		CancelAtPeriodEnd: rec.CancelAtPeriodEnd,
		now:               now,
	}
}

func (e Entitlements) IsActive() bool    { return e.Status == subscription.StatusActive }
func (e Entitlements) IsTrialing() bool  { return e.Status == subscription.StatusTrialing }
func (e Entitlements) IsCancelled() bool { return e.Status == subscription.StatusCanceled }
func (e Entitlements) IsPastDue() bool   { return e.Status == subscription.StatusPastDue }

// Limit returns the plan's allowance for f.
func (e Entitlements) Limit(f plans.Feature) plans.Limit {
	return e.Plan.Limits.For(f)
}

// HasFeature reports whether f is switched on or unlimited. Financial
// projections are available on every plan.
func (e Entitlements) HasFeature(f plans.Feature) bool {
	if f == plans.FeatureFinancialProjections {
		return true
	}
	l := e.Limit(f)
	return l.IsEnabled() || l.IsUnlimited()
}

// CanUseFeature reports whether one more use is allowed given the current
// usage. Usage equal to the limit blocks.
func (e Entitlements) CanUseFeature(f plans.Feature, usage int64) bool {
	if e.HasFeature(f) {
		return true
	}
	max, ok := e.Limit(f).Numeric()
	return ok && max > usage
}

// DaysUntilRenewal returns whole days (rounded up) until the period ends,
// never negative. It is nil when no period end is known.
func (e Entitlements) DaysUntilRenewal() *int {
	if e.CurrentPeriodEnd == nil {
		return nil
	}
	remaining := e.CurrentPeriodEnd.Sub(e.now)
	days := 0
	if remaining > 0 {
		days = int(math.Ceil(remaining.Hours() / 24))
	}
	return &days
}

// View is the JSON shape served to the product.
type View struct {
	Plan              plans.Plan              `json:"plan"`
	Status            subscription.Status     `json:"status"`
	IsActive          bool                    `json:"isActive"`
	IsTrialing        bool                    `json:"isTrialing"`
	IsCancelled       bool                    `json:"isCancelled"`
	IsPastDue         bool                    `json:"isPastDue"`
	CancelAtPeriodEnd bool                    `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  *time.Time              `json:"currentPeriodEnd"`
	DaysUntilRenewal  *int                    `json:"daysUntilRenewal"`
	Features          map[plans.Feature]bool  `json:"features"`
	Usage             map[plans.Feature]int64 `json:"usage"`
}

// View renders e together with the caller's current usage.
func (e Entitlements) View(usage map[plans.Feature]int64) View {
	features := make(map[plans.Feature]bool, len(plans.Features))
	for _, f := range plans.Features {
		features[f] = e.CanUseFeature(f, usage[f])
	}
	if usage == nil {
		usage = map[plans.Feature]int64{}
	}

	return View{
		Plan:              e.Plan,
		Status:            e.Status,
		IsActive:          e.IsActive(),
		IsTrialing:        e.IsTrialing(),
		IsCancelled:       e.IsCancelled(),
		IsPastDue:         e.IsPastDue(),
		CancelAtPeriodEnd: e.CancelAtPeriodEnd,
		CurrentPeriodEnd:  e.CurrentPeriodEnd,
		DaysUntilRenewal:  e.DaysUntilRenewal(),
		Features:          features,
		Usage:             usage,
	}
}
