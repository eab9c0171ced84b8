// Package gate turns entitlements into allow/block decisions. A blocked
// decision always carries the upgrade URL so callers can route the user to
// the pricing page instead of failing silently.
package gate

import (
	"strings"

	"github.com/jordanlanch/restoplan/pkg/entitlement"
	"github.com/jordanlanch/restoplan/pkg/plans"
)

// Reasons reported on blocked decisions.
const (
	ReasonFeatureNotInPlan = "feature_not_in_plan"
	ReasonLimitReached     = "limit_reached"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Feature    plans.Feature `json:"feature,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Usage      int64         `json:"usage"`
	Limit      *int64        `json:"limit,omitempty"`
	Plan       plans.ID      `json:"plan,omitempty"`
	UpgradeURL string        `json:"upgradeUrl,omitempty"`
}

// Gate evaluates feature access.
type Gate struct {
	upgradeURL string
}

// New creates a gate that sends blocked users to frontendURL/pricing.
func New(frontendURL string) *Gate {
	return &Gate{upgradeURL: strings.TrimRight(frontendURL, "/") + "/pricing"}
}

// UpgradeURL returns the escape hatch offered on blocked decisions.
func (g *Gate) UpgradeURL() string {
	return g.upgradeURL
}

// Check allows f when the plan grants it outright and usage is within its
// limit. A numeric limit short of unlimited is not a grant; metered
// features go through CheckUsage.
func (g *Gate) Check(e entitlement.Entitlements, f plans.Feature, usage int64) Decision {
	d := Decision{Feature: f, Usage: usage, Plan: e.Plan.ID}
	if max, ok := e.Limit(f).Numeric(); ok {
		d.Limit = &max
	}

	if e.HasFeature(f) && e.CanUseFeature(f, usage) {
		d.Allowed = true
		return d
	}
	return g.block(d, ReasonFeatureNotInPlan)
}

// CheckUsage compares usage against the plan's numeric limit for f.
// Non-numeric features fall back to Check.
func (g *Gate) CheckUsage(e entitlement.Entitlements, f plans.Feature, usage int64) Decision {
	max, ok := e.Limit(f).Numeric()
	if !ok {
		return g.Check(e, f, usage)
	}

	d := g.CheckLimit(usage, max)
	d.Feature = f
	d.Plan = e.Plan.ID
	return d
}

// CheckLimit compares a caller-supplied counter with its maximum directly.
// A max of plans.UnlimitedValue always allows.
func (g *Gate) CheckLimit(current, max int64) Decision {
	d := Decision{Usage: current, Limit: &max}
	if max == plans.UnlimitedValue || current < max {
		d.Allowed = true
		return d
	}
	return g.block(d, ReasonLimitReached)
}

func (g *Gate) block(d Decision, reason string) Decision {
	d.Allowed = false
	d.Reason = reason
	d.UpgradeURL = g.upgradeURL
	return d
}
