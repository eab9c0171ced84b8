package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/jordanlanch/restoplan/pkg/billing"
	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/store"
)

// Defaults for the reconciliation sweep.
const (
	DefaultStaleAfter = 24 * time.Hour
	DefaultBatchSize  = 100
)

// SubscriptionFetcher loads the provider's current view of a subscription.
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// ReconcileRecorder receives per-subscription outcomes.
type ReconcileRecorder interface {
	RecordReconcile(outcome string)
}

type nopReconcileRecorder struct{}

func (nopReconcileRecorder) RecordReconcile(string) {}

// Report summarizes one reconciliation sweep.
type Report struct {
	Checked int
	Applied int
	Skipped int
	Failed  int
}

// Reconciler re-reads subscriptions that have not seen a webhook in a while
// and feeds them through the same projection as webhook upserts, repairing
// state after missed deliveries.
type Reconciler struct {
	users      store.UserStore
	fetcher    SubscriptionFetcher
	projector  *billing.Projector
	metrics    ReconcileRecorder
	logger     logger.Logger
	now        func() time.Time
	staleAfter time.Duration
	batchSize  int
}

// NewReconciler creates a reconciler. metrics may be nil.
func NewReconciler(users store.UserStore, fetcher SubscriptionFetcher, projector *billing.Projector, metrics ReconcileRecorder, log logger.Logger) *Reconciler {
	if metrics == nil {
		metrics = nopReconcileRecorder{}
	}
	return &Reconciler{
		users:      users,
		fetcher:    fetcher,
		projector:  projector,
		metrics:    metrics,
		logger:     log,
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
		batchSize:  DefaultBatchSize,
	}
}

// Run performs one sweep. Per-subscription failures are logged and counted;
// only a failure to list candidates is returned.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report
	now := r.now().UTC()

	users, err := r.users.ListStale(ctx, now.Add(-r.staleAfter), r.batchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list stale subscriptions: %w", err)
	}

	for _, u := range users {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if u.Subscription == nil || u.Subscription.StripeSubscriptionID == "" {
			continue
		}
		report.Checked++

		subID := u.Subscription.StripeSubscriptionID
		log := r.logger.With("user_id", u.ID, "subscription_id", subID)

		sub, err := r.fetcher.GetSubscription(ctx, subID)
		if err != nil {
			var stripeErr *stripe.Error
			if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
				log.Warn("subscription no longer exists at provider")
				report.Skipped++
				r.metrics.RecordReconcile("missing")
				continue
			}
			log.Error("failed to fetch subscription", "error", err)
			report.Failed++
			r.metrics.RecordReconcile("error")
			continue
		}

		// Subscriptions created outside checkout carry no userId; the stored
		// link is authoritative.
		if sub.Metadata[billing.MetadataUserID] == "" {
			if sub.Metadata == nil {
				sub.Metadata = map[string]string{}
			}
			sub.Metadata[billing.MetadataUserID] = u.ID
		}

		outcome, err := r.projector.ApplySubscription(ctx, sub, now, log)
		if err != nil {
			log.Error("failed to apply subscription", "error", err)
			report.Failed++
			r.metrics.RecordReconcile("error")
			continue
		}

		if outcome == billing.OutcomeApplied {
			report.Applied++
		} else {
			report.Skipped++
		}
		r.metrics.RecordReconcile(string(outcome))
	}

	return report, nil
}
