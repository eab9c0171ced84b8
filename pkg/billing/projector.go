package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

// errStale aborts a transaction whose event predates the stored state.
var errStale = errors.New("event older than stored subscription state")

// Projector applies Stripe objects onto user documents. Every handler does
// exactly one transactional read-modify-write, so replays converge.
type Projector struct {
	store    store.UserStore
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
}

// NewProjector creates a projector. notifier may be nil.
func NewProjector(s store.UserStore, notifier Notifier, log logger.Logger) *Projector {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Projector{
		store:    s,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

func eventTime(event stripe.Event) time.Time {
	return time.Unix(event.Created, 0).UTC()
}

func decode(event stripe.Event, v interface{}) error {
	if event.Data == nil {
		return fmt.Errorf("event %s has no data", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// commit runs one UpdateBilling and folds the store result into an Outcome.
func (p *Projector) commit(ctx context.Context, log logger.Logger, userID string, fn store.MutateFunc) (*subscription.User, Outcome, error) {
	u, err := p.store.UpdateBilling(ctx, userID, fn)
	switch {
	case err == nil:
		return u, OutcomeApplied, nil
	case errors.Is(err, store.ErrUserNotFound):
		log.Warn("user document not found, event skipped", "user_id", userID)
		return nil, OutcomeSkipped, nil
	case errors.Is(err, store.ErrNoChange):
		return nil, OutcomeSkipped, nil
	case errors.Is(err, errStale):
		log.Info("stale event skipped", "user_id", userID)
		return nil, OutcomeStale, nil
	default:
		return nil, "", fmt.Errorf("failed to update user %s: %w", userID, err)
	}
}

// CheckoutCompleted links the Stripe customer to the user. Plan and status
// arrive with the subscription events that follow.
func (p *Projector) CheckoutCompleted(ctx context.Context, event stripe.Event) (Outcome, error) {
	var sess stripe.CheckoutSession
	if err := decode(event, &sess); err != nil {
		return "", err
	}

	log := p.logger.With("event_id", event.ID, "session_id", sess.ID)

	userID := sess.Metadata[MetadataUserID]
	if userID == "" {
		userID = sess.ClientReferenceID
	}
	cus := customerID(sess.Customer)
	if userID == "" || cus == "" {
		log.Error("checkout session missing correlation data", "has_user_id", userID != "", "has_customer", cus != "")
		return OutcomeSkipped, nil
	}

	_, outcome, err := p.commit(ctx, log, userID, func(u *subscription.User) error {
		if u.StripeCustomerID != "" && u.StripeCustomerID != cus {
			log.Warn("stripe customer reassigned", "user_id", userID, "previous", u.StripeCustomerID, "customer", cus)
		}
		u.StripeCustomerID = cus
		u.UpdatedAt = p.now().UTC()
		return nil
	})
	if err == nil && outcome == OutcomeApplied {
		log.Info("checkout completed", "user_id", userID, "customer", cus)
	}
	return outcome, err
}

// RecordFromSubscription derives the stored record for a Stripe subscription.
func RecordFromSubscription(sub *stripe.Subscription, eventAt time.Time) *subscription.Record {
	rec := &subscription.Record{
		Status:               subscription.ParseStatus(string(sub.Status)),
		Plan:                 "free",
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		StripeCustomerID:     customerID(sub.Customer),
		StripeSubscriptionID: sub.ID,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		rec.Plan = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		rec.CurrentPeriodEnd = &end
	}
	rec.Touch(eventAt)
	return rec
}

// SubscriptionUpserted replaces the user's subscription record.
func (p *Projector) SubscriptionUpserted(ctx context.Context, event stripe.Event) (Outcome, error) {
	var sub stripe.Subscription
	if err := decode(event, &sub); err != nil {
		return "", err
	}
	return p.ApplySubscription(ctx, &sub, eventTime(event), p.logger.With("event_id", event.ID))
}

// ApplySubscription writes sub as the user's record unless a newer event
// was already applied. Reconciliation uses it with the fetch time.
func (p *Projector) ApplySubscription(ctx context.Context, sub *stripe.Subscription, eventAt time.Time, log logger.Logger) (Outcome, error) {
	log = log.With("subscription_id", sub.ID)

	userID := sub.Metadata[MetadataUserID]
	if userID == "" {
		log.Error("subscription missing userId metadata")
		return OutcomeSkipped, nil
	}

	next := RecordFromSubscription(sub, eventAt)
	if next.Status == subscription.StatusNone {
		log.Warn("unrecognised subscription status, treating as not entitled", "status", sub.Status)
	}
	_, outcome, err := p.commit(ctx, log, userID, func(u *subscription.User) error {
		if u.Subscription.IsStale(eventAt) {
			return errStale
		}
		if prev := u.Subscription; prev != nil {
			next.LastPaymentDate = prev.LastPaymentDate
			next.LastPaymentFailure = prev.LastPaymentFailure
		}
		u.Subscription = next
		u.UpdatedAt = p.now().UTC()
		return nil
	})
	if err == nil && outcome == OutcomeApplied {
		log.Info("subscription updated", "user_id", userID, "status", next.Status, "plan", next.Plan)
	}
	return outcome, err
}

// SubscriptionDeleted marks the subscription canceled. The rest of the
// record is kept.
func (p *Projector) SubscriptionDeleted(ctx context.Context, event stripe.Event) (Outcome, error) {
	var sub stripe.Subscription
	if err := decode(event, &sub); err != nil {
		return "", err
	}

	log := p.logger.With("event_id", event.ID, "subscription_id", sub.ID)
	userID := sub.Metadata[MetadataUserID]
	if userID == "" {
		log.Error("subscription missing userId metadata")
		return OutcomeSkipped, nil
	}

	eventAt := eventTime(event)
	var wasCanceled bool
	u, outcome, err := p.commit(ctx, log, userID, func(u *subscription.User) error {
		if u.Subscription.IsStale(eventAt) {
			return errStale
		}
		rec := u.Subscription
		if rec == nil {
			rec = &subscription.Record{
				Plan:                 "free",
				StripeCustomerID:     customerID(sub.Customer),
				StripeSubscriptionID: sub.ID,
			}
		}
		wasCanceled = rec.Status == subscription.StatusCanceled
		rec.Status = subscription.StatusCanceled
		rec.CancelAtPeriodEnd = false
		rec.Touch(eventAt)
		u.Subscription = rec
		u.UpdatedAt = p.now().UTC()
		return nil
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}

	log.Info("subscription canceled", "user_id", userID)
	if !wasCanceled {
		p.notifier.SubscriptionCanceled(ctx, u)
	}
	return outcome, nil
}

// resolveCustomer maps an invoice's customer to a user id. Misses and
// ambiguous matches are soft failures.
func (p *Projector) resolveCustomer(ctx context.Context, log logger.Logger, cus string) (string, Outcome, error) {
	userID, err := p.store.FindUserIDByCustomer(ctx, cus)
	switch {
	case err == nil:
		return userID, "", nil
	case errors.Is(err, store.ErrUserNotFound):
		log.Info("no user for customer, event skipped", "customer", cus)
		return "", OutcomeSkipped, nil
	case errors.Is(err, store.ErrAmbiguousCustomer):
		log.Error("customer linked to several users, event skipped", "customer", cus)
		return "", OutcomeSkipped, nil
	default:
		return "", "", fmt.Errorf("failed to resolve customer %s: %w", cus, err)
	}
}

// PaymentSucceeded records the payment time.
func (p *Projector) PaymentSucceeded(ctx context.Context, event stripe.Event) (Outcome, error) {
	var inv stripe.Invoice
	if err := decode(event, &inv); err != nil {
		return "", err
	}

	log := p.logger.With("event_id", event.ID, "invoice_id", inv.ID)
	cus := customerID(inv.Customer)
	if cus == "" || inv.Subscription == nil || inv.Subscription.ID == "" {
		log.Debug("invoice without customer or subscription ignored")
		return OutcomeSkipped, nil
	}

	userID, outcome, err := p.resolveCustomer(ctx, log, cus)
	if userID == "" {
		return outcome, err
	}

	paidAt := eventTime(event)
	_, outcome, err = p.commit(ctx, log, userID, func(u *subscription.User) error {
		rec := u.Subscription
		if rec == nil {
			rec = &subscription.Record{
				Plan:                 "free",
				StripeCustomerID:     cus,
				StripeSubscriptionID: inv.Subscription.ID,
			}
		}
		if rec.LastPaymentDate == nil || paidAt.After(*rec.LastPaymentDate) {
			rec.LastPaymentDate = &paidAt
		}
		u.Subscription = rec
		u.UpdatedAt = p.now().UTC()
		return nil
	})
	if err == nil && outcome == OutcomeApplied {
		log.Info("invoice paid", "user_id", userID, "amount", inv.AmountPaid)
	}
	return outcome, err
}

// PaymentFailed marks the subscription past due and records the failure
// time. A failure older than the stored state only records the time.
func (p *Projector) PaymentFailed(ctx context.Context, event stripe.Event) (Outcome, error) {
	var inv stripe.Invoice
	if err := decode(event, &inv); err != nil {
		return "", err
	}

	log := p.logger.With("event_id", event.ID, "invoice_id", inv.ID)
	cus := customerID(inv.Customer)
	if cus == "" {
		log.Debug("invoice without customer ignored")
		return OutcomeSkipped, nil
	}

	userID, outcome, err := p.resolveCustomer(ctx, log, cus)
	if userID == "" {
		return outcome, err
	}

	failedAt := eventTime(event)
	var stale, wasPastDue bool
	u, outcome, err := p.commit(ctx, log, userID, func(u *subscription.User) error {
		rec := u.Subscription
		if rec == nil {
			rec = &subscription.Record{Plan: "free", StripeCustomerID: cus}
			if inv.Subscription != nil {
				rec.StripeSubscriptionID = inv.Subscription.ID
			}
		}
		if rec.LastPaymentFailure == nil || failedAt.After(*rec.LastPaymentFailure) {
			rec.LastPaymentFailure = &failedAt
		}

		stale = rec.IsStale(failedAt)
		if !stale {
			wasPastDue = rec.Status == subscription.StatusPastDue
			rec.Status = subscription.StatusPastDue
			rec.Touch(failedAt)
		}
		u.Subscription = rec
		u.UpdatedAt = p.now().UTC()
		return nil
	})
	if err != nil || outcome != OutcomeApplied {
		return outcome, err
	}

	if stale {
		log.Info("payment failure recorded, newer status kept", "user_id", userID)
		return OutcomeStale, nil
	}

	log.Warn("invoice payment failed", "user_id", userID, "amount_due", inv.AmountDue)
	if !wasPastDue {
		p.notifier.PaymentFailed(ctx, u)
	}
	return outcome, nil
}
