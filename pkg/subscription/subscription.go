// Package subscription defines the per-user billing state persisted in the
// user's document.
package subscription

import "time"

// Status mirrors the billing provider's subscription state.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	// StatusNone marks a missing or unrecognised status. It never entitles.
	StatusNone Status = "none"
)

// ParseStatus normalizes a provider status. Provider states this system does
// not model (incomplete, unpaid, paused, ...) are folded into the closest one;
// anything else, including the empty string, is StatusNone.
func ParseStatus(s string) Status {
	switch s {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due", "unpaid", "incomplete":
		return StatusPastDue
	case "canceled", "cancelled", "incomplete_expired", "paused":
		return StatusCanceled
	default:
		return StatusNone
	}
}

// IsKnown reports whether s is one of the modelled provider states.
func (s Status) IsKnown() bool {
	return s != StatusNone && ParseStatus(string(s)) == s
}

// Record is the subscription sub-object of a user document.
type Record struct {
	Status               Status     `firestore:"status" json:"status"`
	Plan                 string     `firestore:"plan" json:"plan"`
	CurrentPeriodEnd     *time.Time `firestore:"currentPeriodEnd" json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool       `firestore:"cancelAtPeriodEnd" json:"cancelAtPeriodEnd"`
	StripeCustomerID     string     `firestore:"stripeCustomerId" json:"stripeCustomerId"`
	StripeSubscriptionID string     `firestore:"stripeSubscriptionId" json:"stripeSubscriptionId"`
	LastPaymentDate      *time.Time `firestore:"lastPaymentDate,omitempty" json:"lastPaymentDate,omitempty"`
	LastPaymentFailure   *time.Time `firestore:"lastPaymentFailure,omitempty" json:"lastPaymentFailure,omitempty"`

	// LastEventAt is the creation time of the newest provider event applied
	// to this record; older events must not change the status.
	LastEventAt *time.Time `firestore:"lastEventAt,omitempty" json:"lastEventAt,omitempty"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.CurrentPeriodEnd = cloneTime(r.CurrentPeriodEnd)
	c.LastPaymentDate = cloneTime(r.LastPaymentDate)
	c.LastPaymentFailure = cloneTime(r.LastPaymentFailure)
	c.LastEventAt = cloneTime(r.LastEventAt)
	return &c
}

// IsStale reports whether an event created at eventAt predates the newest
// event already applied. Equal timestamps are not stale so replays converge.
func (r *Record) IsStale(eventAt time.Time) bool {
	if r == nil || r.LastEventAt == nil {
		return false
	}
	return eventAt.Before(*r.LastEventAt)
}

// Touch advances LastEventAt to eventAt if it is newer.
func (r *Record) Touch(eventAt time.Time) {
	if r.LastEventAt == nil || eventAt.After(*r.LastEventAt) {
		t := eventAt.UTC()
		r.LastEventAt = &t
	}
}

// User is the billing view of a user document. Fields owned by other parts
// of the product are not mapped and never written.
type User struct {
	ID               string    `firestore:"-" json:"id"`
	Email            string    `firestore:"email" json:"email"`
	DisplayName      string    `firestore:"displayName" json:"displayName"`
	StripeCustomerID string    `firestore:"stripeCustomerId" json:"stripeCustomerId,omitempty"`
	Subscription     *Record   `firestore:"subscription" json:"subscription,omitempty"`
	UpdatedAt        time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// CustomerID returns the stored provider customer, preferring the top-level
// field written at checkout completion.
func (u *User) CustomerID() string {
	if u.StripeCustomerID != "" {
		return u.StripeCustomerID
	}
	if u.Subscription != nil {
		return u.Subscription.StripeCustomerID
	}
	return ""
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Subscription = u.Subscription.Clone()
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
