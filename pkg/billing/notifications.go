package billing

import (
	"context"

	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

// EmailSender abstracts email sending for billing notifications.
type EmailSender interface {
	SendEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error
}

// Notifier tells users about billing state changes. Implementations must
// not fail the webhook; errors are theirs to log.
type Notifier interface {
	SubscriptionCanceled(ctx context.Context, u *subscription.User)
	PaymentFailed(ctx context.Context, u *subscription.User)
}

type nopNotifier struct{}

func (nopNotifier) SubscriptionCanceled(context.Context, *subscription.User) {}
func (nopNotifier) PaymentFailed(context.Context, *subscription.User)        {}

// EmailNotifier sends billing notifications by email.
type EmailNotifier struct {
	sender  EmailSender
	baseURL string
	logger  logger.Logger
}

// NewEmailNotifier creates a notifier linking back to baseURL.
func NewEmailNotifier(sender EmailSender, baseURL string, log logger.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, baseURL: baseURL, logger: log}
}

func displayName(u *subscription.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "there"
}

func (n *EmailNotifier) SubscriptionCanceled(_ context.Context, u *subscription.User) {
	if u == nil || u.Email == "" {
		return
	}
	subject, html, plain := buildSubscriptionCancelledEmail(displayName(u), n.baseURL)
	if err := n.sender.SendEmail(u.Email, u.DisplayName, subject, html, plain); err != nil {
		n.logger.Warn("failed to send cancellation email", "user_id", u.ID, "error", err)
	}
}

func (n *EmailNotifier) PaymentFailed(_ context.Context, u *subscription.User) {
	if u == nil || u.Email == "" {
		return
	}
	subject, html, plain := buildPaymentFailedEmail(displayName(u), n.baseURL)
	if err := n.sender.SendEmail(u.Email, u.DisplayName, subject, html, plain); err != nil {
		n.logger.Warn("failed to send payment failed email", "user_id", u.ID, "error", err)
	}
}
