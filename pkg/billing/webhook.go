package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jordanlanch/restoplan/pkg/logger"
)

// EventLog remembers which event ids were already projected.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// WebhookService runs one webhook delivery through verification,
// de-duplication and dispatch.
type WebhookService struct {
	verifier   *Verifier
	dispatcher *Dispatcher
	events     EventLog
	metrics    Recorder
	logger     logger.Logger
}

// NewWebhookService creates the webhook pipeline. events and metrics may be nil.
func NewWebhookService(verifier *Verifier, dispatcher *Dispatcher, events EventLog, metrics Recorder, log logger.Logger) *WebhookService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &WebhookService{
		verifier:   verifier,
		dispatcher: dispatcher,
		events:     events,
		metrics:    metrics,
		logger:     log,
	}
}

// Handle verifies and applies a delivery. Verification errors are returned
// unwrapped from the Verifier; any other error means Stripe should retry.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	start := time.Now()

	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		log := logger.FromContext(ctx, s.logger)
		if errors.Is(err, ErrWebhookNotConfigured) {
			log.Error("webhook rejected, signing secret not configured")
		} else {
			log.Warn("webhook signature rejected", "reason", err)
		}
		s.metrics.RecordWebhook("unknown", "rejected", time.Since(start))
		return "", err
	}

	eventType := string(event.Type)
	log := logger.FromContext(ctx, s.logger).With("event_id", event.ID, "event_type", eventType)

	if s.events != nil {
		seen, err := s.events.Seen(ctx, event.ID)
		if err != nil {
			// Projection is idempotent on its own; carry on without dedup.
			log.Warn("event log unavailable", "error", err)
		} else if seen {
			log.Info("duplicate delivery acknowledged")
			s.metrics.RecordWebhook(eventType, string(OutcomeDuplicate), time.Since(start))
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.dispatcher.Dispatch(ctx, event)
	if err != nil {
		log.Error("webhook handler failed", "error", err)
		s.metrics.RecordWebhook(eventType, "error", time.Since(start))
		return "", err
	}

	if s.events != nil && outcome != OutcomeIgnored {
		if err := s.events.Mark(ctx, event.ID); err != nil {
			log.Warn("failed to mark event processed", "error", err)
		}
	}

	log.Debug("webhook processed", "outcome", outcome)
	s.metrics.RecordWebhook(eventType, string(outcome), time.Since(start))
	return outcome, nil
}
