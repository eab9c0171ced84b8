package cache

import (
	"context"
	"time"
)

const (
	eventKeyPrefix = "stripe:event:"

	// EventTTL outlives the provider's retry window for a single delivery.
	EventTTL = 72 * time.Hour
)

// EventLog remembers processed webhook event ids.
type EventLog struct {
	client *Client
	ttl    time.Duration
}

// NewEventLog creates an event log on top of client.
func NewEventLog(client *Client) *EventLog {
	return &EventLog{client: client, ttl: EventTTL}
}

// Seen reports whether eventID was already marked processed.
func (l *EventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	return l.client.Exists(ctx, eventKeyPrefix+eventID)
}

// Mark records eventID as processed.
func (l *EventLog) Mark(ctx context.Context, eventID string) error {
	_, err := l.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl)
	return err
}
