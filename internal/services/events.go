package services

import (
	"context"
	"log/slog"

	"famledger/internal/amqp"
)

// EventPublisher sends ledger events to whoever listens. *amqp.Client
// implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event amqp.Event) error
}

// NopPublisher drops every event. Used when AMQP is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, amqp.Event) error { return nil }

// publish builds and sends an event. Failures are logged and never fail the
// operation that produced the event: the database is the source of truth.
func publish(ctx context.Context, p EventPublisher, eventType, accountID string, payload any) {
	if p == nil {
		return
	}
	event, err := amqp.NewEvent(eventType, accountID, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build event", "routing_key", eventType, "error", err)
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish event",
			"routing_key", eventType,
			"account_id", accountID,
			"event_id", event.ID,
			"error", err)
	}
}
