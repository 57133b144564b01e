package notifications

import (
	"context"
	"log/slog"

	"inkwell/internal/middleware"
)

// Publisher delivers events to websocket clients. With Redis the event goes through
// pub/sub so every API instance sees it; without Redis it goes straight to the local hub.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
}

func NewPublisher(hub *Hub, notifier *Notifier) *Publisher {
	return &Publisher{hub: hub, notifier: notifier}
}

func (p *Publisher) distributed() bool {
	return p.notifier != nil && p.notifier.rdb != nil
}

// ToUser sends an event to every connection of one user.
func (p *Publisher) ToUser(ctx context.Context, userID uint, eventType string, payload any) {
	p.publish(ctx, eventType, payload, func(msg string) error {
		if p.distributed() {
			return p.notifier.PublishUser(ctx, userID, msg)
		}
		p.hub.Broadcast(userID, msg)
		return nil
	})
}

// ToStaff sends an event to connected staff members.
func (p *Publisher) ToStaff(ctx context.Context, eventType string, payload any) {
	p.publish(ctx, eventType, payload, func(msg string) error {
		if p.distributed() {
			return p.notifier.PublishStaff(ctx, msg)
		}
		p.hub.BroadcastStaff(msg)
		return nil
	})
}

// Broadcast sends an event to every connected client.
func (p *Publisher) Broadcast(ctx context.Context, eventType string, payload any) {
	p.publish(ctx, eventType, payload, func(msg string) error {
		if p.distributed() {
			return p.notifier.PublishBroadcast(ctx, msg)
		}
		p.hub.BroadcastAll(msg)
		return nil
	})
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload any, deliver func(string) error) {
	if p == nil || (p.hub == nil && !p.distributed()) {
		return
	}
	msg, err := Encode(eventType, payload)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	if err := deliver(msg); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event", slog.String("type", eventType), slog.String("error", err.Error()))
	}
}
