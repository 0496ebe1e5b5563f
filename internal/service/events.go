package service

import (
	"context"

	"pharmacy/internal/cache"
	"pharmacy/pkg/logger"
)

// EventPublisher delivers domain events to one transport.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Event is a domain event waiting for its transaction to commit.
type Event struct {
	Type string
	Data interface{}
}

// Notifier runs the side effects of a committed write: it invalidates cached
// dashboard snapshots and fans events out to every publisher. Failures are
// logged and never reach the caller, the write has already been committed.
// A nil *Notifier does nothing.
type Notifier struct {
	publishers []EventPublisher
	cache      *cache.Cache
	log        *logger.Logger
}

func NewNotifier(log *logger.Logger, c *cache.Cache, publishers ...EventPublisher) *Notifier {
	active := make([]EventPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &Notifier{publishers: active, cache: c, log: log.WithComponent("notifier")}
}

// Committed is called after a write transaction commits.
func (n *Notifier) Committed(ctx context.Context, events ...Event) {
	if n == nil {
		return
	}
	// Detach from the request deadline; the write is already durable.
	ctx = context.WithoutCancel(ctx)

	if err := n.cache.Bump(ctx); err != nil {
		n.log.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
	for _, e := range events {
		for _, p := range n.publishers {
			if err := p.Publish(ctx, e.Type, e.Data); err != nil {
				n.log.Error().Err(err).Str("event_type", e.Type).Msg("failed to publish event")
			}
		}
	}
}
