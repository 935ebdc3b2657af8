package data

import (
	"context"
	"encoding/json"

	"CampusLink/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// Redis pub/sub channels for ticket lifecycle events.
const (
	ChannelTicketCreated   = "campuslink:events:ticket_created"
	ChannelTicketEscalated = "campuslink:events:ticket_escalated"
)

// EventPublisher publishes ticket lifecycle events to Redis pub/sub.
// Publishing is best-effort: consumers that care about completeness must
// reconcile from the tickets table, so a lost event is tolerated.
type EventPublisher struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewEventPublisher creates a Redis-backed event publisher.
func NewEventPublisher(data *Data, logger log.Logger) *EventPublisher {
	return &EventPublisher{
		rdb:    data.GetRedisClient(),
		logger: log.NewHelper(logger),
	}
}

// TicketCreated publishes a ticket creation event.
func (p *EventPublisher) TicketCreated(ctx context.Context, event *model.TicketCreatedEvent) {
	p.publish(ctx, ChannelTicketCreated, event)
}

// TicketEscalated publishes an SLA escalation event.
func (p *EventPublisher) TicketEscalated(ctx context.Context, event *model.TicketEscalatedEvent) {
	p.publish(ctx, ChannelTicketEscalated, event)
}

func (p *EventPublisher) publish(ctx context.Context, channel string, event interface{}) {
	if p.rdb == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warnw("msg", "failed to encode event", "channel", channel, "error", err)
		return
	}

	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.logger.Warnw("msg", "failed to publish event", "channel", channel, "error", err)
	}
}
