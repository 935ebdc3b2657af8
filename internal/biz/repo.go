package biz

import (
	"context"
	"time"

	"CampusLink/internal/data"
)

// TicketRepo defines the ticket repository interface.
// Following Kratos v2 DDD architecture, interfaces are defined in biz layer.
// Implementation is in data layer (data.TicketRepo).
type TicketRepo interface {
	Create(ctx context.Context, ticket *data.Ticket) error
	Get(ctx context.Context, id int64) (*data.Ticket, error)
	List(ctx context.Context, filter *data.TicketFilter) ([]*data.Ticket, int64, error)
	Update(ctx context.Context, ticket *data.Ticket) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*data.TicketStats, error)
	ListOpenBefore(ctx context.Context, priority string, cutoff time.Time) ([]*data.Ticket, error)
}

// NotificationRepo defines the notification repository interface.
// Implementation is in data layer (data.NotificationRepo).
type NotificationRepo interface {
	Create(ctx context.Context, n *data.Notification) error
	ListByUser(ctx context.Context, userID string, isAdmin bool) ([]*data.Notification, error)
	MarkRead(ctx context.Context, id, userID string, isAdmin bool) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
}
