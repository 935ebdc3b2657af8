// Package biz contains business logic layer implementations.
// This layer holds the core business rules and domain models.
package biz

import (
	"CampusLink/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewResilientClient,
	NewTicketUsecase,
	NewNotificationUsecase,
	NewDispatcher,
	NewEscalationTask,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(TicketRepo), new(*data.TicketRepo)),
	wire.Bind(new(NotificationRepo), new(*data.NotificationRepo)),
	wire.Bind(new(Notifier), new(*Dispatcher)),
)
