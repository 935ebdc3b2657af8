package model

import "time"

// TicketCreatedEvent is published after a ticket is persisted with its triage
// result, so downstream consumers can react without re-reading the ticket.
type TicketCreatedEvent struct {
	TicketID  int64     `json:"ticket_id"`
	RequestID string    `json:"request_id"`
	Priority  string    `json:"priority"`
	Score     float64   `json:"score"`
	System    string    `json:"system"`
	Requester string    `json:"requester"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketEscalatedEvent is published by the SLA sweep when an open ticket has
// been sitting past its response deadline.
type TicketEscalatedEvent struct {
	TicketID    int64         `json:"ticket_id"`
	RequestID   string        `json:"request_id"`
	Priority    string        `json:"priority"`
	SLA         string        `json:"sla"`
	OverdueBy   time.Duration `json:"overdue_by"`
	EscalatedAt time.Time     `json:"escalated_at"`
}
