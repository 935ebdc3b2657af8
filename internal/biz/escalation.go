package biz

import (
	"context"
	"fmt"
	"time"

	"CampusLink/internal/conf"
	"CampusLink/internal/data"
	"CampusLink/internal/model"
	logx "CampusLink/pkg/log"
	"CampusLink/pkg/priority"

	"github.com/go-kratos/kratos/v2/log"
)

// slaWindows maps the escalatable triage bands to their response deadlines.
// Only CRITICAL and HIGH tickets are swept; lower bands have deadlines
// measured in days and are handled by normal queue review.
var slaWindows = []struct {
	Band   priority.Band
	Window time.Duration
}{
	{priority.BandCritical, 15 * time.Minute},
	{priority.BandHigh, 1 * time.Hour},
}

// EscalationTask sweeps open CRITICAL and HIGH tickets that have sat past
// their SLA deadline and alerts admins. Dispatch is best-effort; a failed
// alert is retried implicitly on the next sweep because the ticket is still
// open and overdue.
type EscalationTask struct {
	repo         TicketRepo
	notifier     Notifier
	events       *data.EventPublisher
	serviceToken string
	logger       *logx.LogHelper

	// now is injectable for tests.
	now func() time.Time
}

// NewEscalationTask creates the SLA escalation sweep.
func NewEscalationTask(bc *conf.Bootstrap, repo TicketRepo, notifier Notifier, events *data.EventPublisher, logger log.Logger) *EscalationTask {
	token := ""
	if bc.Services != nil {
		token = bc.Services.ServiceToken
	}
	return &EscalationTask{
		repo:         repo,
		notifier:     notifier,
		events:       events,
		serviceToken: token,
		logger:       logx.NewLogHelper(logger),
		now:          time.Now,
	}
}

// Sweep scans each escalatable band for overdue open tickets and dispatches
// one admin alert per ticket. A repository error on one band does not stop
// the others.
func (t *EscalationTask) Sweep(ctx context.Context) error {
	now := t.now()

	var firstErr error
	escalated := 0
	for _, sla := range slaWindows {
		cutoff := now.Add(-sla.Window)
		tickets, err := t.repo.ListOpenBefore(ctx, string(sla.Band), cutoff)
		if err != nil {
			t.logger.Errorw("msg", "escalation sweep query failed",
				"priority", string(sla.Band),
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, ticket := range tickets {
			overdue := now.Sub(ticket.CreatedAt) - sla.Window
			t.escalate(ctx, ticket, overdue)
			escalated++
		}
	}

	if escalated > 0 {
		t.logger.Escalation("escalation sweep completed", "escalated", escalated)
	} else {
		t.logger.Scheduler("escalation sweep completed, nothing overdue")
	}
	return firstErr
}

func (t *EscalationTask) escalate(ctx context.Context, ticket *data.Ticket, overdue time.Duration) {
	t.logger.Escalation("ticket past SLA deadline",
		"id", ticket.ID,
		"request_id", ticket.RequestID,
		"priority", ticket.Priority,
		"sla", ticket.SLA,
		"overdue", overdue.Round(time.Second).String())

	t.events.TicketEscalated(ctx, &model.TicketEscalatedEvent{
		TicketID:    ticket.ID,
		RequestID:   ticket.RequestID,
		Priority:    ticket.Priority,
		SLA:         ticket.SLA,
		OverdueBy:   overdue,
		EscalatedAt: t.now(),
	})

	message := fmt.Sprintf("Ticket %s (%s) has exceeded its %s response window by %s",
		ticket.RequestID, ticket.Priority, ticket.SLA, overdue.Round(time.Minute))
	t.notifier.NotifyAdmins(ctx, "sla_breach", message, "escalation-sweep", ticket.RequestID, t.serviceToken)
}
