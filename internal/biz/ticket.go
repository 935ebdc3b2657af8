package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CampusLink/internal/data"
	"CampusLink/internal/model"
	logx "CampusLink/pkg/log"
	"CampusLink/pkg/priority"

	pkgerrors "CampusLink/pkg/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CreateTicketInput carries a new maintenance request from the transport
// layer. RequestID is optional; a missing one is generated.
type CreateTicketInput struct {
	RequestID   string
	Description string
	System      string
	Requester   string
}

// UpdateTicketInput carries a partial ticket update. Empty fields are left
// unchanged.
type UpdateTicketInput struct {
	Status      data.TicketStatus
	Description string
	System      string
}

// TicketUsecase implements maintenance ticket business logic: triage,
// persistence and the best-effort admin alert for severe tickets.
type TicketUsecase struct {
	repo     TicketRepo
	scorer   *priority.Scorer
	triage   *data.TriageCache
	notifier Notifier
	events   *data.EventPublisher
	logger   *logx.LogHelper
}

// NewTicketUsecase creates a new ticket usecase.
func NewTicketUsecase(repo TicketRepo, triage *data.TriageCache, notifier Notifier, events *data.EventPublisher, logger log.Logger) *TicketUsecase {
	return &TicketUsecase{
		repo:     repo,
		scorer:   priority.NewScorer(),
		triage:   triage,
		notifier: notifier,
		events:   events,
		logger:   logx.NewLogHelper(logger),
	}
}

// Analyze triages a single request, memoizing results per description+system
// pair. Scoring is pure, so a cache hit only needs its request identity
// rewritten.
func (uc *TicketUsecase) Analyze(req priority.Request) (*priority.Result, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, kerrors.BadRequest("MISSING_DESCRIPTION", "description is required")
	}

	key := uc.triage.Key(req.Description, req.System)
	if cached, ok := uc.triage.Get(key); ok {
		out := *cached
		out.RequestID = req.RequestID
		timestamp := req.Timestamp
		if timestamp == "" {
			timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		out.Details = priority.Details{
			Description: req.Description,
			System:      req.System,
			Requester:   req.Requester,
			Timestamp:   timestamp,
		}
		uc.logger.Triage("triage served from cache",
			"priority", string(out.Priority),
			"score", out.Score)
		return &out, nil
	}

	result, err := uc.scorer.Analyze(req)
	if err != nil {
		return nil, kerrors.BadRequest("MISSING_DESCRIPTION", err.Error())
	}
	uc.triage.Add(key, result)

	uc.logger.Triage("request triaged",
		"priority", string(result.Priority),
		"score", result.Score,
		"confidence", result.Analysis.Confidence)
	return result, nil
}

// AnalyzeBatch triages a batch of requests in one pass. Any request without
// a description fails the whole batch.
func (uc *TicketUsecase) AnalyzeBatch(reqs []priority.Request) (*priority.BatchResult, error) {
	batch, err := uc.scorer.AnalyzeBatch(reqs)
	if err != nil {
		return nil, kerrors.BadRequest("INVALID_BATCH", err.Error())
	}
	uc.logger.Triage("batch triaged",
		"total", batch.TotalRequests,
		"critical", batch.Summary.Critical)
	return batch, nil
}

// CreateTicket triages and persists a maintenance request. CRITICAL and
// HIGH tickets trigger a best-effort admin notification that never fails
// the create.
func (uc *TicketUsecase) CreateTicket(ctx context.Context, in *CreateTicketInput, token string) (*data.Ticket, *priority.Result, error) {
	if in == nil || strings.TrimSpace(in.Description) == "" {
		return nil, nil, kerrors.BadRequest("MISSING_DESCRIPTION", "description is required")
	}

	requestID := in.RequestID
	if requestID == "" {
		requestID = "REQ-" + strings.ToUpper(uuid.NewString()[:8])
	}

	result, err := uc.Analyze(priority.Request{
		RequestID:   requestID,
		Description: in.Description,
		System:      in.System,
		Requester:   in.Requester,
	})
	if err != nil {
		return nil, nil, err
	}

	analysisJSON, err := json.Marshal(result.Analysis)
	if err != nil {
		return nil, nil, kerrors.InternalServer("ANALYSIS_ENCODING", "failed to encode triage analysis")
	}
	analysis := string(analysisJSON)

	ticket := &data.Ticket{
		RequestID:   requestID,
		Description: in.Description,
		System:      in.System,
		Requester:   in.Requester,
		Status:      data.TicketStatusOpen,
		Priority:    string(result.Priority),
		Score:       result.Score,
		SLA:         result.SLA,
		Analysis:    &analysis,
	}

	if err := uc.repo.Create(ctx, ticket); err != nil {
		if pkgerrors.IsDuplicateKeyError(err) {
			return nil, nil, kerrors.Conflict("TICKET_EXISTS", fmt.Sprintf("ticket %s already exists", requestID))
		}
		return nil, nil, kerrors.InternalServer("TICKET_CREATE_FAILED", "failed to create ticket")
	}

	uc.logger.Ticket("ticket created",
		"id", ticket.ID,
		"request_id", ticket.RequestID,
		"priority", ticket.Priority,
		"score", ticket.Score)

	uc.events.TicketCreated(ctx, &model.TicketCreatedEvent{
		TicketID:  ticket.ID,
		RequestID: ticket.RequestID,
		Priority:  ticket.Priority,
		Score:     ticket.Score,
		System:    ticket.System,
		Requester: ticket.Requester,
		CreatedAt: ticket.CreatedAt,
	})

	if result.Priority == priority.BandCritical || result.Priority == priority.BandHigh {
		message := fmt.Sprintf("%s maintenance ticket %s: %s (response due within %s)",
			ticket.Priority, ticket.RequestID, truncateMessage(ticket.Description, 120), ticket.SLA)
		uc.notifier.NotifyAdminsAsync("maintenance_alert", message, in.Requester, ticket.RequestID, token)
	}

	return ticket, result, nil
}

// GetTicket fetches a ticket by ID.
func (uc *TicketUsecase) GetTicket(ctx context.Context, id int64) (*data.Ticket, error) {
	ticket, err := uc.repo.Get(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFoundError(err) {
			return nil, kerrors.NotFound("TICKET_NOT_FOUND", fmt.Sprintf("ticket %d not found", id))
		}
		return nil, kerrors.InternalServer("TICKET_GET_FAILED", "failed to get ticket")
	}
	return ticket, nil
}

// ListTickets returns a page of tickets plus the total count.
func (uc *TicketUsecase) ListTickets(ctx context.Context, filter *data.TicketFilter) ([]*data.Ticket, int64, error) {
	if filter != nil && filter.Status != "" && !data.ValidTicketStatus(filter.Status) {
		return nil, 0, kerrors.BadRequest("INVALID_STATUS", fmt.Sprintf("unknown ticket status %q", filter.Status))
	}
	tickets, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, kerrors.InternalServer("TICKET_LIST_FAILED", "failed to list tickets")
	}
	return tickets, total, nil
}

// UpdateTicket applies a partial update. Moving a ticket to resolved or
// closed records the resolution time.
func (uc *TicketUsecase) UpdateTicket(ctx context.Context, id int64, in *UpdateTicketInput) (*data.Ticket, error) {
	if in == nil {
		return nil, kerrors.BadRequest("EMPTY_UPDATE", "no fields to update")
	}
	if in.Status != "" && !data.ValidTicketStatus(in.Status) {
		return nil, kerrors.BadRequest("INVALID_STATUS", fmt.Sprintf("unknown ticket status %q", in.Status))
	}

	ticket, err := uc.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != "" && in.Status != ticket.Status {
		ticket.Status = in.Status
		if in.Status == data.TicketStatusResolved || in.Status == data.TicketStatusClosed {
			now := time.Now().UTC()
			ticket.ResolvedAt = &now
		} else {
			ticket.ResolvedAt = nil
		}
	}
	if in.Description != "" {
		ticket.Description = in.Description
	}
	if in.System != "" {
		ticket.System = in.System
	}

	if err := uc.repo.Update(ctx, ticket); err != nil {
		return nil, kerrors.InternalServer("TICKET_UPDATE_FAILED", "failed to update ticket")
	}

	uc.logger.Ticket("ticket updated", "id", ticket.ID, "status", string(ticket.Status))
	return ticket, nil
}

// DeleteTicket removes a ticket.
func (uc *TicketUsecase) DeleteTicket(ctx context.Context, id int64) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		if pkgerrors.IsNotFoundError(err) {
			return kerrors.NotFound("TICKET_NOT_FOUND", fmt.Sprintf("ticket %d not found", id))
		}
		return kerrors.InternalServer("TICKET_DELETE_FAILED", "failed to delete ticket")
	}
	return nil
}

// Stats returns ticket counts by lifecycle state and triage band.
func (uc *TicketUsecase) Stats(ctx context.Context) (*data.TicketStats, error) {
	stats, err := uc.repo.Stats(ctx)
	if err != nil {
		return nil, kerrors.InternalServer("TICKET_STATS_FAILED", "failed to aggregate ticket stats")
	}
	return stats, nil
}

func truncateMessage(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
