package service

import (
	"context"
	"net/http"
	"strconv"

	"CampusLink/internal/biz"
	"CampusLink/internal/data"
	"CampusLink/internal/server/middleware"
	"CampusLink/pkg/priority"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// MaintenanceService exposes triage analysis and ticket management over HTTP.
type MaintenanceService struct {
	uc     *biz.TicketUsecase
	logger *log.Helper
}

// NewMaintenanceService creates a maintenance service instance.
func NewMaintenanceService(uc *biz.TicketUsecase, logger log.Logger) *MaintenanceService {
	return &MaintenanceService{
		uc:     uc,
		logger: log.NewHelper(logger),
	}
}

// Health reports service liveness.
func (s *MaintenanceService) Health(ctx khttp.Context) error {
	return ctx.Result(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "campuslink-maintenance",
	})
}

// Analyze triages a single maintenance request without persisting it.
//
// POST /v1/analyze
func (s *MaintenanceService) Analyze(ctx khttp.Context) error {
	var req priority.Request
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}

	khttp.SetOperation(ctx, "/v1/analyze")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.uc.Analyze(req)
	})
	out, err := h(ctx, &req)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

type analyzeBatchRequest struct {
	Requests []priority.Request `json:"requests"`
}

// AnalyzeBatch triages a list of maintenance requests in one call.
//
// POST /v1/analyze/batch
func (s *MaintenanceService) AnalyzeBatch(ctx khttp.Context) error {
	var req analyzeBatchRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}

	khttp.SetOperation(ctx, "/v1/analyze/batch")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.uc.AnalyzeBatch(req.Requests)
	})
	out, err := h(ctx, &req)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

type createTicketRequest struct {
	RequestID   string `json:"request_id"`
	Description string `json:"description"`
	System      string `json:"system"`
	Requester   string `json:"requester"`
}

type createTicketReply struct {
	Ticket *data.Ticket     `json:"ticket"`
	Triage *priority.Result `json:"triage"`
}

// CreateTicket triages a request, persists it as a ticket, and alerts admins
// for CRITICAL and HIGH priorities.
//
// POST /v1/tickets
func (s *MaintenanceService) CreateTicket(ctx khttp.Context) error {
	var req createTicketRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}

	khttp.SetOperation(ctx, "/v1/tickets")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		in := &biz.CreateTicketInput{
			RequestID:   req.RequestID,
			Description: req.Description,
			System:      req.System,
			Requester:   req.Requester,
		}
		// 请求方缺省时使用网关注入的身份
		if in.Requester == "" {
			userID, _ := middleware.UserFromContext(c)
			in.Requester = userID
		}
		ticket, result, err := s.uc.CreateTicket(c, in, middleware.TokenFromContext(c))
		if err != nil {
			return nil, err
		}
		return &createTicketReply{Ticket: ticket, Triage: result}, nil
	})
	out, err := h(ctx, &req)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusCreated, out)
}

// GetTicket returns a single ticket by numeric ID.
//
// GET /v1/tickets/{id}
func (s *MaintenanceService) GetTicket(ctx khttp.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	khttp.SetOperation(ctx, "/v1/tickets/{id}")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.uc.GetTicket(c, id)
	})
	out, err := h(ctx, id)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

type listTicketsReply struct {
	Tickets  []*data.Ticket `json:"tickets"`
	Total    int64          `json:"total"`
	Page     int32          `json:"page"`
	PageSize int32          `json:"page_size"`
}

// ListTickets returns a filtered, paginated ticket listing.
//
// GET /v1/tickets?page=&page_size=&status=&priority=&system=
func (s *MaintenanceService) ListTickets(ctx khttp.Context) error {
	q := ctx.Query()
	filter := &data.TicketFilter{
		Status:   data.TicketStatus(q.Get("status")),
		Priority: q.Get("priority"),
		System:   q.Get("system"),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	filter.Page = int32(page)
	filter.PageSize = int32(pageSize)

	khttp.SetOperation(ctx, "/v1/tickets")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		tickets, total, err := s.uc.ListTickets(c, filter)
		if err != nil {
			return nil, err
		}
		return &listTicketsReply{
			Tickets:  tickets,
			Total:    total,
			Page:     filter.Page,
			PageSize: filter.PageSize,
		}, nil
	})
	out, err := h(ctx, filter)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

type updateTicketRequest struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	System      string `json:"system"`
}

// UpdateTicket applies a partial update to a ticket.
//
// PATCH /v1/tickets/{id}
func (s *MaintenanceService) UpdateTicket(ctx khttp.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var req updateTicketRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}

	khttp.SetOperation(ctx, "/v1/tickets/{id}")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.uc.UpdateTicket(c, id, &biz.UpdateTicketInput{
			Status:      data.TicketStatus(req.Status),
			Description: req.Description,
			System:      req.System,
		})
	})
	out, err := h(ctx, &req)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

// DeleteTicket removes a ticket.
//
// DELETE /v1/tickets/{id}
func (s *MaintenanceService) DeleteTicket(ctx khttp.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	khttp.SetOperation(ctx, "/v1/tickets/{id}")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		if err := s.uc.DeleteTicket(c, id); err != nil {
			return nil, err
		}
		return map[string]bool{"success": true}, nil
	})
	out, err := h(ctx, id)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

// Stats returns aggregate ticket counts by status and priority.
//
// GET /v1/tickets/stats
func (s *MaintenanceService) Stats(ctx khttp.Context) error {
	khttp.SetOperation(ctx, "/v1/tickets/stats")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.uc.Stats(c)
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

// pathID parses the {id} path variable as a positive integer.
func pathID(ctx khttp.Context) (int64, error) {
	raw := ctx.Vars().Get("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, kerrors.BadRequest("INVALID_ID", "ticket id must be a positive integer")
	}
	return id, nil
}
