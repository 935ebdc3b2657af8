package service

import (
	"context"
	"net/http"

	"CampusLink/internal/biz"
	"CampusLink/internal/data"
	"CampusLink/internal/server/middleware"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// NotificationService exposes the notification inbox over HTTP. Callers are
// identified by the gateway headers; admins see every notification.
type NotificationService struct {
	uc     *biz.NotificationUsecase
	logger *log.Helper
}

// NewNotificationService creates a notification service instance.
func NewNotificationService(uc *biz.NotificationUsecase, logger log.Logger) *NotificationService {
	return &NotificationService{
		uc:     uc,
		logger: log.NewHelper(logger),
	}
}

type createNotificationRequest struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Create stores a notification for a user.
//
// POST /v1/notifications
func (s *NotificationService) Create(ctx khttp.Context) error {
	var req createNotificationRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_BODY", err.Error())
	}

	khttp.SetOperation(ctx, "/v1/notifications")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return s.uc.Create(c, &biz.CreateNotificationInput{
			UserID:  req.UserID,
			Kind:    req.Type,
			Message: req.Message,
		})
	})
	out, err := h(ctx, &req)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusCreated, out)
}

type listNotificationsReply struct {
	Notifications []*data.Notification `json:"notifications"`
	Count         int                  `json:"count"`
}

// List returns the caller's notifications, newest first.
//
// GET /v1/notifications
func (s *NotificationService) List(ctx khttp.Context) error {
	khttp.SetOperation(ctx, "/v1/notifications")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		userID, role := middleware.UserFromContext(c)
		if userID == "" {
			return nil, kerrors.Unauthorized("MISSING_IDENTITY", "caller identity is required")
		}
		items, err := s.uc.List(c, userID, role)
		if err != nil {
			return nil, err
		}
		return &listNotificationsReply{Notifications: items, Count: len(items)}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

// MarkRead marks one of the caller's notifications as read.
//
// PUT /v1/notifications/{id}/read
func (s *NotificationService) MarkRead(ctx khttp.Context) error {
	id := ctx.Vars().Get("id")
	if id == "" {
		return kerrors.BadRequest("INVALID_ID", "notification id is required")
	}

	khttp.SetOperation(ctx, "/v1/notifications/{id}/read")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		userID, role := middleware.UserFromContext(c)
		if userID == "" {
			return nil, kerrors.Unauthorized("MISSING_IDENTITY", "caller identity is required")
		}
		if err := s.uc.MarkRead(c, id, userID, role); err != nil {
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

// Unread returns the caller's unread notification count.
//
// GET /v1/notifications/unread
func (s *NotificationService) Unread(ctx khttp.Context) error {
	khttp.SetOperation(ctx, "/v1/notifications/unread")
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		userID, _ := middleware.UserFromContext(c)
		if userID == "" {
			return nil, kerrors.Unauthorized("MISSING_IDENTITY", "caller identity is required")
		}
		count, err := s.uc.UnreadCount(c, userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"unread_count": count}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}
