package biz

import (
	"context"
	"strings"

	"CampusLink/internal/data"
	pkgerrors "CampusLink/pkg/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// AdminRole is the role string granting access to other users' notifications.
const AdminRole = "admin"

// CreateNotificationInput carries an inbound notification.
type CreateNotificationInput struct {
	UserID  string
	Kind    string
	Message string
}

// NotificationUsecase implements notification inbox business logic.
type NotificationUsecase struct {
	repo   NotificationRepo
	logger *log.Helper
}

// NewNotificationUsecase creates a new notification usecase.
func NewNotificationUsecase(repo NotificationRepo, logger log.Logger) *NotificationUsecase {
	return &NotificationUsecase{
		repo:   repo,
		logger: log.NewHelper(logger),
	}
}

// Create stores a notification for a user.
func (uc *NotificationUsecase) Create(ctx context.Context, in *CreateNotificationInput) (*data.Notification, error) {
	if in == nil || strings.TrimSpace(in.UserID) == "" {
		return nil, kerrors.BadRequest("MISSING_USER_ID", "user_id is required")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, kerrors.BadRequest("MISSING_MESSAGE", "message is required")
	}

	kind := in.Kind
	if kind == "" {
		kind = "general"
	}

	n := &data.Notification{
		UserID:  in.UserID,
		Kind:    kind,
		Message: in.Message,
	}
	if err := uc.repo.Create(ctx, n); err != nil {
		return nil, kerrors.InternalServer("NOTIFICATION_CREATE_FAILED", "failed to create notification")
	}
	return n, nil
}

// List returns the caller's notifications; admins get the site-wide feed.
func (uc *NotificationUsecase) List(ctx context.Context, userID, role string) ([]*data.Notification, error) {
	notifications, err := uc.repo.ListByUser(ctx, userID, role == AdminRole)
	if err != nil {
		return nil, kerrors.InternalServer("NOTIFICATION_LIST_FAILED", "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead marks one notification as read. Non-owners get a 404 rather than
// a 403 so notification IDs are not probeable.
func (uc *NotificationUsecase) MarkRead(ctx context.Context, id, userID, role string) error {
	if err := uc.repo.MarkRead(ctx, id, userID, role == AdminRole); err != nil {
		if pkgerrors.IsNotFoundError(err) {
			return kerrors.NotFound("NOTIFICATION_NOT_FOUND", "notification not found")
		}
		return kerrors.InternalServer("NOTIFICATION_UPDATE_FAILED", "failed to mark notification read")
	}
	return nil
}

// UnreadCount returns the caller's unread notification count.
func (uc *NotificationUsecase) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := uc.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, kerrors.InternalServer("NOTIFICATION_COUNT_FAILED", "failed to count unread notifications")
	}
	return count, nil
}
