package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgerrors "CampusLink/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// List limits for notifications: admins see a site-wide feed, users see
// their own.
const (
	notificationAdminLimit = 100
	notificationUserLimit  = 50
)

// Notification is the GORM model for notifications table.
type Notification struct {
	ID        string    `gorm:"primaryKey;column:id;size:36" json:"id"`
	UserID    string    `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	Kind      string    `gorm:"column:kind;size:50;not null" json:"type"`
	Message   string    `gorm:"column:message;type:text;not null" json:"message"`
	Read      bool      `gorm:"column:is_read;default:false;not null" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// NotificationRepo implements biz.NotificationRepo interface.
type NotificationRepo struct {
	data   *Data
	db     *gorm.DB
	rdb    *redis.Client
	logger *log.Helper
}

// NewNotificationRepo creates a new notification repository.
func NewNotificationRepo(data *Data, db *gorm.DB, logger log.Logger) *NotificationRepo {
	return &NotificationRepo{
		data:   data,
		db:     db,
		rdb:    data.GetRedisClient(),
		logger: log.NewHelper(logger),
	}
}

// Create persists a notification and bumps the recipient's unread counter.
// A missing ID is filled with a fresh UUID.
func (r *NotificationRepo) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		r.logger.Errorw("failed to create notification",
			"user_id", n.UserID,
			"kind", n.Kind,
			"error", dbErr.Error())
		return dbErr
	}

	r.bumpUnread(ctx, n.UserID, 1)

	r.logger.Infow("notification created", "id", n.ID, "user_id", n.UserID, "kind", n.Kind)
	return nil
}

// ListByUser returns notifications newest first. Admins see all users'
// notifications (limit 100); everyone else sees only their own (limit 50).
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, isAdmin bool) ([]*Notification, error) {
	query := r.db.WithContext(ctx).Model(&Notification{}).Order("created_at DESC")
	if isAdmin {
		query = query.Limit(notificationAdminLimit)
	} else {
		query = query.Where("user_id = ?", userID).Limit(notificationUserLimit)
	}

	var notifications []*Notification
	if err := query.Find(&notifications).Error; err != nil {
		r.logger.Errorf("failed to list notifications: %v", err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks a notification as read. Only the owner or an admin may do
// so; a mismatched owner gets gorm.ErrRecordNotFound-classified not-found to
// avoid leaking other users' notification IDs.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string, isAdmin bool) error {
	var n Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.ClassifyDBError(err)
		}
		r.logger.Errorf("failed to get notification: %v", err)
		return fmt.Errorf("failed to get notification: %w", err)
	}

	if !isAdmin && n.UserID != userID {
		return pkgerrors.ClassifyDBError(gorm.ErrRecordNotFound)
	}

	if n.Read {
		return nil // already read, nothing to do
	}

	if err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).Update("is_read", true).Error; err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		r.logger.Errorw("failed to mark notification read", "id", id, "error", dbErr.Error())
		return dbErr
	}

	r.bumpUnread(ctx, n.UserID, -1)

	r.logger.Debugw("notification marked read", "id", id, "user_id", n.UserID)
	return nil
}

// UnreadCount returns the number of unread notifications for a user.
// The count is served from a Redis counter when available and rebuilt from
// the database on a miss.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int64, error) {
	key := BuildCacheKey(CacheKeyUnread, userID)

	if r.rdb != nil {
		val, err := r.rdb.Get(ctx, key).Result()
		if err == nil {
			count, perr := strconv.ParseInt(val, 10, 64)
			if perr == nil && count >= 0 {
				return count, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			r.logger.Warnw("failed to read unread counter", "user_id", userID, "error", err)
		}
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		r.logger.Errorf("failed to count unread notifications: %v", err)
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if r.rdb != nil {
		if err := r.rdb.Set(ctx, key, count, TTLUnread).Err(); err != nil {
			r.logger.Warnw("failed to seed unread counter", "user_id", userID, "error", err)
		}
	}

	return count, nil
}

// bumpUnread adjusts the cached unread counter. Counter drift is tolerated:
// the counter expires and gets rebuilt from the database.
func (r *NotificationRepo) bumpUnread(ctx context.Context, userID string, delta int64) {
	if r.rdb == nil {
		return
	}

	key := BuildCacheKey(CacheKeyUnread, userID)

	// Only adjust an existing counter; a missing key means the next
	// UnreadCount rebuilds from the database anyway.
	exists, err := r.rdb.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return
	}

	if err := r.rdb.IncrBy(ctx, key, delta).Err(); err != nil {
		r.logger.Warnw("failed to adjust unread counter", "user_id", userID, "error", err)
	}
}
