package data

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgerrors "CampusLink/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// TicketStatus represents the database ENUM type for ticket status.
type TicketStatus string

// Ticket status constants representing the lifecycle of a maintenance ticket.
const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Ticket is the GORM model for maintenance_tickets table.
type Ticket struct {
	ID          int64        `gorm:"primaryKey;column:id" json:"id"`
	RequestID   string       `gorm:"column:request_id;size:64;uniqueIndex;not null" json:"request_id"`
	Description string       `gorm:"column:description;type:text;not null" json:"description"`
	System      string       `gorm:"column:system;size:100" json:"system"`
	Requester   string       `gorm:"column:requester;size:100" json:"requester"`
	Status      TicketStatus `gorm:"column:status;type:enum('open','in_progress','resolved','closed');default:'open';not null;index" json:"status"`
	Priority    string       `gorm:"column:priority;size:16;not null;index" json:"priority"` // triage band
	Score       float64      `gorm:"column:score;not null" json:"score"`
	SLA         string       `gorm:"column:sla;size:32" json:"sla"`
	Analysis    *string      `gorm:"column:analysis;type:json" json:"analysis,omitempty"` // serialized triage breakdown (pointer for NULL support)
	ResolvedAt  *time.Time   `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Ticket) TableName() string {
	return "maintenance_tickets"
}

// Scan implements sql.Scanner interface for TicketStatus.
func (s *TicketStatus) Scan(value interface{}) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*s = TicketStatus(v)
	case string:
		*s = TicketStatus(v)
	default:
		return fmt.Errorf("cannot scan type %T into TicketStatus", value)
	}
	return nil
}

// Value implements driver.Valuer interface for TicketStatus.
func (s TicketStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// ValidTicketStatus reports whether s is one of the known lifecycle states.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketFilter defines query filter for listing tickets.
type TicketFilter struct {
	Page     int32        // Page number (starts from 1)
	PageSize int32        // Page size (1-100)
	Status   TicketStatus // Filter by status (optional)
	Priority string       // Filter by triage band (optional)
	System   string       // Filter by affected system (optional)
}

// TicketStats aggregates ticket counts by lifecycle state and triage band.
type TicketStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
}

// TicketRepo implements biz.TicketRepo interface.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
type TicketRepo struct {
	data   *Data
	db     *gorm.DB
	cache  CacheClient
	logger *log.Helper
}

// NewTicketRepo creates a new ticket repository.
func NewTicketRepo(data *Data, db *gorm.DB, logger log.Logger) *TicketRepo {
	return &TicketRepo{
		data:   data,
		db:     db,
		cache:  data.GetCache(),
		logger: log.NewHelper(logger),
	}
}

// Create persists a new ticket.
// Returns classified database errors for better error handling in upper layers.
func (r *TicketRepo) Create(ctx context.Context, ticket *Ticket) error {
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		// Classify the database error for better error handling
		dbErr := pkgerrors.ClassifyDBError(err)

		switch dbErr.Type {
		case pkgerrors.ErrorTypeDuplicateKey:
			r.logger.Warnw("duplicate ticket request id",
				"request_id", ticket.RequestID,
				"error", dbErr.Error())
		case pkgerrors.ErrorTypeInvalidJSON:
			r.logger.Errorw("invalid JSON in ticket analysis",
				"request_id", ticket.RequestID,
				"error", dbErr.Error())
		case pkgerrors.ErrorTypeConnectionError:
			r.logger.Errorw("database connection error",
				"error", dbErr.Error())
		default:
			r.logger.Errorw("failed to create ticket",
				"request_id", ticket.RequestID,
				"error", dbErr.Error())
		}

		return dbErr
	}

	// A fresh stats snapshot will be rebuilt on the next read
	_ = r.cache.Delete(ctx, CacheKeyTicketStats)

	r.logger.Infow("ticket created",
		"id", ticket.ID,
		"request_id", ticket.RequestID,
		"priority", ticket.Priority)
	return nil
}

// Get retrieves a ticket by ID with caching.
// Cache key: "ticket:{id}", TTL: 5 minutes
func (r *TicketRepo) Get(ctx context.Context, id int64) (*Ticket, error) {
	cacheKey := BuildCacheKey(CacheKeyTicket, strconv.FormatInt(id, 10))

	// Try to get from cache first
	var cached Ticket
	if err := r.cache.Get(ctx, cacheKey, &cached); err == nil {
		r.logger.Debugw("ticket cache hit", "id", id)
		return &cached, nil
	}

	// Cache miss, query from database
	var ticket Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ClassifyDBError(err)
		}
		r.logger.Errorf("failed to get ticket: %v", err)
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if err := r.cache.Set(ctx, cacheKey, &ticket, TTLTicket); err != nil {
		r.logger.Warnw("failed to cache ticket", "id", id, "error", err)
		// Cache failure doesn't affect the operation
	}

	r.logger.Debugw("ticket fetched from database", "id", id)
	return &ticket, nil
}

// List retrieves tickets with pagination and filters, newest first.
func (r *TicketRepo) List(ctx context.Context, filter *TicketFilter) ([]*Ticket, int64, error) {
	if filter == nil {
		filter = &TicketFilter{Page: 1, PageSize: 20}
	}

	// Set defaults
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	query := r.db.WithContext(ctx).Model(&Ticket{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.System != "" {
		query = query.Where("system = ?", filter.System)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorf("failed to count tickets: %v", err)
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	var tickets []*Ticket
	offset := int(filter.Page-1) * int(filter.PageSize)
	if err := query.Order("created_at DESC").Offset(offset).Limit(int(filter.PageSize)).Find(&tickets).Error; err != nil {
		r.logger.Errorf("failed to list tickets: %v", err)
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}

	return tickets, total, nil
}

// Update saves the given fields of a ticket and invalidates its cache entry.
func (r *TicketRepo) Update(ctx context.Context, ticket *Ticket) error {
	if err := r.db.WithContext(ctx).Save(ticket).Error; err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		r.logger.Errorw("failed to update ticket", "id", ticket.ID, "error", dbErr.Error())
		return dbErr
	}

	cacheKey := BuildCacheKey(CacheKeyTicket, strconv.FormatInt(ticket.ID, 10))
	if err := r.cache.Delete(ctx, cacheKey); err != nil {
		r.logger.Warnw("failed to invalidate ticket cache", "id", ticket.ID, "error", err)
	}
	_ = r.cache.Delete(ctx, CacheKeyTicketStats)

	r.logger.Infow("ticket updated", "id", ticket.ID, "status", ticket.Status)
	return nil
}

// Delete removes a ticket and invalidates its cache entry.
func (r *TicketRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Ticket{}, id)
	if result.Error != nil {
		dbErr := pkgerrors.ClassifyDBError(result.Error)
		r.logger.Errorw("failed to delete ticket", "id", id, "error", dbErr.Error())
		return dbErr
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ClassifyDBError(gorm.ErrRecordNotFound)
	}

	cacheKey := BuildCacheKey(CacheKeyTicket, strconv.FormatInt(id, 10))
	if err := r.cache.Delete(ctx, cacheKey); err != nil {
		r.logger.Warnw("failed to invalidate ticket cache", "id", id, "error", err)
	}
	_ = r.cache.Delete(ctx, CacheKeyTicketStats)

	r.logger.Infow("ticket deleted", "id", id)
	return nil
}

// Stats aggregates ticket counts by status and triage band.
// The snapshot is cached for a short window since the dashboard polls it.
func (r *TicketRepo) Stats(ctx context.Context) (*TicketStats, error) {
	var cached TicketStats
	if err := r.cache.Get(ctx, CacheKeyTicketStats, &cached); err == nil {
		r.logger.Debug("ticket stats cache hit")
		return &cached, nil
	}

	stats := &TicketStats{
		ByStatus:   make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	if err := r.db.WithContext(ctx).Model(&Ticket{}).Count(&stats.Total).Error; err != nil {
		r.logger.Errorf("failed to count tickets: %v", err)
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byStatus []bucket
	if err := r.db.WithContext(ctx).Model(&Ticket{}).
		Select("status AS `key`, COUNT(*) AS count").
		Group("status").Scan(&byStatus).Error; err != nil {
		r.logger.Errorf("failed to aggregate ticket status: %v", err)
		return nil, fmt.Errorf("failed to aggregate ticket status: %w", err)
	}
	for _, b := range byStatus {
		stats.ByStatus[b.Key] = b.Count
	}

	var byPriority []bucket
	if err := r.db.WithContext(ctx).Model(&Ticket{}).
		Select("priority AS `key`, COUNT(*) AS count").
		Group("priority").Scan(&byPriority).Error; err != nil {
		r.logger.Errorf("failed to aggregate ticket priority: %v", err)
		return nil, fmt.Errorf("failed to aggregate ticket priority: %w", err)
	}
	for _, b := range byPriority {
		stats.ByPriority[b.Key] = b.Count
	}

	if err := r.cache.Set(ctx, CacheKeyTicketStats, stats, TTLTicketStats); err != nil {
		r.logger.Warnw("failed to cache ticket stats", "error", err)
	}

	return stats, nil
}

// ListOpenBefore returns open or in-progress tickets of the given triage band
// created before the cutoff. Used by the SLA escalation sweep.
func (r *TicketRepo) ListOpenBefore(ctx context.Context, priority string, cutoff time.Time) ([]*Ticket, error) {
	var tickets []*Ticket
	err := r.db.WithContext(ctx).
		Where("priority = ?", priority).
		Where("status IN ?", []TicketStatus{TicketStatusOpen, TicketStatusInProgress}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&tickets).Error
	if err != nil {
		r.logger.Errorf("failed to list overdue tickets: %v", err)
		return nil, fmt.Errorf("failed to list overdue tickets: %w", err)
	}
	return tickets, nil
}
