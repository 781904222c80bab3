package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// ActivityLogFilter narrows audit trail queries. Since is inclusive and
// Until exclusive.
type ActivityLogFilter struct {
	Page          int
	PageSize      int
	ActorID       *uint
	Action        string
	EntityType    string
	EntityID      *uint
	CorrelationID string
	Since         *time.Time
	Until         *time.Time
}

// ActivityLogRepository persists the admin audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := applyActivityFilter(r.db.WithContext(ctx).Model(&models.ActivityLog{}), filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityLog
	err := paginate(query, filter.Page, filter.PageSize).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func applyActivityFilter(query *gorm.DB, filter ActivityLogFilter) *gorm.DB {
	conditions := map[string]interface{}{}
	if filter.ActorID != nil {
		conditions["actor_id"] = *filter.ActorID
	}
	if filter.Action != "" {
		conditions["action"] = filter.Action
	}
	if filter.EntityType != "" {
		conditions["entity_type"] = filter.EntityType
	}
	if filter.EntityID != nil {
		conditions["entity_id"] = *filter.EntityID
	}
	if filter.CorrelationID != "" {
		conditions["correlation_id"] = filter.CorrelationID
	}
	if len(conditions) > 0 {
		query = query.Where(conditions)
	}

	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at < ?", *filter.Until)
	}
	return query
}
