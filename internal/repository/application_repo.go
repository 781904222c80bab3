package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// ApplicationFilter allows narrowing application queries.
type ApplicationFilter struct {
	AwardID   *uint
	StudentID *uint
	Status    *string
	Page      int
	PageSize  int
}

// ApplicationRepository persists application records. Writes are last-write-wins;
// no version check is performed.
type ApplicationRepository interface {
	List(ctx context.Context, filter ApplicationFilter) ([]models.ApplicationRecord, int64, error)
	GetByID(ctx context.Context, id uint) (models.ApplicationRecord, error)
	GetByAwardAndStudent(ctx context.Context, awardID, studentID uint) (models.ApplicationRecord, error)
	Create(ctx context.Context, record *models.ApplicationRecord) error
	Update(ctx context.Context, record *models.ApplicationRecord) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	CountByStatus(ctx context.Context, awardID uint) (map[string]int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository instantiates the repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ApplicationRecord{}).Preload("Award")
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.ApplicationRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ApplicationRecord{})

	if filter.AwardID != nil {
		query = query.Where("award_id = ?", *filter.AwardID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.ApplicationRecord
	if err := paginate(query, filter.Page, filter.PageSize).
		Preload("Award").
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.ApplicationRecord, error) {
	var record models.ApplicationRecord
	if err := r.baseQuery(ctx).First(&record, id).Error; err != nil {
		return models.ApplicationRecord{}, err
	}
	return record, nil
}

func (r *applicationRepository) GetByAwardAndStudent(ctx context.Context, awardID, studentID uint) (models.ApplicationRecord, error) {
	var record models.ApplicationRecord
	if err := r.baseQuery(ctx).
		Where("award_id = ?", awardID).
		Where("student_id = ?", studentID).
		First(&record).Error; err != nil {
		return models.ApplicationRecord{}, err
	}
	return record, nil
}

func (r *applicationRepository) Create(ctx context.Context, record *models.ApplicationRecord) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error
}

func (r *applicationRepository) Update(ctx context.Context, record *models.ApplicationRecord) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ApplicationRecord{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *applicationRepository) CountByStatus(ctx context.Context, awardID uint) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ApplicationRecord{}).
		Select("status, COUNT(*) AS total").
		Where("award_id = ?", awardID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
