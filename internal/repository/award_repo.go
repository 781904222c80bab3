package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// AwardFilter narrows award listings.
type AwardFilter struct {
	Search        string
	PublishedOnly bool
	OpenAfter     *time.Time
	Page          int
	PageSize      int
}

// AwardRepository defines data operations for awards.
type AwardRepository interface {
	List(ctx context.Context, filter AwardFilter) ([]models.Award, int64, error)
	GetByID(ctx context.Context, id uint) (models.Award, error)
	Create(ctx context.Context, award *models.Award) error
	Update(ctx context.Context, award *models.Award) error
	Delete(ctx context.Context, id uint) error
}

type awardRepository struct {
	db *gorm.DB
}

// NewAwardRepository instantiates the repository.
func NewAwardRepository(db *gorm.DB) AwardRepository {
	return &awardRepository{db: db}
}

func (r *awardRepository) List(ctx context.Context, filter AwardFilter) ([]models.Award, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Award{})

	if filter.PublishedOnly {
		query = query.Where("published = ?", true)
	}

	if filter.OpenAfter != nil {
		query = query.Where("deadline IS NULL OR deadline >= ?", *filter.OpenAfter)
	}

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var awards []models.Award
	if err := paginate(query, filter.Page, filter.PageSize).
		Order("deadline IS NULL, deadline ASC, id DESC").
		Find(&awards).Error; err != nil {
		return nil, 0, err
	}

	return awards, total, nil
}

func (r *awardRepository) GetByID(ctx context.Context, id uint) (models.Award, error) {
	var award models.Award
	if err := r.db.WithContext(ctx).First(&award, id).Error; err != nil {
		return models.Award{}, err
	}
	return award, nil
}

func (r *awardRepository) Create(ctx context.Context, award *models.Award) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(award).Error
}

func (r *awardRepository) Update(ctx context.Context, award *models.Award) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(award).Error
}

func (r *awardRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("award_id = ?", id).Delete(&models.FieldDescriptor{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Award{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
