package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// ReviewRepository persists reviewer decisions.
type ReviewRepository interface {
	Upsert(ctx context.Context, decision *models.ReviewDecision) error
	Get(ctx context.Context, applicationID, reviewerID uint) (models.ReviewDecision, error)
	ListByApplication(ctx context.Context, applicationID uint) ([]models.ReviewDecision, error)
	CountShortlisted(ctx context.Context, awardID uint) (int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository constructs the review repository.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Upsert creates the decision or updates it in place for the same reviewer.
func (r *reviewRepository) Upsert(ctx context.Context, decision *models.ReviewDecision) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "application_id"}, {Name: "reviewer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"shortlisted", "comments", "updated_at"}),
		}).
		Create(decision).Error
}

func (r *reviewRepository) Get(ctx context.Context, applicationID, reviewerID uint) (models.ReviewDecision, error) {
	var decision models.ReviewDecision
	if err := r.db.WithContext(ctx).
		Where("application_id = ? AND reviewer_id = ?", applicationID, reviewerID).
		First(&decision).Error; err != nil {
		return models.ReviewDecision{}, err
	}
	return decision, nil
}

func (r *reviewRepository) ListByApplication(ctx context.Context, applicationID uint) ([]models.ReviewDecision, error) {
	var decisions []models.ReviewDecision
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("updated_at DESC").
		Find(&decisions).Error; err != nil {
		return nil, err
	}
	return decisions, nil
}

// CountShortlisted counts applications of the award shortlisted by at least one reviewer.
func (r *reviewRepository) CountShortlisted(ctx context.Context, awardID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ReviewDecision{}).
		Joins("JOIN applications ON applications.id = review_decisions.application_id").
		Where("applications.award_id = ? AND review_decisions.shortlisted = ?", awardID, true).
		Distinct("review_decisions.application_id").
		Count(&total).Error
	return total, err
}
