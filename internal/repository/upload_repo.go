package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// UploadRepository persists metadata about documents uploaded for applications.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	FindByChecksum(ctx context.Context, userID uint, checksum string) (models.UploadRecord, error)
	ListByUser(ctx context.Context, userID uint, awardID *uint) ([]models.UploadRecord, error)
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByChecksum returns the user's earlier upload of identical content.
func (r *uploadRepository) FindByChecksum(ctx context.Context, userID uint, checksum string) (models.UploadRecord, error) {
	var record models.UploadRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND checksum = ?", userID, checksum).
		Order("id DESC").
		First(&record).Error; err != nil {
		return models.UploadRecord{}, err
	}
	return record, nil
}

func (r *uploadRepository) ListByUser(ctx context.Context, userID uint, awardID *uint) ([]models.UploadRecord, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if awardID != nil {
		query = query.Where("award_id = ?", *awardID)
	}

	var records []models.UploadRecord
	if err := query.Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
