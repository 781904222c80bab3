package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// FieldRepository stores the application field schema of each award.
type FieldRepository interface {
	ListForAward(ctx context.Context, awardID uint) ([]models.FieldDescriptor, error)
	GetByID(ctx context.Context, id string) (models.FieldDescriptor, error)
	Create(ctx context.Context, field *models.FieldDescriptor) error
	Update(ctx context.Context, field *models.FieldDescriptor) error
	Delete(ctx context.Context, id string) error
	ReplaceForAward(ctx context.Context, awardID uint, fields []models.FieldDescriptor) error
}

type fieldRepository struct {
	db *gorm.DB
}

// NewFieldRepository constructs the field schema repository.
func NewFieldRepository(db *gorm.DB) FieldRepository {
	return &fieldRepository{db: db}
}

func (r *fieldRepository) ListForAward(ctx context.Context, awardID uint) ([]models.FieldDescriptor, error) {
	var fields []models.FieldDescriptor
	if err := r.db.WithContext(ctx).
		Where("award_id = ?", awardID).
		Order("position ASC, created_at ASC").
		Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *fieldRepository) GetByID(ctx context.Context, id string) (models.FieldDescriptor, error) {
	var field models.FieldDescriptor
	if err := r.db.WithContext(ctx).First(&field, "id = ?", id).Error; err != nil {
		return models.FieldDescriptor{}, err
	}
	return field, nil
}

func (r *fieldRepository) Create(ctx context.Context, field *models.FieldDescriptor) error {
	return r.db.WithContext(ctx).Create(field).Error
}

func (r *fieldRepository) Update(ctx context.Context, field *models.FieldDescriptor) error {
	return r.db.WithContext(ctx).Save(field).Error
}

func (r *fieldRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.FieldDescriptor{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceForAward swaps the award's whole schema in one transaction.
func (r *fieldRepository) ReplaceForAward(ctx context.Context, awardID uint, fields []models.FieldDescriptor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("award_id = ?", awardID).Delete(&models.FieldDescriptor{}).Error; err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		for i := range fields {
			fields[i].AwardID = awardID
		}
		return tx.Create(&fields).Error
	})
}
