package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// Migrate creates or updates the tables owned by the service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Award{},
		&models.FieldDescriptor{},
		&models.ApplicationRecord{},
		&models.ReviewDecision{},
		&models.UploadRecord{},
		&models.ActivityLog{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
