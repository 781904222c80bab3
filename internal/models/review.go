package models

import "time"

// ReviewDecision is one reviewer's shortlist decision on an application.
type ReviewDecision struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ApplicationID uint              `gorm:"not null;uniqueIndex:idx_review_application_reviewer" json:"application_id"`
	ReviewerID    uint              `gorm:"not null;uniqueIndex:idx_review_application_reviewer" json:"reviewer_id"`
	Shortlisted   bool              `gorm:"not null;default:false" json:"shortlisted"`
	Comments      string            `gorm:"type:text" json:"comments"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Application   ApplicationRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
