package models

import "time"

// Notification types delivered to students.
const (
	NotificationApplicationReceived = "application.received"
	NotificationStatusChanged       = "application.status_changed"
)

// Notification is a message shown to a student about one of their applications.
type Notification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentID     uint      `gorm:"index;not null" json:"student_id"`
	ApplicationID *uint     `gorm:"index" json:"application_id"`
	AwardID       *uint     `json:"award_id"`
	Type          string    `gorm:"size:64;not null" json:"type"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	Read          bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
