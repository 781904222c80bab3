package dto

import (
	"time"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// NotificationListRequest pages through a student's notifications.
type NotificationListRequest struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID            uint      `json:"id"`
	StudentID     uint      `json:"student_id"`
	ApplicationID *uint     `json:"application_id,omitempty"`
	AwardID       *uint     `json:"award_id,omitempty"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

// NotificationListResponse wraps a page of notifications and the unread total.
type NotificationListResponse struct {
	Items      []NotificationResponse `json:"items"`
	Unread     int64                  `json:"unread"`
	Pagination PaginationMeta         `json:"pagination"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		ApplicationID: model.ApplicationID,
		AwardID:       model.AwardID,
		Type:          model.Type,
		Message:       model.Message,
		Read:          model.Read,
		CreatedAt:     model.CreatedAt,
	}
}
