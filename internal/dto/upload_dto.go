package dto

import (
	"time"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// UploadRequest carries the optional context of a document upload.
type UploadRequest struct {
	AwardID   *uint
	FieldName string
}

// UploadResponse describes the stored document. URL is the value the client
// places into the file map of its application.
type UploadResponse struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	Checksum  string    `json:"checksum"`
	FileName  string    `json:"file_name"`
	FieldName string    `json:"field_name,omitempty"`
	AwardID   *uint     `json:"award_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUploadResponse converts an upload record into a DTO.
func NewUploadResponse(record models.UploadRecord) UploadResponse {
	return UploadResponse{
		ID:        record.ID,
		URL:       record.URL,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
		FieldName: record.FieldName,
		AwardID:   record.AwardID,
		CreatedAt: record.CreatedAt,
	}
}
