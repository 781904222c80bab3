package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/awards-portal-api/internal/formschema"
)

// Application statuses. Transitions are not enforced here; any caller may
// write any status.
const (
	ApplicationStatusDraft       = "draft"
	ApplicationStatusSubmitted   = "submitted"
	ApplicationStatusUnderReview = "under_review"
	ApplicationStatusReviewed    = "reviewed"
	ApplicationStatusApproved    = "approved"
	ApplicationStatusRejected    = "rejected"
)

// ApplicationStatuses lists every valid application status.
var ApplicationStatuses = []string{
	ApplicationStatusDraft,
	ApplicationStatusSubmitted,
	ApplicationStatusUnderReview,
	ApplicationStatusReviewed,
	ApplicationStatusApproved,
	ApplicationStatusRejected,
}

// ApplicationRecord is one student's application for one award.
type ApplicationRecord struct {
	ID                     uint              `gorm:"primaryKey" json:"id"`
	AwardID                uint              `gorm:"not null;uniqueIndex:idx_applications_award_student" json:"award_id"`
	StudentID              uint              `gorm:"not null;uniqueIndex:idx_applications_award_student" json:"student_id"`
	Status                 string            `gorm:"size:32;not null;index" json:"status"`
	FirstName              string            `gorm:"size:128" json:"first_name"`
	LastName               string            `gorm:"size:128" json:"last_name"`
	StudentNumber          string            `gorm:"size:64" json:"student_number"`
	Program                string            `gorm:"size:255" json:"program"`
	Email                  string            `gorm:"size:255" json:"email"`
	Credits                string            `gorm:"size:32" json:"credits"`
	ResumeURL              string            `gorm:"size:512" json:"resume_url"`
	CertificateURL         string            `gorm:"size:512" json:"certificate_url"`
	InternationalIntentURL string            `gorm:"size:512" json:"international_intent_url"`
	CommunityLetterURL     string            `gorm:"size:512" json:"community_letter_url"`
	TravelBenefit          string            `gorm:"type:text" json:"travel_benefit"`
	Budget                 string            `gorm:"type:text" json:"budget"`
	ExtraFields            datatypes.JSONMap `gorm:"type:json" json:"extra_fields"`
	EssayResponses         datatypes.JSONMap `gorm:"type:json" json:"essay_responses"`
	SubmittedAt            *time.Time        `json:"submitted_at"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
	Award                  Award             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"award"`
}

// TableName keeps the table name stable regardless of the struct name.
func (ApplicationRecord) TableName() string {
	return "applications"
}

// IsSubmitted reports whether the application has left the draft state.
func (a ApplicationRecord) IsSubmitted() bool {
	return a.SubmittedAt != nil || (a.Status != "" && a.Status != ApplicationStatusDraft)
}

func (a *ApplicationRecord) columns() map[string]*string {
	return map[string]*string{
		"first_name":               &a.FirstName,
		"last_name":                &a.LastName,
		"student_number":           &a.StudentNumber,
		"program":                  &a.Program,
		"email":                    &a.Email,
		"credits":                  &a.Credits,
		"resume_url":               &a.ResumeURL,
		"certificate_url":          &a.CertificateURL,
		"international_intent_url": &a.InternationalIntentURL,
		"community_letter_url":     &a.CommunityLetterURL,
		"travel_benefit":           &a.TravelBenefit,
		"budget":                   &a.Budget,
	}
}

// Stored returns the answers held by the record in the engine's shape.
func (a ApplicationRecord) Stored() formschema.Stored {
	stored := formschema.Stored{Fields: map[string]string{}}

	for key, value := range a.ExtraFields {
		if text := stringify(value); text != "" {
			stored.Fields[key] = text
		}
	}
	for key, column := range a.columns() {
		if *column != "" {
			stored.Fields[key] = *column
		}
	}

	if len(a.EssayResponses) > 0 {
		stored.EssayResponses = make(map[string]string, len(a.EssayResponses))
		for key, value := range a.EssayResponses {
			if text := stringify(value); text != "" {
				stored.EssayResponses[key] = text
			}
		}
	}

	return stored
}

// ReplaceContent overwrites every answer column with the stored shape. Keys
// missing from stored are cleared, on insert and update alike.
func (a *ApplicationRecord) ReplaceContent(stored formschema.Stored) {
	columns := a.columns()
	for _, column := range columns {
		*column = ""
	}

	a.ExtraFields = datatypes.JSONMap{}
	for key, value := range stored.Fields {
		if column, ok := columns[key]; ok {
			*column = value
			continue
		}
		a.ExtraFields[key] = value
	}

	a.EssayResponses = datatypes.JSONMap{}
	for key, value := range stored.EssayResponses {
		a.EssayResponses[key] = value
	}
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
