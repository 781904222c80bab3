package dto

import (
	"time"

	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/models"
)

// AwardListRequest defines filters for listing awards.
type AwardListRequest struct {
	Page     int
	PageSize int
	Search   string
}

// AwardCreateRequest is the admin payload for a new award.
type AwardCreateRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=255"`
	Description string     `json:"description" validate:"omitempty,max=20000"`
	Amount      float64    `json:"amount" validate:"gte=0"`
	Deadline    *time.Time `json:"deadline"`
	Published   bool       `json:"published"`
}

// AwardUpdateRequest captures partial award updates.
type AwardUpdateRequest struct {
	Title         *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description   *string    `json:"description" validate:"omitempty,max=20000"`
	Amount        *float64   `json:"amount" validate:"omitempty,gte=0"`
	Deadline      *time.Time `json:"deadline"`
	ClearDeadline bool       `json:"clear_deadline"`
	Published     *bool      `json:"published"`
}

// AwardResponse serializes an award.
type AwardResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Deadline    *time.Time `json:"deadline"`
	Published   bool       `json:"published"`
	Open        bool       `json:"open"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AwardListResponse wraps a paginated award listing.
type AwardListResponse struct {
	Items      []AwardResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// AwardDetailResponse is an award together with its application schema.
type AwardDetailResponse struct {
	AwardResponse
	Fields []FieldResponse `json:"fields"`
}

// NewAwardResponse converts an award model into a DTO.
func NewAwardResponse(award models.Award, reference time.Time) AwardResponse {
	return AwardResponse{
		ID:          award.ID,
		Title:       award.Title,
		Description: award.Description,
		Amount:      award.Amount,
		Deadline:    award.Deadline,
		Published:   award.Published,
		Open:        award.IsOpen(reference),
		CreatedAt:   award.CreatedAt,
		UpdatedAt:   award.UpdatedAt,
	}
}

// FieldCreateRequest adds a field to an award's schema. Archetype picks the
// defaults; the remaining values override them.
type FieldCreateRequest struct {
	Archetype   string   `json:"archetype" validate:"omitempty,oneof=custom resume certificate international_intent community_letter travel_benefit budget"`
	Label       string   `json:"label" validate:"omitempty,max=255"`
	Kind        string   `json:"kind" validate:"omitempty,oneof=short_text long_text file dropdown number date text textarea essay select"`
	Essay       bool     `json:"essay"`
	Required    bool     `json:"required"`
	Description string   `json:"description" validate:"omitempty,max=2000"`
	Placeholder string   `json:"placeholder" validate:"omitempty,max=255"`
	Prompt      string   `json:"prompt" validate:"omitempty,max=2000"`
	Options     []string `json:"options" validate:"omitempty,dive,required,max=255"`
	WordLimit   *int     `json:"word_limit" validate:"omitempty,gte=0"`
	Position    *int     `json:"position" validate:"omitempty,gte=0"`
}

// FieldUpdateRequest captures partial field updates.
type FieldUpdateRequest struct {
	Label       *string  `json:"label" validate:"omitempty,max=255"`
	Kind        *string  `json:"kind" validate:"omitempty,oneof=short_text long_text file dropdown number date text textarea essay select"`
	Essay       *bool    `json:"essay"`
	Required    *bool    `json:"required"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Placeholder *string  `json:"placeholder" validate:"omitempty,max=255"`
	Prompt      *string  `json:"prompt" validate:"omitempty,max=2000"`
	Options     []string `json:"options" validate:"omitempty,dive,required,max=255"`
	WordLimit   *int     `json:"word_limit" validate:"omitempty,gte=0"`
	Position    *int     `json:"position" validate:"omitempty,gte=0"`
}

// FieldResponse serializes a field descriptor along with the key its answer is
// persisted under.
type FieldResponse struct {
	formschema.Descriptor
	StorageKey string `json:"storage_key"`
}

// NewFieldResponse converts an engine descriptor into a DTO.
func NewFieldResponse(d formschema.Descriptor) FieldResponse {
	return FieldResponse{Descriptor: d, StorageKey: formschema.StorageKey(d)}
}

// NewFieldResponses converts descriptors, preserving order.
func NewFieldResponses(descriptors []formschema.Descriptor) []FieldResponse {
	items := make([]FieldResponse, 0, len(descriptors))
	for _, d := range descriptors {
		items = append(items, NewFieldResponse(d))
	}
	return items
}

// SchemaImportField is one entry of an imported schema document. Documents
// written before archetypes existed omit archetype and rely on the label.
type SchemaImportField struct {
	ID          string   `json:"id"`
	FieldName   string   `json:"field_name"`
	Label       string   `json:"label"`
	Kind        string   `json:"kind"`
	Essay       bool     `json:"essay"`
	Required    bool     `json:"required"`
	Description string   `json:"description"`
	Placeholder string   `json:"placeholder"`
	Prompt      string   `json:"prompt"`
	Archetype   string   `json:"archetype"`
	Purpose     string   `json:"purpose"`
	Options     []string `json:"options"`
	WordLimit   int      `json:"word_limit"`
}

// SchemaImportDocument replaces an award's whole schema.
type SchemaImportDocument struct {
	Fields []SchemaImportField `json:"fields"`
}
