package dto

import (
	"time"

	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/models"
)

// ApplicationValues is the form state exchanged with the client.
type ApplicationValues struct {
	Values map[string]string `json:"values"`
	Files  map[string]string `json:"files"`
	Essays map[string]string `json:"essays"`
}

// FormValues converts the payload into the engine's value maps.
func (v ApplicationValues) FormValues() formschema.Values {
	values := formschema.NewValues()
	for key, value := range v.Values {
		values.Plain[key] = value
	}
	for key, value := range v.Files {
		values.Files[key] = value
	}
	for key, value := range v.Essays {
		values.Essays[key] = value
	}
	return values
}

// NewApplicationValues converts engine values into the client shape.
func NewApplicationValues(values formschema.Values) ApplicationValues {
	out := ApplicationValues{
		Values: map[string]string{},
		Files:  map[string]string{},
		Essays: map[string]string{},
	}
	for key, value := range values.Plain {
		out.Values[key] = value
	}
	for key, value := range values.Files {
		out.Files[key] = value
	}
	for key, value := range values.Essays {
		out.Essays[key] = value
	}
	return out
}

// ApplicationSaveRequest carries the form state for a draft save or a submit.
type ApplicationSaveRequest struct {
	ApplicationValues
}

// EvaluationResponse reports the completion state of a form.
type EvaluationResponse struct {
	Valid          bool                   `json:"valid"`
	Progress       int                    `json:"progress"`
	RequiredTotal  int                    `json:"required_total"`
	RequiredFilled int                    `json:"required_filled"`
	MissingFields  []string               `json:"missing_fields"`
	Violations     []formschema.Violation `json:"violations"`
}

// NewEvaluationResponse flattens an evaluation for the client.
func NewEvaluationResponse(evaluation formschema.Evaluation) EvaluationResponse {
	violations := evaluation.Violations
	if violations == nil {
		violations = []formschema.Violation{}
	}
	missing := evaluation.MissingFields()
	if missing == nil {
		missing = []string{}
	}
	return EvaluationResponse{
		Valid:          evaluation.IsValid(),
		Progress:       evaluation.ProgressPercent(),
		RequiredTotal:  evaluation.RequiredTotal,
		RequiredFilled: evaluation.RequiredFilled,
		MissingFields:  missing,
		Violations:     violations,
	}
}

// ApplicationResponse serializes one application with its answers in form shape.
type ApplicationResponse struct {
	ID          uint              `json:"id"`
	AwardID     uint              `json:"award_id"`
	AwardTitle  string            `json:"award_title,omitempty"`
	StudentID   uint              `json:"student_id"`
	Status      string            `json:"status"`
	Answers     ApplicationValues `json:"answers"`
	SubmittedAt *time.Time        `json:"submitted_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewApplicationResponse inverse-maps the stored record through the award schema.
func NewApplicationResponse(record models.ApplicationRecord, descriptors []formschema.Descriptor) ApplicationResponse {
	return ApplicationResponse{
		ID:          record.ID,
		AwardID:     record.AwardID,
		AwardTitle:  record.Award.Title,
		StudentID:   record.StudentID,
		Status:      record.Status,
		Answers:     NewApplicationValues(formschema.Inverse(record.Stored(), descriptors)),
		SubmittedAt: record.SubmittedAt,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// ApplicationSummary is the list row for an application without its answers.
type ApplicationSummary struct {
	ID          uint       `json:"id"`
	AwardID     uint       `json:"award_id"`
	AwardTitle  string     `json:"award_title"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewApplicationSummary converts a record into its list row.
func NewApplicationSummary(record models.ApplicationRecord) ApplicationSummary {
	return ApplicationSummary{
		ID:          record.ID,
		AwardID:     record.AwardID,
		AwardTitle:  record.Award.Title,
		Status:      record.Status,
		SubmittedAt: record.SubmittedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// ApplicationListRequest paginates the student's own applications.
type ApplicationListRequest struct {
	Page     int
	PageSize int
	Status   string
}

// ApplicationListResponse wraps a paginated application listing.
type ApplicationListResponse struct {
	Items      []ApplicationSummary `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// ApplicationFormResponse is everything the client needs to render the form.
type ApplicationFormResponse struct {
	Award       AwardResponse        `json:"award"`
	Fields      []FieldResponse      `json:"fields"`
	Application *ApplicationResponse `json:"application"`
	Answers     ApplicationValues    `json:"answers"`
	Evaluation  EvaluationResponse   `json:"evaluation"`
}

// ApplicationSubmitResponse reports the stored application and its final evaluation.
type ApplicationSubmitResponse struct {
	Application ApplicationResponse `json:"application"`
	Evaluation  EvaluationResponse  `json:"evaluation"`
}

// WordCountRequest asks for the live word count of an essay draft.
type WordCountRequest struct {
	Text      string `json:"text"`
	WordLimit int    `json:"word_limit" validate:"gte=0"`
}

// WordCountResponse reports the count against an optional limit.
type WordCountResponse struct {
	Words     int  `json:"words"`
	WordLimit int  `json:"word_limit,omitempty"`
	Exceeded  bool `json:"exceeded"`
}
