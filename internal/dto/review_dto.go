package dto

import (
	"time"

	"github.com/noah-isme/awards-portal-api/internal/models"
)

// ReviewApplicationListRequest filters the applications of one award.
type ReviewApplicationListRequest struct {
	Page     int
	PageSize int
	Status   string
}

// ReviewApplicationListResponse wraps applications shown to reviewers.
type ReviewApplicationListResponse struct {
	Items      []ApplicationResponse `json:"items"`
	Fields     []FieldResponse       `json:"fields"`
	Pagination PaginationMeta        `json:"pagination"`
}

// ReviewDecisionRequest records a reviewer's shortlist decision.
type ReviewDecisionRequest struct {
	Shortlisted *bool  `json:"shortlisted" validate:"required"`
	Comments    string `json:"comments" validate:"omitempty,max=5000"`
}

// ReviewDecisionResponse serializes a decision.
type ReviewDecisionResponse struct {
	ID            uint      `json:"id"`
	ApplicationID uint      `json:"application_id"`
	ReviewerID    uint      `json:"reviewer_id"`
	Shortlisted   bool      `json:"shortlisted"`
	Comments      string    `json:"comments"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewReviewDecisionResponse converts a decision model into a DTO.
func NewReviewDecisionResponse(decision models.ReviewDecision) ReviewDecisionResponse {
	return ReviewDecisionResponse{
		ID:            decision.ID,
		ApplicationID: decision.ApplicationID,
		ReviewerID:    decision.ReviewerID,
		Shortlisted:   decision.Shortlisted,
		Comments:      decision.Comments,
		UpdatedAt:     decision.UpdatedAt,
	}
}

// ApplicationStatusRequest overrides an application's status.
type ApplicationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft submitted under_review reviewed approved rejected"`
}

// AwardStatsResponse aggregates the applications of one award.
type AwardStatsResponse struct {
	AwardID     uint             `json:"award_id"`
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	Shortlisted int64            `json:"shortlisted"`
	GeneratedAt time.Time        `json:"generated_at"`
	CacheHit    bool             `json:"cache_hit"`
}
