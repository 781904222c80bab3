package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/models"
	"github.com/noah-isme/awards-portal-api/internal/observability"
	"github.com/noah-isme/awards-portal-api/internal/repository"
)

// ErrApplicationNotSubmitted indicates a reviewer tried to decide on a draft.
var ErrApplicationNotSubmitted = errors.New("application has not been submitted")

// ReviewService exposes the reviewer and committee workflow.
type ReviewService interface {
	ListApplications(ctx context.Context, awardID uint, req dto.ReviewApplicationListRequest) (dto.ReviewApplicationListResponse, error)
	GetApplication(ctx context.Context, applicationID uint) (dto.ApplicationResponse, error)
	Decide(ctx context.Context, actor ActivityActor, applicationID uint, payload dto.ReviewDecisionRequest) (dto.ReviewDecisionResponse, error)
	ListDecisions(ctx context.Context, applicationID uint) ([]dto.ReviewDecisionResponse, error)
	SetStatus(ctx context.Context, actor ActivityActor, applicationID uint, payload dto.ApplicationStatusRequest) (dto.ApplicationResponse, error)
	Stats(ctx context.Context, awardID uint) (dto.AwardStatsResponse, error)
}

type reviewService struct {
	awards       repository.AwardRepository
	applications repository.ApplicationRepository
	reviews      repository.ReviewRepository
	schemas      SchemaStore
	events       EventPublisher
	activity     ActivityRecorder
	cache        *redis.Client
	ttl          time.Duration
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// ReviewServiceDeps groups the collaborators of the review service.
type ReviewServiceDeps struct {
	Awards       repository.AwardRepository
	Applications repository.ApplicationRepository
	Reviews      repository.ReviewRepository
	Schemas      SchemaStore
	Events       EventPublisher
	Activity     ActivityRecorder
	Cache        *redis.Client
	StatsTTL     time.Duration
	Validator    *validator.Validate
}

// NewReviewService constructs the review service.
func NewReviewService(deps ReviewServiceDeps, logger zerolog.Logger) ReviewService {
	ttl := deps.StatsTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &reviewService{
		awards:       deps.Awards,
		applications: deps.Applications,
		reviews:      deps.Reviews,
		schemas:      deps.Schemas,
		events:       deps.Events,
		activity:     deps.Activity,
		cache:        deps.Cache,
		ttl:          ttl,
		validator:    deps.Validator,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "review_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/awards-portal-api/internal/service/review"),
		now:          time.Now,
	}
}

func (s *reviewService) ListApplications(ctx context.Context, awardID uint, req dto.ReviewApplicationListRequest) (dto.ReviewApplicationListResponse, error) {
	if err := s.ensureAward(ctx, awardID); err != nil {
		return dto.ReviewApplicationListResponse{}, err
	}

	descriptors, err := s.schemas.ListForAward(ctx, awardID)
	if err != nil {
		return dto.ReviewApplicationListResponse{}, err
	}

	filter := repository.ApplicationFilter{
		AwardID:  &awardID,
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize),
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = &status
	}

	records, total, err := s.applications.List(ctx, filter)
	if err != nil {
		return dto.ReviewApplicationListResponse{}, err
	}

	items := make([]dto.ApplicationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewApplicationResponse(record, descriptors))
	}

	return dto.ReviewApplicationListResponse{
		Items:      items,
		Fields:     dto.NewFieldResponses(descriptors),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *reviewService) GetApplication(ctx context.Context, applicationID uint) (dto.ApplicationResponse, error) {
	record, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	descriptors, err := s.schemas.ListForAward(ctx, record.AwardID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	return dto.NewApplicationResponse(record, descriptors), nil
}

func (s *reviewService) Decide(ctx context.Context, actor ActivityActor, applicationID uint, payload dto.ReviewDecisionRequest) (dto.ReviewDecisionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "reviews.decide", trace.WithAttributes(
		attribute.Int("application.id", int(applicationID)),
		attribute.Int("reviewer.id", int(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.ReviewDecisionResponse{}, err
	}

	record, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		span.RecordError(err)
		return dto.ReviewDecisionResponse{}, err
	}
	if record.Status == models.ApplicationStatusDraft {
		span.SetStatus(codes.Error, "not submitted")
		return dto.ReviewDecisionResponse{}, ErrApplicationNotSubmitted
	}

	decision := models.ReviewDecision{
		ApplicationID: applicationID,
		ReviewerID:    actor.ID,
		Shortlisted:   *payload.Shortlisted,
		Comments:      plainText(s.sanitizer, payload.Comments),
	}
	if err := s.reviews.Upsert(ctx, &decision); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.ReviewDecisionResponse{}, err
	}

	stored, err := s.reviews.Get(ctx, applicationID, actor.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ReviewDecisionResponse{}, err
	}

	if record.Status == models.ApplicationStatusSubmitted {
		if err := s.applications.UpdateStatus(ctx, applicationID, models.ApplicationStatusUnderReview); err != nil {
			span.RecordError(err)
			return dto.ReviewDecisionResponse{}, err
		}
	}

	s.invalidateStats(ctx, record.AwardID)
	outcome := "passed"
	if stored.Shortlisted {
		outcome = "shortlisted"
	}
	observability.ReviewDecisions().WithLabelValues(outcome).Inc()

	publishEvent(ctx, s.events, s.logger, SubjectReviewDecided, ReviewDecidedEvent{
		ApplicationID: applicationID,
		AwardID:       record.AwardID,
		ReviewerID:    actor.ID,
		Shortlisted:   stored.Shortlisted,
		DecidedAt:     s.now().UTC(),
	})
	s.record(ctx, actor, "review.decide", applicationID, map[string]interface{}{
		"award_id":    record.AwardID,
		"shortlisted": stored.Shortlisted,
	})

	span.SetStatus(codes.Ok, outcome)
	return dto.NewReviewDecisionResponse(stored), nil
}

func (s *reviewService) ListDecisions(ctx context.Context, applicationID uint) ([]dto.ReviewDecisionResponse, error) {
	if _, err := s.loadApplication(ctx, applicationID); err != nil {
		return nil, err
	}

	decisions, err := s.reviews.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ReviewDecisionResponse, 0, len(decisions))
	for _, decision := range decisions {
		items = append(items, dto.NewReviewDecisionResponse(decision))
	}
	return items, nil
}

// SetStatus writes any status. Transitions are not checked.
func (s *reviewService) SetStatus(ctx context.Context, actor ActivityActor, applicationID uint, payload dto.ApplicationStatusRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	record, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	previous := record.Status
	if err := s.applications.UpdateStatus(ctx, applicationID, payload.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}
	record.Status = payload.Status

	s.invalidateStats(ctx, record.AwardID)
	publishEvent(ctx, s.events, s.logger, SubjectApplicationStatus, ApplicationStatusEvent{
		ApplicationID: applicationID,
		AwardID:       record.AwardID,
		AwardTitle:    record.Award.Title,
		StudentID:     record.StudentID,
		From:          previous,
		To:            payload.Status,
		ChangedAt:     s.now().UTC(),
	})
	s.record(ctx, actor, "application.status", applicationID, map[string]interface{}{
		"from": previous,
		"to":   payload.Status,
	})

	descriptors, err := s.schemas.ListForAward(ctx, record.AwardID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	return dto.NewApplicationResponse(record, descriptors), nil
}

func (s *reviewService) Stats(ctx context.Context, awardID uint) (dto.AwardStatsResponse, error) {
	if cached, ok := s.fetchStats(ctx, awardID); ok {
		cached.CacheHit = true
		return cached, nil
	}

	if err := s.ensureAward(ctx, awardID); err != nil {
		return dto.AwardStatsResponse{}, err
	}

	counts, err := s.applications.CountByStatus(ctx, awardID)
	if err != nil {
		return dto.AwardStatsResponse{}, err
	}
	shortlisted, err := s.reviews.CountShortlisted(ctx, awardID)
	if err != nil {
		return dto.AwardStatsResponse{}, err
	}

	stats := dto.AwardStatsResponse{
		AwardID:     awardID,
		ByStatus:    make(map[string]int64, len(models.ApplicationStatuses)),
		Shortlisted: shortlisted,
		GeneratedAt: s.now().UTC(),
	}
	for _, status := range models.ApplicationStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}

	s.writeStats(ctx, stats)
	return stats, nil
}

func (s *reviewService) fetchStats(ctx context.Context, awardID uint) (dto.AwardStatsResponse, bool) {
	if s.cache == nil {
		return dto.AwardStatsResponse{}, false
	}
	payload, err := s.cache.Get(ctx, statsCacheKey(awardID)).Bytes()
	if err != nil {
		return dto.AwardStatsResponse{}, false
	}

	var stats dto.AwardStatsResponse
	if err := json.Unmarshal(payload, &stats); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode stats cache")
		return dto.AwardStatsResponse{}, false
	}
	return stats, true
}

func (s *reviewService) writeStats(ctx context.Context, stats dto.AwardStatsResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode stats cache")
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey(stats.AwardID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store stats cache")
	}
}

func (s *reviewService) invalidateStats(ctx context.Context, awardID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey(awardID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("award_id", awardID).Msg("failed to invalidate stats cache")
	}
}

func (s *reviewService) ensureAward(ctx context.Context, awardID uint) error {
	if _, err := s.awards.GetByID(ctx, awardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAwardNotFound
		}
		return err
	}
	return nil
}

func (s *reviewService) loadApplication(ctx context.Context, id uint) (models.ApplicationRecord, error) {
	record, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ApplicationRecord{}, ErrApplicationNotFound
		}
		return models.ApplicationRecord{}, err
	}
	return record, nil
}

func (s *reviewService) record(ctx context.Context, actor ActivityActor, action string, applicationID uint, metadata map[string]interface{}) {
	entityID := applicationID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "application",
		EntityID:   &entityID,
		Metadata:   metadata,
	})
}

func statsCacheKey(awardID uint) string {
	return fmt.Sprintf("awards:stats:v1:%d", awardID)
}
