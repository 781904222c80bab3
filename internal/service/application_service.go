package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/models"
	"github.com/noah-isme/awards-portal-api/internal/observability"
	"github.com/noah-isme/awards-portal-api/internal/repository"
)

var (
	// ErrApplicationNotFound indicates the student has no application for the award.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrAwardClosed indicates the award is unpublished or past its deadline.
	ErrAwardClosed = errors.New("award is not accepting applications")
	// ErrApplicationLocked indicates review has started and answers can no longer change.
	ErrApplicationLocked = errors.New("application is locked for review")
)

// IncompleteApplicationError rejects a submission and lists every failing field.
type IncompleteApplicationError struct {
	Evaluation formschema.Evaluation
}

func (e *IncompleteApplicationError) Error() string {
	return fmt.Sprintf("application incomplete: %s", strings.Join(e.Evaluation.MissingFields(), ", "))
}

// ApplicationService drives the student side of the application form.
type ApplicationService interface {
	GetForm(ctx context.Context, awardID, studentID uint) (dto.ApplicationFormResponse, error)
	SaveDraft(ctx context.Context, awardID, studentID uint, payload dto.ApplicationSaveRequest) (dto.ApplicationResponse, error)
	Submit(ctx context.Context, awardID, studentID uint, payload dto.ApplicationSaveRequest) (dto.ApplicationSubmitResponse, error)
	Evaluate(ctx context.Context, awardID uint, payload dto.ApplicationSaveRequest) (dto.EvaluationResponse, error)
	WordCount(payload dto.WordCountRequest) (dto.WordCountResponse, error)
	ListMine(ctx context.Context, studentID uint, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error)
}

type applicationService struct {
	awards       repository.AwardRepository
	applications repository.ApplicationRepository
	schemas      SchemaStore
	events       EventPublisher
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewApplicationService constructs the application service.
func NewApplicationService(
	awards repository.AwardRepository,
	applications repository.ApplicationRepository,
	schemas SchemaStore,
	events EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) ApplicationService {
	return &applicationService{
		awards:       awards,
		applications: applications,
		schemas:      schemas,
		events:       events,
		validator:    validate,
		logger:       logger.With().Str("component", "application_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/awards-portal-api/internal/service/application"),
		now:          time.Now,
	}
}

func (s *applicationService) GetForm(ctx context.Context, awardID, studentID uint) (dto.ApplicationFormResponse, error) {
	ctx, span := s.tracer.Start(ctx, "applications.form", trace.WithAttributes(
		attribute.Int("award.id", int(awardID)),
		attribute.Int("student.id", int(studentID)),
	))
	defer span.End()

	award, descriptors, err := s.loadAwardSchema(ctx, awardID)
	if err != nil {
		span.RecordError(err)
		return dto.ApplicationFormResponse{}, err
	}

	response := dto.ApplicationFormResponse{
		Award:  dto.NewAwardResponse(award, s.now()),
		Fields: dto.NewFieldResponses(descriptors),
	}

	values := formschema.NewValues()
	record, err := s.applications.GetByAwardAndStudent(ctx, awardID, studentID)
	switch {
	case err == nil:
		application := dto.NewApplicationResponse(record, descriptors)
		response.Application = &application
		values = application.Answers.FormValues()
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		span.RecordError(err)
		return dto.ApplicationFormResponse{}, err
	}

	response.Answers = dto.NewApplicationValues(values)
	response.Evaluation = dto.NewEvaluationResponse(formschema.Evaluate(descriptors, values))
	return response, nil
}

func (s *applicationService) SaveDraft(ctx context.Context, awardID, studentID uint, payload dto.ApplicationSaveRequest) (dto.ApplicationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "applications.save_draft", trace.WithAttributes(
		attribute.Int("award.id", int(awardID)),
		attribute.Int("student.id", int(studentID)),
	))
	defer span.End()

	award, descriptors, err := s.loadAwardSchema(ctx, awardID)
	if err != nil {
		span.RecordError(err)
		return dto.ApplicationResponse{}, err
	}
	if !award.IsOpen(s.now()) {
		span.SetStatus(codes.Error, "award closed")
		return dto.ApplicationResponse{}, ErrAwardClosed
	}

	record, err := s.persist(ctx, award, studentID, descriptors, payload, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return dto.ApplicationResponse{}, err
	}

	observability.ApplicationSaves().WithLabelValues(record.Status).Inc()
	span.SetStatus(codes.Ok, "saved")
	return dto.NewApplicationResponse(record, descriptors), nil
}

func (s *applicationService) Submit(ctx context.Context, awardID, studentID uint, payload dto.ApplicationSaveRequest) (dto.ApplicationSubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "applications.submit", trace.WithAttributes(
		attribute.Int("award.id", int(awardID)),
		attribute.Int("student.id", int(studentID)),
	))
	defer span.End()

	award, descriptors, err := s.loadAwardSchema(ctx, awardID)
	if err != nil {
		span.RecordError(err)
		return dto.ApplicationSubmitResponse{}, err
	}
	if !award.IsOpen(s.now()) {
		span.SetStatus(codes.Error, "award closed")
		return dto.ApplicationSubmitResponse{}, ErrAwardClosed
	}

	evaluation := formschema.Evaluate(descriptors, payload.FormValues())
	span.SetAttributes(attribute.Int("application.progress", evaluation.ProgressPercent()))
	if !evaluation.IsValid() {
		span.SetStatus(codes.Error, "incomplete")
		return dto.ApplicationSubmitResponse{}, &IncompleteApplicationError{Evaluation: evaluation}
	}

	record, err := s.persist(ctx, award, studentID, descriptors, payload, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return dto.ApplicationSubmitResponse{}, err
	}

	observability.ApplicationSaves().WithLabelValues(record.Status).Inc()
	span.SetStatus(codes.Ok, "submitted")
	return dto.ApplicationSubmitResponse{
		Application: dto.NewApplicationResponse(record, descriptors),
		Evaluation:  dto.NewEvaluationResponse(evaluation),
	}, nil
}

// persist maps the payload and writes it, creating the record on first save.
// The mapped answers replace every content column on insert and update alike.
func (s *applicationService) persist(ctx context.Context, award models.Award, studentID uint, descriptors []formschema.Descriptor, payload dto.ApplicationSaveRequest, submit bool) (models.ApplicationRecord, error) {
	stored := formschema.Forward(payload.FormValues(), descriptors)

	record, err := s.applications.GetByAwardAndStudent(ctx, award.ID, studentID)
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ApplicationRecord{}, err
	}

	if exists && isLocked(record.Status) {
		return models.ApplicationRecord{}, ErrApplicationLocked
	}

	if !exists {
		record = models.ApplicationRecord{
			AwardID:   award.ID,
			StudentID: studentID,
			Status:    models.ApplicationStatusDraft,
		}
	}
	record.ReplaceContent(stored)

	firstSubmission := false
	if submit && record.SubmittedAt == nil {
		submittedAt := s.now().UTC()
		record.SubmittedAt = &submittedAt
		record.Status = models.ApplicationStatusSubmitted
		firstSubmission = true
	}

	if exists {
		err = s.applications.Update(ctx, &record)
	} else {
		err = s.applications.Create(ctx, &record)
	}
	if err != nil {
		s.logger.Error().Err(err).Uint("award_id", award.ID).Uint("student_id", studentID).Msg("failed to persist application")
		return models.ApplicationRecord{}, err
	}
	record.Award = award

	if firstSubmission {
		s.logger.Info().Uint("application_id", record.ID).Uint("award_id", award.ID).Msg("application submitted")
		publishEvent(ctx, s.events, s.logger, SubjectApplicationSubmitted, ApplicationSubmittedEvent{
			ApplicationID: record.ID,
			AwardID:       award.ID,
			AwardTitle:    award.Title,
			StudentID:     studentID,
			SubmittedAt:   *record.SubmittedAt,
		})
	}

	return record, nil
}

func (s *applicationService) Evaluate(ctx context.Context, awardID uint, payload dto.ApplicationSaveRequest) (dto.EvaluationResponse, error) {
	_, descriptors, err := s.loadAwardSchema(ctx, awardID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	return dto.NewEvaluationResponse(formschema.Evaluate(descriptors, payload.FormValues())), nil
}

func (s *applicationService) WordCount(payload dto.WordCountRequest) (dto.WordCountResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.WordCountResponse{}, err
	}

	words := formschema.WordCount(payload.Text)
	return dto.WordCountResponse{
		Words:     words,
		WordLimit: payload.WordLimit,
		Exceeded:  payload.WordLimit > 0 && words > payload.WordLimit,
	}, nil
}

func (s *applicationService) ListMine(ctx context.Context, studentID uint, req dto.ApplicationListRequest) (dto.ApplicationListResponse, error) {
	filter := repository.ApplicationFilter{
		StudentID: &studentID,
		Page:      normalizePage(req.Page),
		PageSize:  clampPageSize(req.PageSize),
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = &status
	}

	records, total, err := s.applications.List(ctx, filter)
	if err != nil {
		return dto.ApplicationListResponse{}, err
	}

	items := make([]dto.ApplicationSummary, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewApplicationSummary(record))
	}

	return dto.ApplicationListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// loadAwardSchema returns a published award with its descriptors.
func (s *applicationService) loadAwardSchema(ctx context.Context, awardID uint) (models.Award, []formschema.Descriptor, error) {
	award, err := s.awards.GetByID(ctx, awardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Award{}, nil, ErrAwardNotFound
		}
		return models.Award{}, nil, err
	}
	if !award.Published {
		return models.Award{}, nil, ErrAwardNotFound
	}

	descriptors, err := s.schemas.ListForAward(ctx, awardID)
	if err != nil {
		return models.Award{}, nil, err
	}
	return award, descriptors, nil
}

// isLocked reports whether review has progressed past the point where the
// student may still change answers.
func isLocked(status string) bool {
	switch status {
	case models.ApplicationStatusDraft, models.ApplicationStatusSubmitted, "":
		return false
	default:
		return true
	}
}
