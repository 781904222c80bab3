package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/models"
	"github.com/noah-isme/awards-portal-api/internal/repository"
)

var (
	// ErrAwardNotFound indicates the award does not exist or is not visible to the caller.
	ErrAwardNotFound = errors.New("award not found")
	// ErrFieldNotFound indicates the field does not exist on the award.
	ErrFieldNotFound = errors.New("field not found")
	// ErrInvalidSchemaDocument indicates an imported schema failed structural validation.
	ErrInvalidSchemaDocument = errors.New("invalid schema document")
)

//go:embed schemas/schema_import.json
var schemaImportDocument string

// AwardService manages awards and their application schemas.
type AwardService interface {
	List(ctx context.Context, req dto.AwardListRequest, publishedOnly bool) (dto.AwardListResponse, error)
	Get(ctx context.Context, id uint, publishedOnly bool) (dto.AwardDetailResponse, error)
	Create(ctx context.Context, actor ActivityActor, payload dto.AwardCreateRequest) (dto.AwardResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, payload dto.AwardUpdateRequest) (dto.AwardResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	ListFields(ctx context.Context, awardID uint) ([]dto.FieldResponse, error)
	AddField(ctx context.Context, actor ActivityActor, awardID uint, payload dto.FieldCreateRequest) (dto.FieldResponse, error)
	UpdateField(ctx context.Context, actor ActivityActor, awardID uint, fieldID string, payload dto.FieldUpdateRequest) (dto.FieldResponse, error)
	DeleteField(ctx context.Context, actor ActivityActor, awardID uint, fieldID string) error
	ImportSchema(ctx context.Context, actor ActivityActor, awardID uint, document []byte) ([]dto.FieldResponse, error)
}

type awardService struct {
	awards    repository.AwardRepository
	fields    repository.FieldRepository
	schemas   SchemaStore
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
	strict    *bluemonday.Policy
	rich      *bluemonday.Policy
	importer  *jsonschema.Schema
	now       func() time.Time
}

// NewAwardService constructs the award service.
func NewAwardService(
	awards repository.AwardRepository,
	fields repository.FieldRepository,
	schemas SchemaStore,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) AwardService {
	return &awardService{
		awards:    awards,
		fields:    fields,
		schemas:   schemas,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "award_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/awards-portal-api/internal/service/award"),
		strict:    bluemonday.StrictPolicy(),
		rich:      bluemonday.UGCPolicy(),
		importer:  jsonschema.MustCompileString("schema_import.json", schemaImportDocument),
		now:       time.Now,
	}
}

func (s *awardService) List(ctx context.Context, req dto.AwardListRequest, publishedOnly bool) (dto.AwardListResponse, error) {
	filter := repository.AwardFilter{
		Search:        strings.TrimSpace(req.Search),
		PublishedOnly: publishedOnly,
		Page:          normalizePage(req.Page),
		PageSize:      clampPageSize(req.PageSize),
	}

	awards, total, err := s.awards.List(ctx, filter)
	if err != nil {
		return dto.AwardListResponse{}, err
	}

	now := s.now()
	items := make([]dto.AwardResponse, 0, len(awards))
	for _, award := range awards {
		items = append(items, dto.NewAwardResponse(award, now))
	}

	return dto.AwardListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *awardService) Get(ctx context.Context, id uint, publishedOnly bool) (dto.AwardDetailResponse, error) {
	award, err := s.loadAward(ctx, id)
	if err != nil {
		return dto.AwardDetailResponse{}, err
	}
	if publishedOnly && !award.Published {
		return dto.AwardDetailResponse{}, ErrAwardNotFound
	}

	descriptors, err := s.schemas.ListForAward(ctx, id)
	if err != nil {
		return dto.AwardDetailResponse{}, err
	}

	return dto.AwardDetailResponse{
		AwardResponse: dto.NewAwardResponse(award, s.now()),
		Fields:        dto.NewFieldResponses(descriptors),
	}, nil
}

func (s *awardService) Create(ctx context.Context, actor ActivityActor, payload dto.AwardCreateRequest) (dto.AwardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AwardResponse{}, err
	}

	award := models.Award{
		Title:       plainText(s.strict, payload.Title),
		Description: strings.TrimSpace(s.rich.Sanitize(payload.Description)),
		Amount:      payload.Amount,
		Deadline:    payload.Deadline,
		Published:   payload.Published,
		CreatedBy:   actor.ID,
	}
	if award.Title == "" {
		return dto.AwardResponse{}, fmt.Errorf("award title empty after sanitization")
	}

	if err := s.awards.Create(ctx, &award); err != nil {
		s.logger.Error().Err(err).Msg("failed to create award")
		return dto.AwardResponse{}, err
	}

	s.record(ctx, actor, "award.create", award.ID, map[string]interface{}{"title": award.Title})
	return dto.NewAwardResponse(award, s.now()), nil
}

func (s *awardService) Update(ctx context.Context, actor ActivityActor, id uint, payload dto.AwardUpdateRequest) (dto.AwardResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AwardResponse{}, err
	}

	award, err := s.loadAward(ctx, id)
	if err != nil {
		return dto.AwardResponse{}, err
	}

	changed := []string{}
	if payload.Title != nil {
		title := plainText(s.strict, *payload.Title)
		if title == "" {
			return dto.AwardResponse{}, fmt.Errorf("award title empty after sanitization")
		}
		award.Title = title
		changed = append(changed, "title")
	}
	if payload.Description != nil {
		award.Description = strings.TrimSpace(s.rich.Sanitize(*payload.Description))
		changed = append(changed, "description")
	}
	if payload.Amount != nil {
		award.Amount = *payload.Amount
		changed = append(changed, "amount")
	}
	if payload.ClearDeadline {
		award.Deadline = nil
		changed = append(changed, "deadline")
	} else if payload.Deadline != nil {
		award.Deadline = payload.Deadline
		changed = append(changed, "deadline")
	}
	if payload.Published != nil {
		award.Published = *payload.Published
		changed = append(changed, "published")
	}

	if err := s.awards.Update(ctx, &award); err != nil {
		s.logger.Error().Err(err).Uint("award_id", id).Msg("failed to update award")
		return dto.AwardResponse{}, err
	}

	s.record(ctx, actor, "award.update", award.ID, map[string]interface{}{"fields": changed})
	return dto.NewAwardResponse(award, s.now()), nil
}

func (s *awardService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if err := s.awards.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAwardNotFound
		}
		return err
	}

	s.schemas.Invalidate(ctx, id)
	s.record(ctx, actor, "award.delete", id, nil)
	return nil
}

func (s *awardService) ListFields(ctx context.Context, awardID uint) ([]dto.FieldResponse, error) {
	if _, err := s.loadAward(ctx, awardID); err != nil {
		return nil, err
	}

	descriptors, err := s.schemas.ListForAward(ctx, awardID)
	if err != nil {
		return nil, err
	}
	return dto.NewFieldResponses(descriptors), nil
}

func (s *awardService) AddField(ctx context.Context, actor ActivityActor, awardID uint, payload dto.FieldCreateRequest) (dto.FieldResponse, error) {
	ctx, span := s.tracer.Start(ctx, "awards.fields.add", trace.WithAttributes(
		attribute.Int("award.id", int(awardID)),
		attribute.String("field.archetype", payload.Archetype),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.FieldResponse{}, err
	}

	if _, err := s.loadAward(ctx, awardID); err != nil {
		span.RecordError(err)
		return dto.FieldResponse{}, err
	}

	archetype, ok := formschema.ParseArchetype(payload.Archetype)
	if !ok {
		return dto.FieldResponse{}, fmt.Errorf("unknown archetype %q: %w", payload.Archetype, formschema.ErrInvalidField)
	}

	existing, err := s.currentSchema(ctx, awardID)
	if err != nil {
		span.RecordError(err)
		return dto.FieldResponse{}, err
	}

	d := formschema.NewDescriptor(archetype, plainText(s.strict, payload.Label), s.now())
	if payload.Kind != "" {
		kind, _ := formschema.ParseKind(payload.Kind)
		d = formschema.SetKind(d, kind, payload.Essay || formschema.IsEssayAlias(payload.Kind))
	} else if payload.Essay {
		d = formschema.SetKind(d, d.Kind, true)
	}
	d.Required = payload.Required
	d.Description = strings.TrimSpace(payload.Description)
	d.Placeholder = strings.TrimSpace(payload.Placeholder)
	if prompt := strings.TrimSpace(payload.Prompt); prompt != "" {
		d.Prompt = prompt
	}
	if d.Kind == formschema.KindDropdown {
		d.Config.Options = trimOptions(payload.Options)
	}
	if payload.WordLimit != nil {
		d.Config.WordLimit = *payload.WordLimit
	}
	d.Position = len(existing)
	if payload.Position != nil {
		d.Position = *payload.Position
	}

	if err := formschema.CheckSchema(append(existing, d)); err != nil {
		span.SetStatus(codes.Error, "schema rejected")
		return dto.FieldResponse{}, err
	}

	row := models.NewFieldDescriptor(awardID, d)
	if err := s.fields.Create(ctx, &row); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.FieldResponse{}, err
	}

	s.schemas.Invalidate(ctx, awardID)
	s.record(ctx, actor, "field.create", awardID, map[string]interface{}{
		"field_id":   row.ID,
		"field_name": row.FieldName,
		"archetype":  row.Archetype,
	})

	span.SetStatus(codes.Ok, "created")
	return dto.NewFieldResponse(row.Descriptor()), nil
}

func (s *awardService) UpdateField(ctx context.Context, actor ActivityActor, awardID uint, fieldID string, payload dto.FieldUpdateRequest) (dto.FieldResponse, error) {
	ctx, span := s.tracer.Start(ctx, "awards.fields.update", trace.WithAttributes(
		attribute.Int("award.id", int(awardID)),
		attribute.String("field.id", fieldID),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.FieldResponse{}, err
	}

	row, err := s.loadField(ctx, awardID, fieldID)
	if err != nil {
		span.RecordError(err)
		return dto.FieldResponse{}, err
	}

	d := row.Descriptor()
	previousName := d.FieldName
	if payload.Label != nil {
		d = formschema.Relabel(d, plainText(s.strict, *payload.Label), s.now())
	}
	if payload.Kind != nil || payload.Essay != nil {
		kind := d.Kind
		if payload.Kind != nil {
			kind, _ = formschema.ParseKind(*payload.Kind)
		}
		essay := d.Essay
		if payload.Essay != nil {
			essay = *payload.Essay
		}
		if payload.Kind != nil && formschema.IsEssayAlias(*payload.Kind) {
			essay = true
		}
		d = formschema.SetKind(d, kind, essay)
	}
	if payload.Required != nil {
		d.Required = *payload.Required
	}
	if payload.Description != nil {
		d.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Placeholder != nil {
		d.Placeholder = strings.TrimSpace(*payload.Placeholder)
	}
	if payload.Prompt != nil {
		d.Prompt = strings.TrimSpace(*payload.Prompt)
	}
	if payload.Options != nil && d.Kind == formschema.KindDropdown {
		d.Config.Options = trimOptions(payload.Options)
	}
	if payload.WordLimit != nil {
		d.Config.WordLimit = *payload.WordLimit
	}
	if payload.Position != nil {
		d.Position = *payload.Position
	}

	existing, err := s.currentSchema(ctx, awardID)
	if err != nil {
		span.RecordError(err)
		return dto.FieldResponse{}, err
	}
	for i := range existing {
		if existing[i].ID == d.ID {
			existing[i] = d
		}
	}
	if err := formschema.CheckSchema(existing); err != nil {
		span.SetStatus(codes.Error, "schema rejected")
		return dto.FieldResponse{}, err
	}

	updated := models.NewFieldDescriptor(awardID, d)
	updated.CreatedAt = row.CreatedAt
	if err := s.fields.Update(ctx, &updated); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.FieldResponse{}, err
	}

	s.schemas.Invalidate(ctx, awardID)
	metadata := map[string]interface{}{"field_id": d.ID, "field_name": d.FieldName}
	if previousName != d.FieldName {
		metadata["previous_field_name"] = previousName
	}
	s.record(ctx, actor, "field.update", awardID, metadata)

	span.SetStatus(codes.Ok, "updated")
	return dto.NewFieldResponse(updated.Descriptor()), nil
}

// DeleteField removes the descriptor only. Answers already stored under its
// key stay in the application records.
func (s *awardService) DeleteField(ctx context.Context, actor ActivityActor, awardID uint, fieldID string) error {
	row, err := s.loadField(ctx, awardID, fieldID)
	if err != nil {
		return err
	}

	if err := s.fields.Delete(ctx, row.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFieldNotFound
		}
		return err
	}

	s.schemas.Invalidate(ctx, awardID)
	s.record(ctx, actor, "field.delete", awardID, map[string]interface{}{
		"field_id":   row.ID,
		"field_name": row.FieldName,
	})
	return nil
}

func (s *awardService) ImportSchema(ctx context.Context, actor ActivityActor, awardID uint, document []byte) ([]dto.FieldResponse, error) {
	ctx, span := s.tracer.Start(ctx, "awards.schema.import", trace.WithAttributes(
		attribute.Int("award.id", int(awardID)),
		attribute.Int("document.bytes", len(document)),
	))
	defer span.End()

	if _, err := s.loadAward(ctx, awardID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var raw interface{}
	decoder := json.NewDecoder(bytes.NewReader(document))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		span.SetStatus(codes.Error, "malformed document")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchemaDocument, err)
	}
	if err := s.importer.Validate(raw); err != nil {
		span.SetStatus(codes.Error, "document rejected")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchemaDocument, err)
	}

	var parsed dto.SchemaImportDocument
	if err := json.Unmarshal(document, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchemaDocument, err)
	}

	now := s.now()
	descriptors := make([]formschema.Descriptor, 0, len(parsed.Fields))
	for i, field := range parsed.Fields {
		descriptors = append(descriptors, s.importDescriptor(field, i, now))
	}

	if err := formschema.CheckSchema(descriptors); err != nil {
		span.SetStatus(codes.Error, "schema rejected")
		return nil, err
	}
	if err := s.claimFieldIDs(ctx, awardID, descriptors); err != nil {
		span.RecordError(err)
		return nil, err
	}

	rows := make([]models.FieldDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		rows = append(rows, models.NewFieldDescriptor(awardID, d))
	}
	if err := s.fields.ReplaceForAward(ctx, awardID, rows); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return nil, err
	}

	s.schemas.Invalidate(ctx, awardID)
	s.record(ctx, actor, "schema.import", awardID, map[string]interface{}{"fields": len(rows)})

	span.SetStatus(codes.Ok, "imported")
	return dto.NewFieldResponses(descriptors), nil
}

func (s *awardService) importDescriptor(field dto.SchemaImportField, position int, now time.Time) formschema.Descriptor {
	archetype := formschema.ArchetypeCustom
	switch {
	case field.Archetype != "":
		archetype, _ = formschema.ParseArchetype(field.Archetype)
	case field.Purpose != "":
		archetype, _ = formschema.ParseArchetype(field.Purpose)
	default:
		archetype = formschema.ResolveArchetype(field.Label)
	}

	d := formschema.NewDescriptor(archetype, plainText(s.strict, field.Label), now)
	if id := strings.TrimSpace(field.ID); id != "" {
		d.ID = id
	}
	if name := strings.TrimSpace(field.FieldName); name != "" && archetype == formschema.ArchetypeCustom {
		d.FieldName = name
	}
	if field.Kind != "" {
		kind, _ := formschema.ParseKind(field.Kind)
		d = formschema.SetKind(d, kind, field.Essay || formschema.IsEssayAlias(field.Kind))
	} else if field.Essay {
		d = formschema.SetKind(d, d.Kind, true)
	}

	d.Required = field.Required
	d.Description = strings.TrimSpace(field.Description)
	d.Placeholder = strings.TrimSpace(field.Placeholder)
	if prompt := strings.TrimSpace(field.Prompt); prompt != "" {
		d.Prompt = prompt
	}
	if d.Kind == formschema.KindDropdown {
		d.Config.Options = trimOptions(field.Options)
	}
	if field.WordLimit > 0 {
		d.Config.WordLimit = field.WordLimit
	}
	d.Position = position
	return d
}

// claimFieldIDs gives a fresh id to every imported descriptor whose id is
// already used by another award, so one document can seed several awards.
// Ids owned by this award are kept and keep their essay answers.
func (s *awardService) claimFieldIDs(ctx context.Context, awardID uint, descriptors []formschema.Descriptor) error {
	for i := range descriptors {
		row, err := s.fields.GetByID(ctx, descriptors[i].ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			continue
		case err != nil:
			return err
		}
		if row.AwardID != awardID {
			descriptors[i].ID = uuid.NewString()
		}
	}
	return nil
}

func (s *awardService) currentSchema(ctx context.Context, awardID uint) ([]formschema.Descriptor, error) {
	rows, err := s.fields.ListForAward(ctx, awardID)
	if err != nil {
		return nil, err
	}
	return models.Descriptors(rows), nil
}

func (s *awardService) loadAward(ctx context.Context, id uint) (models.Award, error) {
	award, err := s.awards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Award{}, ErrAwardNotFound
		}
		return models.Award{}, err
	}
	return award, nil
}

func (s *awardService) loadField(ctx context.Context, awardID uint, fieldID string) (models.FieldDescriptor, error) {
	row, err := s.fields.GetByID(ctx, fieldID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FieldDescriptor{}, ErrFieldNotFound
		}
		return models.FieldDescriptor{}, err
	}
	if row.AwardID != awardID {
		return models.FieldDescriptor{}, ErrFieldNotFound
	}
	return row, nil
}

func (s *awardService) record(ctx context.Context, actor ActivityActor, action string, awardID uint, metadata map[string]interface{}) {
	entityID := awardID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "award",
		EntityID:   &entityID,
		Metadata:   metadata,
	})
}

// plainText strips markup and leaves the text unescaped.
func plainText(policy *bluemonday.Policy, value string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(value)))
}

func trimOptions(options []string) []string {
	if len(options) == 0 {
		return nil
	}
	trimmed := make([]string, 0, len(options))
	for _, option := range options {
		if value := strings.TrimSpace(option); value != "" {
			trimmed = append(trimmed, value)
		}
	}
	return trimmed
}
