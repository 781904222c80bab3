package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/models"
	"github.com/noah-isme/awards-portal-api/internal/repository"
)

type reviewFixture struct {
	service   ReviewService
	apps      repository.ApplicationRepository
	events    *recordingPublisher
	activity  *memoryActivityRecorder
	redis     *miniredis.Miniredis
	award     models.Award
	submitted models.ApplicationRecord
	draft     models.ApplicationRecord
}

var reviewerActor = ActivityActor{ID: 21, Role: "reviewer"}

func newReviewFixture(t *testing.T) reviewFixture {
	t.Helper()
	db := setupServiceDB(t)
	server, client := setupRedis(t)
	ctx := context.Background()

	award := models.Award{Title: "Leadership Award", Published: true, CreatedBy: 1}
	require.NoError(t, db.Create(&award).Error)

	fields := repository.NewFieldRepository(db)
	transcript := formschema.NewDescriptor(formschema.ArchetypeCustom, "Transcript", time.Now())
	transcript = formschema.SetKind(transcript, formschema.KindFile, false)
	row := models.NewFieldDescriptor(award.ID, transcript)
	require.NoError(t, fields.Create(ctx, &row))

	apps := repository.NewApplicationRepository(db)
	submittedAt := time.Now().UTC()
	submitted := models.ApplicationRecord{AwardID: award.ID, StudentID: 1, Status: models.ApplicationStatusSubmitted, SubmittedAt: &submittedAt}
	submitted.ReplaceContent(formschema.Stored{Fields: map[string]string{"first_name": "Ada", "transcript_url": "https://cdn.example.com/t.pdf"}})
	require.NoError(t, apps.Create(ctx, &submitted))

	draft := models.ApplicationRecord{AwardID: award.ID, StudentID: 2, Status: models.ApplicationStatusDraft}
	require.NoError(t, apps.Create(ctx, &draft))

	events := &recordingPublisher{}
	activity := &memoryActivityRecorder{}
	svc := NewReviewService(ReviewServiceDeps{
		Awards:       repository.NewAwardRepository(db),
		Applications: apps,
		Reviews:      repository.NewReviewRepository(db),
		Schemas:      NewSchemaStore(fields, client, time.Minute, testLogger()),
		Events:       events,
		Activity:     activity,
		Cache:        client,
		StatsTTL:     time.Minute,
		Validator:    testValidator(),
	}, testLogger())

	return reviewFixture{
		service:   svc,
		apps:      apps,
		events:    events,
		activity:  activity,
		redis:     server,
		award:     award,
		submitted: submitted,
		draft:     draft,
	}
}

func TestReviewServiceListApplicationsInverseMaps(t *testing.T) {
	fx := newReviewFixture(t)

	result, err := fx.service.ListApplications(context.Background(), fx.award.ID, dto.ReviewApplicationListRequest{Status: models.ApplicationStatusSubmitted})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Len(t, result.Fields, 1)
	require.Equal(t, map[string]string{"transcript": "https://cdn.example.com/t.pdf"}, result.Items[0].Answers.Files)
	require.Equal(t, map[string]string{"first_name": "Ada"}, result.Items[0].Answers.Values)

	_, err = fx.service.ListApplications(context.Background(), 999, dto.ReviewApplicationListRequest{})
	require.ErrorIs(t, err, ErrAwardNotFound)
}

func TestReviewServiceDecideUpsertsAndStartsReview(t *testing.T) {
	fx := newReviewFixture(t)
	ctx := context.Background()

	first, err := fx.service.Decide(ctx, reviewerActor, fx.submitted.ID, dto.ReviewDecisionRequest{Shortlisted: ptrBool(false), Comments: "Needs <b>more</b> detail"})
	require.NoError(t, err)
	require.False(t, first.Shortlisted)
	require.Equal(t, "Needs more detail", first.Comments)

	second, err := fx.service.Decide(ctx, reviewerActor, fx.submitted.ID, dto.ReviewDecisionRequest{Shortlisted: ptrBool(true), Comments: "Strong"})
	require.NoError(t, err)
	require.True(t, second.Shortlisted)
	require.Equal(t, first.ID, second.ID)

	decisions, err := fx.service.ListDecisions(ctx, fx.submitted.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	record, err := fx.apps.GetByID(ctx, fx.submitted.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusUnderReview, record.Status)

	require.Equal(t, []string{SubjectReviewDecided, SubjectReviewDecided}, fx.events.subjects())
	require.Equal(t, []string{"review.decide", "review.decide"}, fx.activity.actions())
}

func TestReviewServiceDecideRejectsDraftsAndBadPayloads(t *testing.T) {
	fx := newReviewFixture(t)
	ctx := context.Background()

	_, err := fx.service.Decide(ctx, reviewerActor, fx.draft.ID, dto.ReviewDecisionRequest{Shortlisted: ptrBool(true)})
	require.ErrorIs(t, err, ErrApplicationNotSubmitted)

	_, err = fx.service.Decide(ctx, reviewerActor, fx.submitted.ID, dto.ReviewDecisionRequest{})
	require.Error(t, err)

	_, err = fx.service.Decide(ctx, reviewerActor, 999, dto.ReviewDecisionRequest{Shortlisted: ptrBool(true)})
	require.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestReviewServiceSetStatusAllowsAnyTransition(t *testing.T) {
	fx := newReviewFixture(t)
	ctx := context.Background()

	updated, err := fx.service.SetStatus(ctx, reviewerActor, fx.submitted.ID, dto.ApplicationStatusRequest{Status: models.ApplicationStatusApproved})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusApproved, updated.Status)

	reverted, err := fx.service.SetStatus(ctx, reviewerActor, fx.submitted.ID, dto.ApplicationStatusRequest{Status: models.ApplicationStatusDraft})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusDraft, reverted.Status)

	_, err = fx.service.SetStatus(ctx, reviewerActor, fx.submitted.ID, dto.ApplicationStatusRequest{Status: "archived"})
	require.Error(t, err)

	_, err = fx.service.SetStatus(ctx, reviewerActor, 999, dto.ApplicationStatusRequest{Status: models.ApplicationStatusApproved})
	require.ErrorIs(t, err, ErrApplicationNotFound)

	event := fx.events.events[0].event.(ApplicationStatusEvent)
	require.Equal(t, models.ApplicationStatusSubmitted, event.From)
	require.Equal(t, models.ApplicationStatusApproved, event.To)
}

func TestReviewServiceStatsCachedAndInvalidated(t *testing.T) {
	fx := newReviewFixture(t)
	ctx := context.Background()

	stats, err := fx.service.Stats(ctx, fx.award.ID)
	require.NoError(t, err)
	require.False(t, stats.CacheHit)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.ByStatus[models.ApplicationStatusSubmitted])
	require.Equal(t, int64(1), stats.ByStatus[models.ApplicationStatusDraft])
	require.Equal(t, int64(0), stats.ByStatus[models.ApplicationStatusApproved])
	require.Zero(t, stats.Shortlisted)

	cached, err := fx.service.Stats(ctx, fx.award.ID)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)

	_, err = fx.service.Decide(ctx, reviewerActor, fx.submitted.ID, dto.ReviewDecisionRequest{Shortlisted: ptrBool(true)})
	require.NoError(t, err)
	require.False(t, fx.redis.Exists(statsCacheKey(fx.award.ID)))

	fresh, err := fx.service.Stats(ctx, fx.award.ID)
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.Equal(t, int64(1), fresh.Shortlisted)
	require.Equal(t, int64(1), fresh.ByStatus[models.ApplicationStatusUnderReview])

	_, err = fx.service.Stats(ctx, 999)
	require.ErrorIs(t, err, ErrAwardNotFound)
}
