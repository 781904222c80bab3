package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/handler"
	"github.com/noah-isme/awards-portal-api/internal/service"
)

type stubReviewService struct {
	actor     service.ActivityActor
	decision  dto.ReviewDecisionRequest
	status    dto.ApplicationStatusRequest
	listReq   dto.ReviewApplicationListRequest
	decisions []dto.ReviewDecisionResponse
	stats     dto.AwardStatsResponse
	err       error
}

func (s *stubReviewService) ListApplications(_ context.Context, awardID uint, req dto.ReviewApplicationListRequest) (dto.ReviewApplicationListResponse, error) {
	s.listReq = req
	return dto.ReviewApplicationListResponse{
		Items:      []dto.ApplicationResponse{{ID: 1, AwardID: awardID, Status: "submitted"}},
		Fields:     []dto.FieldResponse{},
		Pagination: dto.NewPaginationMeta(1, 20, 1),
	}, s.err
}

func (s *stubReviewService) GetApplication(_ context.Context, id uint) (dto.ApplicationResponse, error) {
	return dto.ApplicationResponse{ID: id}, s.err
}

func (s *stubReviewService) Decide(_ context.Context, actor service.ActivityActor, id uint, payload dto.ReviewDecisionRequest) (dto.ReviewDecisionResponse, error) {
	s.actor, s.decision = actor, payload
	if s.err != nil {
		return dto.ReviewDecisionResponse{}, s.err
	}
	return dto.ReviewDecisionResponse{ApplicationID: id, ReviewerID: actor.ID, Shortlisted: *payload.Shortlisted, Comments: payload.Comments}, nil
}

func (s *stubReviewService) ListDecisions(context.Context, uint) ([]dto.ReviewDecisionResponse, error) {
	return s.decisions, s.err
}

func (s *stubReviewService) SetStatus(_ context.Context, actor service.ActivityActor, id uint, payload dto.ApplicationStatusRequest) (dto.ApplicationResponse, error) {
	s.actor, s.status = actor, payload
	return dto.ApplicationResponse{ID: id, Status: payload.Status}, s.err
}

func (s *stubReviewService) Stats(context.Context, uint) (dto.AwardStatsResponse, error) {
	return s.stats, s.err
}

func newReviewApp(svc *stubReviewService) *fiber.App {
	app := newTestApp(9, "reviewer")
	handler.NewReviewHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/review"))
	return app
}

func TestReviewHandlerListApplications(t *testing.T) {
	svc := &stubReviewService{}
	app := newReviewApp(svc)

	resp, body := perform(t, app, jsonRequest(t, http.MethodGet, "/api/v1/review/awards/3/applications?status=submitted&page_size=10", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "submitted", svc.listReq.Status)
	require.Equal(t, 10, svc.listReq.PageSize)

	var data struct {
		Items  []dto.ApplicationResponse `json:"items"`
		Fields []dto.FieldResponse       `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Items, 1)
	require.Equal(t, uint(3), data.Items[0].AwardID)
}

func TestReviewHandlerDecideRecordsReviewer(t *testing.T) {
	svc := &stubReviewService{}
	app := newReviewApp(svc)

	resp, body := perform(t, app, jsonRequest(t, http.MethodPost, "/api/v1/review/applications/5/decision", map[string]interface{}{
		"shortlisted": true,
		"comments":    "Strong essay",
	}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(9), svc.actor.ID)
	require.Equal(t, "reviewer", svc.actor.Role)
	require.NotNil(t, svc.decision.Shortlisted)
	require.True(t, *svc.decision.Shortlisted)

	var decision dto.ReviewDecisionResponse
	require.NoError(t, json.Unmarshal(body.Data, &decision))
	require.Equal(t, uint(5), decision.ApplicationID)
	require.Equal(t, "Strong essay", decision.Comments)
}

func TestReviewHandlerDecideOnDraftConflicts(t *testing.T) {
	app := newReviewApp(&stubReviewService{err: service.ErrApplicationNotSubmitted})

	resp, body := perform(t, app, jsonRequest(t, http.MethodPost, "/api/v1/review/applications/5/decision", map[string]interface{}{"shortlisted": false}))
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, service.ErrApplicationNotSubmitted.Error(), body.Message)
}

func TestReviewHandlerSetStatus(t *testing.T) {
	svc := &stubReviewService{}
	app := newReviewApp(svc)

	resp, _ := perform(t, app, jsonRequest(t, http.MethodPatch, "/api/v1/review/applications/5/status", map[string]interface{}{"status": "approved"}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "approved", svc.status.Status)
}

func TestReviewHandlerSetStatusValidationDetails(t *testing.T) {
	validate := testValidator()
	err := validate.Struct(dto.ApplicationStatusRequest{Status: "archived"})
	require.Error(t, err)

	app := newReviewApp(&stubReviewService{err: err})
	resp, body := perform(t, app, jsonRequest(t, http.MethodPatch, "/api/v1/review/applications/5/status", map[string]interface{}{"status": "archived"}))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var details []map[string]string
	require.NoError(t, json.Unmarshal(body.Details, &details))
	require.Equal(t, []map[string]string{{"field": "Status", "rule": "oneof"}}, details)
}

func TestReviewHandlerMissingApplication(t *testing.T) {
	app := newReviewApp(&stubReviewService{err: service.ErrApplicationNotFound})

	resp, _ := perform(t, app, jsonRequest(t, http.MethodGet, "/api/v1/review/applications/77", nil))
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestReviewHandlerStats(t *testing.T) {
	svc := &stubReviewService{stats: dto.AwardStatsResponse{AwardID: 3, Total: 4, ByStatus: map[string]int64{"submitted": 3, "draft": 1}, Shortlisted: 2}}
	app := newReviewApp(svc)

	resp, body := perform(t, app, jsonRequest(t, http.MethodGet, "/api/v1/review/awards/3/stats", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats dto.AwardStatsResponse
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	require.Equal(t, int64(2), stats.Shortlisted)
	require.Equal(t, int64(3), stats.ByStatus["submitted"])
}
