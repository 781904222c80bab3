package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/handler"
	"github.com/noah-isme/awards-portal-api/internal/service"
)

func compileContract(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + path)
	require.NoError(t, err)
	return schema
}

func validateContract(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestAwardListContract(t *testing.T) {
	schema := compileContract(t, "award_list.schema.json")

	deadline := time.Now().Add(72 * time.Hour).UTC()
	award := sampleAward()
	award.Deadline = &deadline
	award.Amount = 1500
	award.CreatedAt = time.Now().UTC()
	award.UpdatedAt = award.CreatedAt

	app := newAwardApp(&stubAwardService{award: award})
	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/awards", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	validateContract(t, schema, resp)
}

func TestIncompleteSubmissionContract(t *testing.T) {
	schema := compileContract(t, "application_incomplete.schema.json")

	svc := &stubApplicationService{err: &service.IncompleteApplicationError{Evaluation: formschema.Evaluation{
		RequiredTotal:  3,
		RequiredFilled: 1,
		Violations: []formschema.Violation{
			{FieldID: "f-1", FieldName: "resume", Label: "Resume", Reason: formschema.ReasonMissing},
			{FieldID: "f-2", FieldName: "goals", Label: "Goals", Reason: formschema.ReasonWordLimitExceeded, WordCount: 320, WordLimit: 300},
		},
	}}}
	app := newApplicationApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/student/awards/3/application/submit", map[string]interface{}{}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	validateContract(t, schema, resp)
}

func TestAwardStatsContract(t *testing.T) {
	schema := compileContract(t, "award_stats.schema.json")

	svc := &stubReviewService{stats: dto.AwardStatsResponse{
		AwardID:     3,
		Total:       5,
		ByStatus:    map[string]int64{"submitted": 3, "under_review": 2},
		Shortlisted: 1,
		GeneratedAt: time.Now().UTC(),
	}}
	app := fiber.New()
	handler.NewReviewHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/review"))

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/review/awards/3/stats", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	validateContract(t, schema, resp)
}
