package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/handler"
	"github.com/noah-isme/awards-portal-api/internal/service"
)

type mockUploadService struct {
	lastUserID  *uint
	lastRequest dto.UploadRequest
	listAwardID *uint
	response    dto.UploadResponse
	err         error
}

func (m *mockUploadService) Upload(_ context.Context, file *multipart.FileHeader, userID *uint, req dto.UploadRequest) (dto.UploadResponse, error) {
	if file != nil {
		if _, err := file.Open(); err != nil {
			return dto.UploadResponse{}, err
		}
	}
	m.lastUserID = userID
	m.lastRequest = req
	if m.err != nil {
		return dto.UploadResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockUploadService) ListMine(_ context.Context, _ uint, awardID *uint) ([]dto.UploadResponse, error) {
	m.listAwardID = awardID
	return []dto.UploadResponse{m.response}, m.err
}

func newUploadApp(svc *mockUploadService) *fiber.App {
	app := newTestApp(7, "student")
	handler.NewUploadHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/uploads"))
	return app
}

func multipartRequest(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if withFile {
		part, err := writer.CreateFormFile("file", "resume.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandler_Success(t *testing.T) {
	svc := &mockUploadService{response: dto.UploadResponse{URL: "https://cdn.example.com/resume.pdf", SizeBytes: 8, MimeType: "application/pdf", FileName: "resume.pdf"}}
	app := newUploadApp(svc)

	resp, body := perform(t, app, multipartRequest(t, map[string]string{"award_id": "3", "field_name": "resume"}, true))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "upload successful", body.Message)
	require.NotNil(t, svc.lastUserID)
	require.Equal(t, uint(7), *svc.lastUserID)
	require.NotNil(t, svc.lastRequest.AwardID)
	require.Equal(t, uint(3), *svc.lastRequest.AwardID)
	require.Equal(t, "resume", svc.lastRequest.FieldName)

	var data dto.UploadResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, svc.response.URL, data.URL)
}

func TestUploadHandler_MissingFile(t *testing.T) {
	app := newUploadApp(&mockUploadService{})

	resp, body := perform(t, app, multipartRequest(t, nil, false))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "file is required", body.Message)
}

func TestUploadHandler_InvalidAwardID(t *testing.T) {
	app := newUploadApp(&mockUploadService{})

	resp, _ := perform(t, app, multipartRequest(t, map[string]string{"award_id": "x"}, true))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUploadHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"too large", service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge},
		{"wrong type", service.ErrUploadTypeNotAllowed, fiber.StatusBadRequest},
		{"scan", service.ErrUploadScanFailed, fiber.StatusBadRequest},
		{"unknown field", service.ErrUploadFieldUnknown, fiber.StatusBadRequest},
		{"storage", errors.New("cloud unavailable"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newUploadApp(&mockUploadService{err: tc.err})
			resp, body := perform(t, app, multipartRequest(t, nil, true))
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, body.Success)
		})
	}
}

func TestUploadHandler_ListMineFiltersByAward(t *testing.T) {
	svc := &mockUploadService{response: dto.UploadResponse{ID: 1}}
	app := newUploadApp(svc)

	resp, _ := perform(t, app, jsonRequest(t, http.MethodGet, "/api/v1/uploads?award_id=4", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.listAwardID)
	require.Equal(t, uint(4), *svc.listAwardID)
}
