package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/service"
	"github.com/noah-isme/awards-portal-api/internal/utils"
)

// UploadHandler accepts the documents students attach to file fields.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
	router.Get("", h.listMine)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	var req dto.UploadRequest
	if raw := strings.TrimSpace(c.FormValue("award_id")); raw != "" {
		id, err := parseUintValue(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid award_id")
		}
		req.AwardID = &id
	}
	req.FieldName = strings.TrimSpace(c.FormValue("field_name"))

	var userID *uint
	if id := userIDFromContext(c); id > 0 {
		userID = &id
	}

	result, err := h.service.Upload(c.UserContext(), file, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUploadTypeNotAllowed),
			errors.Is(err, service.ErrUploadScanFailed),
			errors.Is(err, service.ErrUploadFieldUnknown):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("upload failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "upload failed")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "upload successful", result)
}

func (h *UploadHandler) listMine(c *fiber.Ctx) error {
	awardID, err := parseQueryUint(c, "award_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid award_id")
	}

	uploads, err := h.service.ListMine(c.UserContext(), userIDFromContext(c), awardID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list uploads")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list uploads")
	}

	return utils.SendSuccess(c, "uploads retrieved", uploads)
}
