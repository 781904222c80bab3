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

// ApplicationHandler serves the student application form.
type ApplicationHandler struct {
	service service.ApplicationService
	logger  zerolog.Logger
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service service.ApplicationService, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service: service,
		logger:  logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register wires the student routes. submitGuards run before the submit
// endpoint only.
func (h *ApplicationHandler) Register(router fiber.Router, submitGuards ...fiber.Handler) {
	router.Get("/applications", h.listMine)
	router.Post("/applications/word-count", h.wordCount)
	router.Get("/awards/:id/application", h.form)
	router.Put("/awards/:id/application", h.saveDraft)
	router.Post("/awards/:id/application/evaluate", h.evaluate)

	submit := append(append([]fiber.Handler{}, submitGuards...), h.submit)
	router.Post("/awards/:id/application/submit", submit...)
}

func (h *ApplicationHandler) form(c *fiber.Ctx) error {
	awardID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	form, err := h.service.GetForm(c.UserContext(), awardID, userIDFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to load application form")
	}

	return utils.SendSuccess(c, "application form retrieved", form)
}

func (h *ApplicationHandler) saveDraft(c *fiber.Ctx) error {
	awardID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	application, err := h.service.SaveDraft(c.UserContext(), awardID, userIDFromContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to save application")
	}

	return utils.SendSuccess(c, "application saved", application)
}

func (h *ApplicationHandler) submit(c *fiber.Ctx) error {
	awardID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Submit(c.UserContext(), awardID, userIDFromContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to submit application")
	}

	return utils.SendSuccess(c, "application submitted", result)
}

func (h *ApplicationHandler) evaluate(c *fiber.Ctx) error {
	awardID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.service.Evaluate(c.UserContext(), awardID, payload)
	if err != nil {
		return h.fail(c, err, "failed to evaluate application")
	}

	return utils.SendSuccess(c, "application evaluated", evaluation)
}

func (h *ApplicationHandler) wordCount(c *fiber.Ctx) error {
	var payload dto.WordCountRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.WordCount(payload)
	if err != nil {
		return h.fail(c, err, "failed to count words")
	}

	return utils.SendSuccess(c, "word count computed", result)
}

func (h *ApplicationHandler) listMine(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page parameter")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size parameter")
	}

	result, err := h.service.ListMine(c.UserContext(), userIDFromContext(c), dto.ApplicationListRequest{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		return h.fail(c, err, "failed to list applications")
	}

	return utils.OK(c, result.Items, "applications retrieved", result.Pagination)
}

func (h *ApplicationHandler) fail(c *fiber.Ctx, err error, message string) error {
	var incomplete *service.IncompleteApplicationError
	switch {
	case errors.As(err, &incomplete):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "application incomplete", dto.NewEvaluationResponse(incomplete.Evaluation))
	case errors.Is(err, service.ErrAwardNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "award not found")
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrAwardClosed), errors.Is(err, service.ErrApplicationLocked):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
