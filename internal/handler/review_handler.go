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

// ReviewHandler exposes the committee review endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches review routes to the router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("/awards/:id/applications", h.listApplications)
	router.Get("/awards/:id/stats", h.stats)
	router.Get("/applications/:id", h.getApplication)
	router.Post("/applications/:id/decision", h.decide)
	router.Get("/applications/:id/decisions", h.listDecisions)
	router.Patch("/applications/:id/status", h.setStatus)
}

func (h *ReviewHandler) listApplications(c *fiber.Ctx) error {
	awardID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page parameter")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size parameter")
	}

	result, err := h.service.ListApplications(c.UserContext(), awardID, dto.ReviewApplicationListRequest{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		return h.fail(c, err, "failed to list applications")
	}

	return utils.OK(c, fiber.Map{"items": result.Items, "fields": result.Fields}, "applications retrieved", result.Pagination)
}

func (h *ReviewHandler) getApplication(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.GetApplication(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to fetch application")
	}

	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *ReviewHandler) decide(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReviewDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	decision, err := h.service.Decide(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to record decision")
	}

	return utils.SendSuccess(c, "decision recorded", decision)
}

func (h *ReviewHandler) listDecisions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	decisions, err := h.service.ListDecisions(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to list decisions")
	}

	return utils.SendSuccess(c, "decisions retrieved", decisions)
}

func (h *ReviewHandler) setStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	application, err := h.service.SetStatus(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update status")
	}

	return utils.SendSuccess(c, "status updated", application)
}

func (h *ReviewHandler) stats(c *fiber.Ctx) error {
	awardID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.service.Stats(c.UserContext(), awardID)
	if err != nil {
		return h.fail(c, err, "failed to compute statistics")
	}

	return utils.SendSuccess(c, "statistics retrieved", stats)
}

func (h *ReviewHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrAwardNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "award not found")
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrApplicationNotSubmitted):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
