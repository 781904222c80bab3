package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/service"
	"github.com/noah-isme/awards-portal-api/internal/utils"
)

// AwardHandler exposes award browsing and award schema administration.
type AwardHandler struct {
	service service.AwardService
	logger  zerolog.Logger
}

// NewAwardHandler constructs the handler.
func NewAwardHandler(service service.AwardService, logger zerolog.Logger) *AwardHandler {
	return &AwardHandler{
		service: service,
		logger:  logger.With().Str("component", "award_handler").Logger(),
	}
}

// RegisterPublic attaches the read-only award routes shown to applicants.
func (h *AwardHandler) RegisterPublic(router fiber.Router) {
	router.Get("", h.listPublished)
	router.Get("/:id", h.getPublished)
}

// RegisterAdmin attaches award and field management routes.
func (h *AwardHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.listAll)
	router.Post("", h.create)
	router.Get("/:id", h.getAny)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Get("/:id/fields", h.listFields)
	router.Post("/:id/fields", h.addField)
	router.Patch("/:id/fields/:fieldId", h.updateField)
	router.Delete("/:id/fields/:fieldId", h.deleteField)
	router.Post("/:id/schema/import", h.importSchema)
}

func (h *AwardHandler) listPublished(c *fiber.Ctx) error {
	return h.list(c, true)
}

func (h *AwardHandler) listAll(c *fiber.Ctx) error {
	return h.list(c, false)
}

func (h *AwardHandler) list(c *fiber.Ctx, publishedOnly bool) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page parameter")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size parameter")
	}

	result, err := h.service.List(c.UserContext(), dto.AwardListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	}, publishedOnly)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list awards")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list awards")
	}

	return utils.OK(c, result.Items, "awards retrieved", result.Pagination)
}

func (h *AwardHandler) getPublished(c *fiber.Ctx) error {
	return h.get(c, true)
}

func (h *AwardHandler) getAny(c *fiber.Ctx) error {
	return h.get(c, false)
}

func (h *AwardHandler) get(c *fiber.Ctx, publishedOnly bool) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	award, err := h.service.Get(c.UserContext(), id, publishedOnly)
	if err != nil {
		return h.fail(c, err, "failed to fetch award")
	}

	return utils.SendSuccess(c, "award retrieved", award)
}

func (h *AwardHandler) create(c *fiber.Ctx) error {
	var payload dto.AwardCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	award, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to create award")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "award created", award)
}

func (h *AwardHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AwardUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	award, err := h.service.Update(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update award")
	}

	return utils.SendSuccess(c, "award updated", award)
}

func (h *AwardHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return h.fail(c, err, "failed to delete award")
	}

	return utils.SendSuccess(c, "award deleted", fiber.Map{"id": id})
}

func (h *AwardHandler) listFields(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fields, err := h.service.ListFields(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to list fields")
	}

	return utils.SendSuccess(c, "fields retrieved", fields)
}

func (h *AwardHandler) addField(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FieldCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	field, err := h.service.AddField(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to add field")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "field created", field)
}

func (h *AwardHandler) updateField(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FieldUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	field, err := h.service.UpdateField(c.UserContext(), activityActorFromContext(c), id, c.Params("fieldId"), payload)
	if err != nil {
		return h.fail(c, err, "failed to update field")
	}

	return utils.SendSuccess(c, "field updated", field)
}

func (h *AwardHandler) deleteField(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fieldID := c.Params("fieldId")
	if err := h.service.DeleteField(c.UserContext(), activityActorFromContext(c), id, fieldID); err != nil {
		return h.fail(c, err, "failed to delete field")
	}

	return utils.SendSuccess(c, "field deleted", fiber.Map{"id": fieldID})
}

func (h *AwardHandler) importSchema(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "schema document is required")
	}

	fields, err := h.service.ImportSchema(c.UserContext(), activityActorFromContext(c), id, body)
	if err != nil {
		return h.fail(c, err, "failed to import schema")
	}

	return utils.SendSuccess(c, "schema imported", fields)
}

func (h *AwardHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrAwardNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "award not found")
	case errors.Is(err, service.ErrFieldNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "field not found")
	case errors.Is(err, formschema.ErrDuplicateFieldName):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, formschema.ErrInvalidField), errors.Is(err, service.ErrInvalidSchemaDocument):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
