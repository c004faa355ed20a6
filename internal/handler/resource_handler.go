package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// ResourceHandler manages chapter resources. Routes are expected behind a teacher guard.
type ResourceHandler struct {
	service service.ResourceService
	logger  zerolog.Logger
}

func NewResourceHandler(service service.ResourceService, logger zerolog.Logger) *ResourceHandler {
	return &ResourceHandler{
		service: service,
		logger:  logger.With().Str("component", "resource_handler").Logger(),
	}
}

func (h *ResourceHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Delete("/:id", h.delete)
}

func (h *ResourceHandler) create(c *fiber.Ctx) error {
	var payload dto.ResourceCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resource, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "resource created", resource)
}

func (h *ResourceHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "resource deleted", fiber.Map{"id": id})
}
