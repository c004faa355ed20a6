package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// NotificationHandler exposes the authenticated user's notification inbox.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register attaches notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	authenticated := middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}

	router.Get("", middleware.WithAuth(h.list, authenticated))
	router.Patch("/:id/read", middleware.WithAuth(h.markRead, authenticated))
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	limit, offset, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	notifications, err := h.service.List(c.UserContext(), actorFromContext(c).ID, limit, offset)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.OK(c, notifications, "notifications retrieved", fiber.Map{"limit": limit, "offset": offset})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	notification, err := h.service.MarkRead(c.UserContext(), id, actorFromContext(c).ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "notification marked as read", notification)
}
