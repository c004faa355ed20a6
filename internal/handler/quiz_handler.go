package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// QuizHandler wires quiz and quiz attempt routes.
type QuizHandler struct {
	service service.QuizService
	logger  zerolog.Logger
}

// NewQuizHandler constructs the quiz handler.
func NewQuizHandler(service service.QuizService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches quiz endpoints to the router group.
func (h *QuizHandler) Register(router fiber.Router) {
	teacher := middleware.AuthOptions{Role: middleware.AuthRoleTeacher}
	authenticated := middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}

	router.Post("", middleware.WithAuth(h.create, teacher))
	router.Delete("/:id", middleware.WithAuth(h.delete, teacher))
	router.Post("/:id/attempts", middleware.WithAuth(h.saveAttempt, authenticated))
	router.Get("/:id/attempts/me", middleware.WithAuth(h.getAttempt, authenticated))
}

func (h *QuizHandler) create(c *fiber.Ctx) error {
	var payload dto.QuizCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz created", quiz)
}

func (h *QuizHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "quiz deleted", fiber.Map{"id": id})
}

func (h *QuizHandler) saveAttempt(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizAttemptRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.QuizID = quizID

	actor := actorFromContext(c)
	if payload.UserID == 0 || !isStaff(actor) {
		payload.UserID = actor.ID
	}

	attempt, err := h.service.SaveAttempt(c.UserContext(), payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "quiz attempt saved", attempt)
}

func (h *QuizHandler) getAttempt(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID, err := targetUser(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	attempt, err := h.service.GetAttempt(c.UserContext(), userID, quizID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "quiz attempt retrieved", attempt)
}
