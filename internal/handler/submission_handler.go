package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// SubmissionHandler handles assignment hand-ins and grading.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the submission handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// RegisterAssignmentRoutes attaches the routes nested under /assignments.
func (h *SubmissionHandler) RegisterAssignmentRoutes(router fiber.Router) {
	router.Post("/:id/submissions", middleware.WithAuth(h.submit, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/:id/submissions", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.AuthRoleTeacher}))
}

// Register attaches the /submissions routes.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Patch("/:id/grade", middleware.WithAuth(h.grade, middleware.AuthOptions{Role: middleware.AuthRoleTeacher}))
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.AssignmentID = assignmentID
	payload.StudentID = actorFromContext(c).ID

	submission, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.ListByAssignment(c.UserContext(), assignmentID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Grade(c.UserContext(), id, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}
