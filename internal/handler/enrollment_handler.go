package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// EnrollmentHandler wires course roster endpoints.
type EnrollmentHandler struct {
	service service.EnrollmentService
	logger  zerolog.Logger
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service service.EnrollmentService, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Register attaches enrollment routes to the courses group.
func (h *EnrollmentHandler) Register(router fiber.Router) {
	authenticated := middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}

	router.Post("/:courseId/enroll", middleware.WithAuth(h.enroll, authenticated))
	router.Delete("/:courseId/enroll", middleware.WithAuth(h.unenroll, authenticated))
	router.Delete("/:courseId/students/:studentId", middleware.WithAuth(h.removeStudent, middleware.AuthOptions{Role: middleware.AuthRoleTeacher}))
}

func (h *EnrollmentHandler) enroll(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EnrollmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	actor := actorFromContext(c)
	record, err := h.service.Enroll(c.UserContext(), courseID, actor.ID, payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrolled", record)
}

func (h *EnrollmentHandler) unenroll(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromContext(c)
	if err := h.service.Unenroll(c.UserContext(), courseID, actor.ID); err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "unenrolled", fiber.Map{"course_id": courseID})
}

func (h *EnrollmentHandler) removeStudent(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.RemoveStudent(c.UserContext(), actorFromContext(c), courseID, studentID); err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "student removed", fiber.Map{"course_id": courseID, "student_id": studentID})
}
