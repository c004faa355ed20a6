package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// ProgressHandler exposes progress tracking endpoints.
type ProgressHandler struct {
	service   service.ProgressService
	recompute service.RecomputeOrchestrator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProgressHandler constructs the progress handler.
func NewProgressHandler(service service.ProgressService, recompute service.RecomputeOrchestrator, validator *validator.Validate, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service:   service,
		recompute: recompute,
		validator: validator,
		logger:    logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register attaches progress routes. eventGuards run in front of the event endpoint, typically a rate limiter.
func (h *ProgressHandler) Register(router fiber.Router, eventGuards ...fiber.Handler) {
	student := middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}
	teacher := middleware.AuthOptions{Role: middleware.AuthRoleTeacher}

	router.Get("/me", middleware.WithAuth(h.listMine, student))
	router.Get("/courses/:courseId", middleware.WithAuth(h.courseProgress, student))
	router.Get("/courses/:courseId/detail", middleware.WithAuth(h.courseDetail, student))
	router.Get("/courses/:courseId/students", middleware.WithAuth(h.courseRoster, teacher))
	router.Post("/courses/:courseId/recompute", middleware.WithAuth(h.recomputeCourse, teacher))
	router.Post("/resources", middleware.WithAuth(h.viewResource, student))

	events := append(append([]fiber.Handler{}, eventGuards...), middleware.WithAuth(h.applyEvent, student))
	router.Post("/events", events...)
}

func (h *ProgressHandler) listMine(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	records, err := h.service.ListUserProgress(c.UserContext(), actor.ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "progress retrieved", records)
}

func (h *ProgressHandler) courseProgress(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID, err := targetUser(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	progress, cacheHit, err := h.service.GetCourseProgress(c.UserContext(), userID, courseID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.OK(c, progress, "course progress retrieved", fiber.Map{"cache_hit": cacheHit})
}

func (h *ProgressHandler) courseDetail(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID, err := targetUser(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	detail, err := h.service.GetCourseProgressDetail(c.UserContext(), userID, courseID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course progress detail retrieved", detail)
}

func (h *ProgressHandler) viewResource(c *fiber.Ctx) error {
	var payload dto.ResourceViewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	actor := actorFromContext(c)
	if payload.UserID == 0 || !isStaff(actor) {
		payload.UserID = actor.ID
	}

	result, err := h.service.MarkResourceViewed(c.UserContext(), payload)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "resource marked as viewed", result)
}

func (h *ProgressHandler) applyEvent(c *fiber.Ctx) error {
	var event dto.ProgressEvent
	if err := c.BodyParser(&event); err != nil {
		observability.ProgressEvents().WithLabelValues("http", "malformed").Inc()
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	actor := actorFromContext(c)
	if event.UserID == 0 || !isStaff(actor) {
		event.UserID = actor.ID
	}

	result, err := h.service.Apply(c.UserContext(), event)
	if err != nil {
		outcome := "failed"
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) || errors.Is(err, service.ErrInvalidAction) ||
			errors.Is(err, service.ErrMissingItem) || errors.Is(err, service.ErrNotFound) ||
			errors.Is(err, service.ErrItemOutsideCourse) || errors.Is(err, service.ErrQuizNotCompleted) {
			outcome = "rejected"
		}
		observability.ProgressEvents().WithLabelValues("http", outcome).Inc()
		return writeError(c, h.logger, err)
	}

	observability.ProgressEvents().WithLabelValues("http", "applied").Inc()
	requestLogger(h.logger, c).Debug().
		Uint("user_id", event.UserID).
		Uint("course_id", event.CourseID).
		Str("action", event.Action).
		Bool("changed", result.Changed).
		Msg("progress event applied")

	return utils.SendSuccess(c, "progress updated", result)
}

func (h *ProgressHandler) courseRoster(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.service.ListCourseProgress(c.UserContext(), courseID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.OK(c, records, "course progress retrieved", fiber.Map{"count": len(records)})
}

func (h *ProgressHandler) recomputeCourse(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.recompute.RecomputeForCourse(c.UserContext(), courseID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course progress recomputed", report)
}
