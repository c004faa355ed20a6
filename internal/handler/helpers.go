package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parsePagination(c *fiber.Ctx) (limit, offset int, err error) {
	limit, err = parseQueryInt(c, "limit")
	if err != nil {
		return 0, 0, errors.New("invalid limit")
	}
	if limit <= 0 {
		limit = defaultPageSize
	} else if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err = parseQueryInt(c, "offset")
	if err != nil || offset < 0 {
		return 0, 0, errors.New("invalid offset")
	}
	return limit, offset, nil
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	id, role, _ := middleware.CurrentUser(c)
	return service.Actor{ID: id, Role: role}
}

// isStaff reports whether the caller may act on behalf of other users.
func isStaff(actor service.Actor) bool {
	return actor.Role == models.RoleTeacher || actor.Role == models.RoleAdmin
}

// targetUser resolves whose data is read. Staff may pass ?user_id, everyone else reads their own.
func targetUser(c *fiber.Ctx) (uint, error) {
	actor := actorFromContext(c)

	requested, err := parseQueryInt(c, "user_id")
	if err != nil || requested < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
	}
	if requested == 0 || uint(requested) == actor.ID {
		return actor.ID, nil
	}
	if !isStaff(actor) {
		return 0, service.ErrForbidden
	}
	return uint(requested), nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return utils.SendError(c, fiberErr.Code, fiberErr.Message)
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	case errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrMissingItem),
		errors.Is(err, service.ErrItemOutsideCourse),
		errors.Is(err, service.ErrInvalidAccessKey),
		errors.Is(err, service.ErrNotEnrolled),
		errors.Is(err, service.ErrInvalidDueDate),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrQuizNotCompleted):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyEnrolled), errors.Is(err, service.ErrAlreadySubmitted):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}
