package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

const defaultMaxPoints = 100

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	ListByCourse(ctx context.Context, courseID uint) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, createdBy uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint) error
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	courses     repository.CourseRepository
	progress    repository.ProgressRepository
	recompute   RecomputeOrchestrator
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(assignments repository.AssignmentRepository, courses repository.CourseRepository, progress repository.ProgressRepository, recompute RecomputeOrchestrator, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		courses:     courses,
		progress:    progress,
		recompute:   recompute,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) ListByCourse(ctx context.Context, courseID uint) ([]dto.AssignmentResponse, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, translateNotFound(err, ErrCourseNotFound)
	}

	assignments, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, translateNotFound(err, ErrAssignmentNotFound)
	}

	return dto.NewAssignmentResponse(assignment), nil
}

// Create adds the assignment and schedules a course recompute, since every student's denominator grew.
func (s *assignmentService) Create(ctx context.Context, createdBy uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrInvalidDueDate, err)
	}

	if !dueDate.After(s.now()) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: must be in the future", ErrInvalidDueDate)
	}

	if _, err := s.courses.GetByID(ctx, payload.CourseID); err != nil {
		return dto.AssignmentResponse{}, translateNotFound(err, ErrCourseNotFound)
	}

	maxPoints := float64(defaultMaxPoints)
	if payload.MaxPoints != nil {
		maxPoints = *payload.MaxPoints
	}

	assignment := models.Assignment{
		CourseID:    payload.CourseID,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     dueDate,
		MaxPoints:   maxPoints,
		CreatedBy:   createdBy,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", assignment.CourseID).Msg("assignment created")
	s.recompute.Schedule(ctx, assignment.CourseID)

	return dto.NewAssignmentResponse(assignment), nil
}

// Delete removes the assignment with its submissions, drops it from every progress record of the
// course and schedules a course recompute.
func (s *assignmentService) Delete(ctx context.Context, id uint) error {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return translateNotFound(err, ErrAssignmentNotFound)
	}

	pulled, err := s.progress.PullReference(ctx, assignment.CourseID, models.ItemKindAssignment, id)
	if err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		return translateNotFound(err, ErrAssignmentNotFound)
	}

	s.logger.Info().
		Uint("assignment_id", id).
		Uint("course_id", assignment.CourseID).
		Int64("progress_refs_pulled", pulled).
		Msg("assignment deleted")
	s.recompute.Schedule(ctx, assignment.CourseID)

	return nil
}
