package service

import (
	"context"
	"crypto/subtle"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor has platform-wide permissions.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// EnrollmentService manages course rosters and the progress records that follow them.
type EnrollmentService interface {
	Enroll(ctx context.Context, courseID, studentID uint, payload dto.EnrollmentRequest) (dto.ProgressRecordResponse, error)
	Unenroll(ctx context.Context, courseID, studentID uint) error
	RemoveStudent(ctx context.Context, actor Actor, courseID, studentID uint) error
}

type enrollmentService struct {
	tx        repository.Transactor
	courses   repository.CourseRepository
	students  repository.StudentRepository
	progress  repository.ProgressRepository
	cache     *ProgressCache
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(tx repository.Transactor, courses repository.CourseRepository, students repository.StudentRepository, progress repository.ProgressRepository, cache *ProgressCache, validate *validator.Validate, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		tx:        tx,
		courses:   courses,
		students:  students,
		progress:  progress,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "enrollment_service").Logger(),
	}
}

// Enroll adds the student to the roster and starts an empty progress record.
func (s *enrollmentService) Enroll(ctx context.Context, courseID, studentID uint, payload dto.EnrollmentRequest) (dto.ProgressRecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProgressRecordResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return dto.ProgressRecordResponse{}, translateNotFound(err, ErrCourseNotFound)
	}

	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return dto.ProgressRecordResponse{}, translateNotFound(err, ErrStudentNotFound)
	}

	if course.RequiresAccessKey() && subtle.ConstantTimeCompare([]byte(*course.AccessKey), []byte(payload.AccessKey)) != 1 {
		return dto.ProgressRecordResponse{}, ErrInvalidAccessKey
	}

	added, err := s.courses.Enroll(ctx, courseID, studentID)
	if err != nil {
		return dto.ProgressRecordResponse{}, err
	}
	if !added {
		return dto.ProgressRecordResponse{}, ErrAlreadyEnrolled
	}

	record, err := s.progress.GetOrCreate(ctx, studentID, courseID)
	if err != nil {
		return dto.ProgressRecordResponse{}, err
	}
	s.cache.Invalidate(ctx, courseID, studentID)

	s.logger.Info().Uint("course_id", courseID).Uint("student_id", studentID).Msg("student enrolled")

	return dto.NewProgressRecordResponse(record), nil
}

// Unenroll removes the roster entry and the student's progress record for the course in one transaction.
func (s *enrollmentService) Unenroll(ctx context.Context, courseID, studentID uint) error {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return translateNotFound(err, ErrCourseNotFound)
	}

	enrolled, err := s.courses.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.courses.Unenroll(ctx, courseID, studentID); err != nil {
			return err
		}
		return s.progress.Delete(ctx, studentID, courseID)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, courseID, studentID)

	s.logger.Info().Uint("course_id", courseID).Uint("student_id", studentID).Msg("student unenrolled")
	return nil
}

// RemoveStudent is Unenroll on behalf of the course owner or an admin.
func (s *enrollmentService) RemoveStudent(ctx context.Context, actor Actor, courseID, studentID uint) error {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return translateNotFound(err, ErrCourseNotFound)
	}

	if course.OwnerID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}

	return s.Unenroll(ctx, courseID, studentID)
}
