package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// SubmissionService orchestrates submission workflows.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest) (dto.SubmissionResponse, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	tx          repository.Transactor
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	courses     repository.CourseRepository
	progress    ProgressService
	notifier    NotificationEmitter
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(tx repository.Transactor, submissions repository.SubmissionRepository, assignments repository.AssignmentRepository, courses repository.CourseRepository, progress ProgressService, notifier NotificationEmitter, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		tx:          tx,
		submissions: submissions,
		assignments: assignments,
		courses:     courses,
		progress:    progress,
		notifier:    notifier,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// Submit stores the hand-in and marks the assignment completed for the student. Both writes share one
// transaction, so a failed progress update leaves no submission behind and the student can resubmit.
func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, translateNotFound(err, ErrAssignmentNotFound)
	}

	exists, err := s.submissions.Exists(ctx, payload.AssignmentID, payload.StudentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if exists {
		return dto.SubmissionResponse{}, ErrAlreadySubmitted
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.SubmissionResponse{}, ErrEmptyContent
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    payload.StudentID,
		Content:      content,
		Status:       models.SubmissionStatusSubmitted,
		SubmittedAt:  s.now().UTC(),
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.submissions.Create(ctx, &submission); err != nil {
			return err
		}

		_, err := s.progress.MarkAssignmentCompleted(ctx, payload.StudentID, assignment.CourseID, assignment.ID)
		return err
	})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", created.ID).
		Uint("assignment_id", assignment.ID).
		Uint("student_id", payload.StudentID).
		Bool("late", assignment.IsPastDue(submission.SubmittedAt)).
		Msg("submission created")

	s.notifyOwner(ctx, assignment, created)

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) Grade(ctx context.Context, id uint, payload dto.SubmissionGradeRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, translateNotFound(err, ErrSubmissionNotFound)
	}

	grade := payload.Grade
	submission.Grade = &grade
	submission.Status = models.SubmissionStatusGraded
	if payload.Feedback != nil {
		submission.Feedback = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Feedback))
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	updated, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Float64("grade", grade).Msg("submission graded")

	return dto.NewSubmissionResponse(updated), nil
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		return nil, translateNotFound(err, ErrAssignmentNotFound)
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) notifyOwner(ctx context.Context, assignment models.Assignment, submission models.Submission) {
	if s.notifier == nil {
		return
	}

	course, err := s.courses.GetByID(ctx, assignment.CourseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("course_id", assignment.CourseID).Msg("skipping submission notification, course lookup failed")
		return
	}

	s.notifier.Emit(dto.NotificationCreateRequest{
		UserID:  course.OwnerID,
		Type:    models.NotificationTypeAssignment,
		Title:   "New submission",
		Message: fmt.Sprintf("A student submitted %q", assignment.Title),
		Metadata: map[string]interface{}{
			"assignment_id": assignment.ID,
			"course_id":     assignment.CourseID,
			"submission_id": submission.ID,
			"student_id":    submission.StudentID,
		},
	})
}
