package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// QuizService manages quizzes and records quiz attempts.
type QuizService interface {
	Create(ctx context.Context, payload dto.QuizCreateRequest) (dto.QuizResponse, error)
	Delete(ctx context.Context, id uint) error
	SaveAttempt(ctx context.Context, payload dto.QuizAttemptRequest) (dto.QuizAttemptResponse, error)
	GetAttempt(ctx context.Context, userID, quizID uint) (dto.QuizAttemptResponse, error)
}

type quizService struct {
	quizzes    repository.QuizRepository
	courses    repository.CourseRepository
	content    repository.ContentRepository
	progress   repository.ProgressRepository
	aggregator ProgressAggregator
	cache      *ProgressCache
	recompute  RecomputeOrchestrator
	notifier   NotificationEmitter
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewQuizService constructs the quiz service.
func NewQuizService(quizzes repository.QuizRepository, courses repository.CourseRepository, content repository.ContentRepository, progress repository.ProgressRepository, aggregator ProgressAggregator, cache *ProgressCache, recompute RecomputeOrchestrator, notifier NotificationEmitter, validate *validator.Validate, logger zerolog.Logger) QuizService {
	return &quizService{
		quizzes:    quizzes,
		courses:    courses,
		content:    content,
		progress:   progress,
		aggregator: aggregator,
		cache:      cache,
		recompute:  recompute,
		notifier:   notifier,
		validator:  validate,
		logger:     logger.With().Str("component", "quiz_service").Logger(),
		now:        time.Now,
	}
}

func (s *quizService) Create(ctx context.Context, payload dto.QuizCreateRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResponse{}, err
	}

	if _, err := s.courses.GetByID(ctx, payload.CourseID); err != nil {
		return dto.QuizResponse{}, translateNotFound(err, ErrCourseNotFound)
	}

	chapter, err := s.content.GetChapter(ctx, payload.ChapterID)
	if err != nil {
		return dto.QuizResponse{}, translateNotFound(err, ErrChapterNotFound)
	}
	if chapter.CourseID != payload.CourseID {
		return dto.QuizResponse{}, ErrItemOutsideCourse
	}

	quiz := models.Quiz{
		CourseID:  payload.CourseID,
		ChapterID: payload.ChapterID,
		Title:     payload.Title,
		TimeLimit: payload.TimeLimit,
	}
	if quiz.TimeLimit == 0 {
		quiz.TimeLimit = 30
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, err
	}

	s.logger.Info().Uint("quiz_id", quiz.ID).Uint("course_id", quiz.CourseID).Msg("quiz created")
	s.recompute.Schedule(ctx, quiz.CourseID)

	return dto.NewQuizResponse(quiz), nil
}

// Delete removes the quiz and its attempts, drops it from the progress records and schedules a recompute.
func (s *quizService) Delete(ctx context.Context, id uint) error {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		return translateNotFound(err, ErrQuizNotFound)
	}

	if _, err := s.progress.PullReference(ctx, quiz.CourseID, models.ItemKindQuiz, id); err != nil {
		return err
	}

	if err := s.quizzes.Delete(ctx, id); err != nil {
		return translateNotFound(err, ErrQuizNotFound)
	}

	s.logger.Info().Uint("quiz_id", id).Uint("course_id", quiz.CourseID).Msg("quiz deleted")
	s.recompute.Schedule(ctx, quiz.CourseID)

	return nil
}

// SaveAttempt stores the single attempt of a student on a quiz, overwriting a previous one.
// The record's quiz set follows the attempt's completed flag.
func (s *quizService) SaveAttempt(ctx context.Context, payload dto.QuizAttemptRequest) (dto.QuizAttemptResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	quiz, err := s.quizzes.GetByID(ctx, payload.QuizID)
	if err != nil {
		return dto.QuizAttemptResponse{}, translateNotFound(err, ErrQuizNotFound)
	}

	attempt := models.QuizAttempt{
		UserID:         payload.UserID,
		QuizID:         quiz.ID,
		CourseID:       quiz.CourseID,
		ChapterID:      quiz.ChapterID,
		Score:          payload.Score,
		TotalQuestions: payload.TotalQuestions,
		Completed:      payload.Completed,
		CompletedAt:    s.now().UTC(),
	}

	created, err := s.quizzes.SaveAttempt(ctx, &attempt)
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	record, err := s.progress.GetOrCreate(ctx, payload.UserID, quiz.CourseID)
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}
	if attempt.Completed {
		_, err = s.progress.AddItem(ctx, record.ID, models.ItemKindQuiz, quiz.ID)
	} else {
		err = s.progress.RemoveItem(ctx, record.ID, models.ItemKindQuiz, quiz.ID)
	}
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	percentage, err := s.aggregator.ComputePercentage(ctx, payload.UserID, quiz.CourseID)
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}
	s.cache.Invalidate(ctx, quiz.CourseID, payload.UserID)

	s.logger.Info().
		Uint("quiz_id", quiz.ID).
		Uint("user_id", payload.UserID).
		Bool("created", created).
		Bool("completed", attempt.Completed).
		Msg("quiz attempt saved")

	if attempt.Completed {
		s.notifyOwner(ctx, quiz, attempt)
	}

	return dto.NewQuizAttemptResponse(attempt, percentage), nil
}

// GetAttempt returns the stored attempt of a student on a quiz with the student's stored course percentage.
func (s *quizService) GetAttempt(ctx context.Context, userID, quizID uint) (dto.QuizAttemptResponse, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return dto.QuizAttemptResponse{}, translateNotFound(err, ErrQuizNotFound)
	}

	attempt, err := s.quizzes.GetAttempt(ctx, userID, quiz.ID)
	if err != nil {
		return dto.QuizAttemptResponse{}, translateNotFound(err, ErrAttemptNotFound)
	}

	var percentage float64
	record, err := s.progress.Find(ctx, userID, quiz.CourseID)
	switch {
	case err == nil:
		percentage = record.ProgressPercentage
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.QuizAttemptResponse{}, err
	}

	return dto.NewQuizAttemptResponse(attempt, percentage), nil
}

func (s *quizService) notifyOwner(ctx context.Context, quiz models.Quiz, attempt models.QuizAttempt) {
	if s.notifier == nil {
		return
	}

	course, err := s.courses.GetByID(ctx, quiz.CourseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("course_id", quiz.CourseID).Msg("skipping quiz notification, course lookup failed")
		return
	}

	s.notifier.Emit(dto.NotificationCreateRequest{
		UserID:  course.OwnerID,
		Type:    models.NotificationTypeQuiz,
		Title:   "Quiz completed",
		Message: fmt.Sprintf("A student completed %q with a score of %.0f%%", quiz.Title, attempt.Score),
		Metadata: map[string]interface{}{
			"quiz_id":    quiz.ID,
			"course_id":  quiz.CourseID,
			"student_id": attempt.UserID,
			"score":      attempt.Score,
		},
	})
}
