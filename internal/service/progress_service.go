package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// ProgressService records student progress and serves progress views.
type ProgressService interface {
	MarkResourceViewed(ctx context.Context, req dto.ResourceViewRequest) (dto.ProgressUpdateResponse, error)
	MarkChapterViewed(ctx context.Context, userID, courseID, chapterID uint) (dto.ProgressUpdateResponse, error)
	MarkAssignmentCompleted(ctx context.Context, userID, courseID, assignmentID uint) (dto.ProgressUpdateResponse, error)
	MarkQuizCompleted(ctx context.Context, userID, courseID, quizID uint) (dto.ProgressUpdateResponse, error)
	Apply(ctx context.Context, event dto.ProgressEvent) (dto.ProgressUpdateResponse, error)
	GetCourseProgress(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, bool, error)
	GetCourseProgressDetail(ctx context.Context, userID, courseID uint) (dto.CourseProgressDetailResponse, error)
	ListUserProgress(ctx context.Context, userID uint) ([]dto.ProgressRecordResponse, error)
	ListCourseProgress(ctx context.Context, courseID uint) ([]dto.ProgressRecordResponse, error)
}

type progressService struct {
	progress    repository.ProgressRepository
	content     repository.ContentRepository
	assignments repository.AssignmentRepository
	quizzes     repository.QuizRepository
	aggregator  ProgressAggregator
	cache       *ProgressCache
	validator   *validator.Validate
	logger      zerolog.Logger
}

type progressItem struct {
	kind models.ItemKind
	id   uint
}

// NewProgressService wires the progress mutator and read views.
func NewProgressService(progress repository.ProgressRepository, content repository.ContentRepository, assignments repository.AssignmentRepository, quizzes repository.QuizRepository, aggregator ProgressAggregator, cache *ProgressCache, validate *validator.Validate, logger zerolog.Logger) ProgressService {
	return &progressService{
		progress:    progress,
		content:     content,
		assignments: assignments,
		quizzes:     quizzes,
		aggregator:  aggregator,
		cache:       cache,
		validator:   validate,
		logger:      logger.With().Str("component", "progress_service").Logger(),
	}
}

func (s *progressService) MarkResourceViewed(ctx context.Context, req dto.ResourceViewRequest) (dto.ProgressUpdateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ProgressUpdateResponse{}, err
	}

	resource, err := s.content.GetResource(ctx, req.ResourceID)
	if err != nil {
		return dto.ProgressUpdateResponse{}, translateNotFound(err, ErrResourceNotFound)
	}
	if resource.CourseID != req.CourseID {
		return dto.ProgressUpdateResponse{}, ErrItemOutsideCourse
	}

	items := []progressItem{{kind: models.ItemKindResource, id: req.ResourceID}}
	if req.ChapterID != nil {
		if err := s.ensureChapter(ctx, req.CourseID, *req.ChapterID); err != nil {
			return dto.ProgressUpdateResponse{}, err
		}
		items = append(items, progressItem{kind: models.ItemKindChapter, id: *req.ChapterID})
	}

	return s.mutate(ctx, req.UserID, req.CourseID, dto.ActionViewResource, items...)
}

func (s *progressService) MarkChapterViewed(ctx context.Context, userID, courseID, chapterID uint) (dto.ProgressUpdateResponse, error) {
	if err := s.ensureChapter(ctx, courseID, chapterID); err != nil {
		return dto.ProgressUpdateResponse{}, err
	}

	return s.mutate(ctx, userID, courseID, dto.ActionViewChapter, progressItem{kind: models.ItemKindChapter, id: chapterID})
}

// MarkAssignmentCompleted is safe to call before the student has a progress record.
func (s *progressService) MarkAssignmentCompleted(ctx context.Context, userID, courseID, assignmentID uint) (dto.ProgressUpdateResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return dto.ProgressUpdateResponse{}, translateNotFound(err, ErrAssignmentNotFound)
	}
	if assignment.CourseID != courseID {
		return dto.ProgressUpdateResponse{}, ErrItemOutsideCourse
	}

	return s.mutate(ctx, userID, courseID, dto.ActionCompleteAssignment, progressItem{kind: models.ItemKindAssignment, id: assignmentID})
}

// MarkQuizCompleted only maintains the record's quiz set, which mirrors completed attempts.
// The percentage counts the attempts themselves.
func (s *progressService) MarkQuizCompleted(ctx context.Context, userID, courseID, quizID uint) (dto.ProgressUpdateResponse, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return dto.ProgressUpdateResponse{}, translateNotFound(err, ErrQuizNotFound)
	}
	if quiz.CourseID != courseID {
		return dto.ProgressUpdateResponse{}, ErrItemOutsideCourse
	}

	attempt, err := s.quizzes.GetAttempt(ctx, userID, quizID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProgressUpdateResponse{}, err
	}
	if err != nil || !attempt.Completed {
		return dto.ProgressUpdateResponse{}, ErrQuizNotCompleted
	}

	return s.mutate(ctx, userID, courseID, dto.ActionCompleteQuiz, progressItem{kind: models.ItemKindQuiz, id: quizID})
}

func (s *progressService) Apply(ctx context.Context, event dto.ProgressEvent) (dto.ProgressUpdateResponse, error) {
	if err := s.validator.Struct(event); err != nil {
		return dto.ProgressUpdateResponse{}, err
	}

	switch event.Action {
	case dto.ActionViewChapter:
		chapterID := event.ItemID
		if chapterID == 0 && event.ChapterID != nil {
			chapterID = *event.ChapterID
		}
		if chapterID == 0 {
			return dto.ProgressUpdateResponse{}, ErrMissingItem
		}
		return s.MarkChapterViewed(ctx, event.UserID, event.CourseID, chapterID)
	case dto.ActionViewResource:
		if event.ItemID == 0 {
			return dto.ProgressUpdateResponse{}, ErrMissingItem
		}
		return s.MarkResourceViewed(ctx, dto.ResourceViewRequest{
			UserID:     event.UserID,
			CourseID:   event.CourseID,
			ResourceID: event.ItemID,
			ChapterID:  event.ChapterID,
		})
	case dto.ActionCompleteAssignment:
		if event.ItemID == 0 {
			return dto.ProgressUpdateResponse{}, ErrMissingItem
		}
		return s.MarkAssignmentCompleted(ctx, event.UserID, event.CourseID, event.ItemID)
	case dto.ActionCompleteQuiz:
		if event.ItemID == 0 {
			return dto.ProgressUpdateResponse{}, ErrMissingItem
		}
		return s.MarkQuizCompleted(ctx, event.UserID, event.CourseID, event.ItemID)
	default:
		return dto.ProgressUpdateResponse{}, ErrInvalidAction
	}
}

// GetCourseProgress recomputes the percentage from current totals, so stale stored values catch up on read.
func (s *progressService) GetCourseProgress(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, bool, error) {
	if cached, ok := s.cache.Get(ctx, userID, courseID); ok {
		s.logger.Debug().Uint("user_id", userID).Uint("course_id", courseID).Msg("progress cache hit")
		return cached, true, nil
	}

	percentage, err := s.aggregator.ComputePercentage(ctx, userID, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, false, err
	}

	totals, err := s.aggregator.Totals(ctx, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, false, err
	}

	record, err := s.progress.Find(ctx, userID, courseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CourseProgressResponse{}, false, err
	}

	completedQuizzes, err := s.quizzes.CountCompletedAttempts(ctx, userID, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, false, err
	}

	response := dto.CourseProgressResponse{
		UserID:                    userID,
		CourseID:                  courseID,
		ProgressPercentage:        percentage,
		ViewedResourcesCount:      record.Count(models.ItemKindResource),
		ViewedChaptersCount:       record.Count(models.ItemKindChapter),
		CompletedAssignmentsCount: record.Count(models.ItemKindAssignment),
		CompletedQuizzesCount:     completedQuizzes,
		Totals:                    totals,
	}

	s.cache.Set(ctx, response)
	return response, false, nil
}

// GetCourseProgressDetail reports one ratio per kind alongside the stored overall percentage.
// The per-kind ratios always include chapters, whatever the counted kinds are.
func (s *progressService) GetCourseProgressDetail(ctx context.Context, userID, courseID uint) (dto.CourseProgressDetailResponse, error) {
	record, err := s.progress.Find(ctx, userID, courseID)
	if err != nil {
		return dto.CourseProgressDetailResponse{}, translateNotFound(err, ErrProgressNotFound)
	}

	totals, err := s.aggregator.Totals(ctx, courseID)
	if err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}

	completedQuizzes, err := s.quizzes.CountCompletedAttempts(ctx, userID, courseID)
	if err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}

	return dto.CourseProgressDetailResponse{
		OverallProgress:    record.ProgressPercentage,
		ChapterProgress:    Percentage(int64(record.Count(models.ItemKindChapter)), totals.Chapters),
		ResourceProgress:   Percentage(int64(record.Count(models.ItemKindResource)), totals.Resources),
		AssignmentProgress: Percentage(int64(record.Count(models.ItemKindAssignment)), totals.Assignments),
		QuizProgress:       Percentage(completedQuizzes, totals.Quizzes),
		Detailed:           dto.NewProgressRecordResponse(record),
		Totals:             totals,
	}, nil
}

func (s *progressService) ListUserProgress(ctx context.Context, userID uint) ([]dto.ProgressRecordResponse, error) {
	records, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewProgressRecordResponseSlice(records), nil
}

// ListCourseProgress returns the stored record of every student in the course, ordered by user.
func (s *progressService) ListCourseProgress(ctx context.Context, courseID uint) ([]dto.ProgressRecordResponse, error) {
	records, err := s.progress.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewProgressRecordResponseSlice(records), nil
}

// mutate inserts the items, then recomputes from the updated sets within the same call.
func (s *progressService) mutate(ctx context.Context, userID, courseID uint, action string, items ...progressItem) (dto.ProgressUpdateResponse, error) {
	record, err := s.progress.GetOrCreate(ctx, userID, courseID)
	if err != nil {
		return dto.ProgressUpdateResponse{}, err
	}

	changed := false
	for _, item := range items {
		added, err := s.progress.AddItem(ctx, record.ID, item.kind, item.id)
		if err != nil {
			return dto.ProgressUpdateResponse{}, err
		}
		changed = changed || added
	}
	observability.ProgressMutations().WithLabelValues(action, strconv.FormatBool(changed)).Inc()

	percentage, err := s.aggregator.ComputePercentage(ctx, userID, courseID)
	if err != nil {
		return dto.ProgressUpdateResponse{}, err
	}
	s.cache.Invalidate(ctx, courseID, userID)

	updated, err := s.progress.Find(ctx, userID, courseID)
	if err != nil {
		return dto.ProgressUpdateResponse{}, err
	}

	s.logger.Debug().
		Uint("user_id", userID).
		Uint("course_id", courseID).
		Str("action", action).
		Bool("changed", changed).
		Float64("progress_percentage", percentage).
		Msg("progress updated")

	return dto.ProgressUpdateResponse{
		Progress:           dto.NewProgressRecordResponse(updated),
		ProgressPercentage: percentage,
		Changed:            changed,
	}, nil
}

func (s *progressService) ensureChapter(ctx context.Context, courseID, chapterID uint) error {
	chapter, err := s.content.GetChapter(ctx, chapterID)
	if err != nil {
		return translateNotFound(err, ErrChapterNotFound)
	}
	if chapter.CourseID != courseID {
		return ErrItemOutsideCourse
	}
	return nil
}

func translateNotFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
