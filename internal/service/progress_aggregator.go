package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// DefaultCountedKinds are the item kinds that make up the progress denominator.
// Chapters are tracked but not counted unless configured.
var DefaultCountedKinds = []models.ItemKind{models.ItemKindResource, models.ItemKindAssignment, models.ItemKindQuiz}

// ParseCountedKinds converts configured kind names into item kinds.
func ParseCountedKinds(names []string) ([]models.ItemKind, error) {
	if len(names) == 0 {
		return DefaultCountedKinds, nil
	}

	seen := make(map[models.ItemKind]struct{}, len(names))
	kinds := make([]models.ItemKind, 0, len(names))
	for _, name := range names {
		kind := models.ItemKind(strings.ToLower(strings.TrimSpace(name)))
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown progress item kind %q", name)
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// ProgressAggregator computes completion percentages.
type ProgressAggregator interface {
	ComputePercentage(ctx context.Context, userID, courseID uint) (float64, error)
	Totals(ctx context.Context, courseID uint) (dto.ProgressTotals, error)
}

type progressAggregator struct {
	progress repository.ProgressRepository
	content  repository.ContentRepository
	quizzes  repository.QuizRepository
	kinds    []models.ItemKind
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewProgressAggregator builds the aggregator over the given counted kinds.
func NewProgressAggregator(progress repository.ProgressRepository, content repository.ContentRepository, quizzes repository.QuizRepository, kinds []models.ItemKind, logger zerolog.Logger) ProgressAggregator {
	if len(kinds) == 0 {
		kinds = DefaultCountedKinds
	}

	return &progressAggregator{
		progress: progress,
		content:  content,
		quizzes:  quizzes,
		kinds:    kinds,
		logger:   logger.With().Str("component", "progress_aggregator").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-lms-api/internal/service/progress"),
	}
}

// ComputePercentage recomputes and persists the percentage for one (user, course) pair.
// A missing record is treated as empty and nothing is persisted.
func (a *progressAggregator) ComputePercentage(ctx context.Context, userID, courseID uint) (float64, error) {
	ctx, span := a.tracer.Start(ctx, "progress.compute", trace.WithAttributes(
		attribute.Int64("progress.user_id", int64(userID)),
		attribute.Int64("progress.course_id", int64(courseID)),
	))
	defer span.End()

	exists := true
	record, err := a.progress.Find(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		exists = false
		record = models.ProgressRecord{UserID: userID, CourseID: courseID}
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_record_failed")
		return 0, err
	}

	var total, completed int64
	for _, kind := range a.kinds {
		kindTotal, err := a.total(ctx, kind, courseID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "count_total_failed")
			return 0, fmt.Errorf("count %s total: %w", kind, err)
		}
		kindCompleted, err := a.completed(ctx, kind, record)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "count_completed_failed")
			return 0, fmt.Errorf("count completed %s: %w", kind, err)
		}
		total += kindTotal
		completed += kindCompleted
	}

	if completed > total {
		a.logger.Warn().
			Uint("user_id", userID).
			Uint("course_id", courseID).
			Int64("completed", completed).
			Int64("total", total).
			Msg("completed items exceed course total, clamping")
	}

	percentage := Percentage(completed, total)
	span.SetAttributes(
		attribute.Int64("progress.total", total),
		attribute.Int64("progress.completed", completed),
		attribute.Float64("progress.percentage", percentage),
	)

	if exists && record.ProgressPercentage != percentage {
		if err := a.progress.UpdatePercentage(ctx, record.ID, percentage); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist_failed")
			return 0, err
		}
	}

	observability.ProgressPercentage().Observe(percentage)
	return percentage, nil
}

func (a *progressAggregator) Totals(ctx context.Context, courseID uint) (dto.ProgressTotals, error) {
	var totals dto.ProgressTotals
	var err error

	if totals.Resources, err = a.content.CountResources(ctx, courseID); err != nil {
		return dto.ProgressTotals{}, err
	}
	if totals.Chapters, err = a.content.CountChapters(ctx, courseID); err != nil {
		return dto.ProgressTotals{}, err
	}
	if totals.Assignments, err = a.content.CountAssignments(ctx, courseID); err != nil {
		return dto.ProgressTotals{}, err
	}
	if totals.Quizzes, err = a.content.CountQuizzes(ctx, courseID); err != nil {
		return dto.ProgressTotals{}, err
	}

	return totals, nil
}

func (a *progressAggregator) total(ctx context.Context, kind models.ItemKind, courseID uint) (int64, error) {
	switch kind {
	case models.ItemKindResource:
		return a.content.CountResources(ctx, courseID)
	case models.ItemKindChapter:
		return a.content.CountChapters(ctx, courseID)
	case models.ItemKindAssignment:
		return a.content.CountAssignments(ctx, courseID)
	case models.ItemKindQuiz:
		return a.content.CountQuizzes(ctx, courseID)
	default:
		return 0, fmt.Errorf("unknown progress item kind %q", kind)
	}
}

// Quiz completion is read from attempts, not from the record's quiz set.
func (a *progressAggregator) completed(ctx context.Context, kind models.ItemKind, record models.ProgressRecord) (int64, error) {
	if kind == models.ItemKindQuiz {
		return a.quizzes.CountCompletedAttempts(ctx, record.UserID, record.CourseID)
	}
	return int64(record.Count(kind)), nil
}

// Percentage returns completed/total as a percentage clamped to [0, 100] and rounded half-up
// to two decimals. A zero total yields 0.
func Percentage(completed, total int64) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}

	ratio := float64(completed) / float64(total) * 100
	if ratio > 100 {
		ratio = 100
	}

	return RoundPercentage(ratio)
}

// RoundPercentage rounds half-up to two decimals.
func RoundPercentage(value float64) float64 {
	return math.Round(value*100) / 100
}
