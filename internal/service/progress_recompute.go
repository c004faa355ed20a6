package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

// RecomputeOrchestrator keeps every enrolled student's percentage aligned with the course totals.
type RecomputeOrchestrator interface {
	RecomputeForCourse(ctx context.Context, courseID uint) (dto.RecomputeReport, error)
	Schedule(ctx context.Context, courseID uint)
	Wait()
}

type recomputeOrchestrator struct {
	courses     repository.CourseRepository
	aggregator  ProgressAggregator
	cache       *ProgressCache
	concurrency int
	logger      zerolog.Logger
	tracer      trace.Tracer
	pending     sync.WaitGroup
}

// NewRecomputeOrchestrator builds the course-wide fan-out. Concurrency bounds the number of
// students recomputed at once.
func NewRecomputeOrchestrator(courses repository.CourseRepository, aggregator ProgressAggregator, cache *ProgressCache, concurrency int, logger zerolog.Logger) RecomputeOrchestrator {
	if concurrency <= 0 {
		concurrency = 8
	}

	return &recomputeOrchestrator{
		courses:     courses,
		aggregator:  aggregator,
		cache:       cache,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "progress_recompute").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-lms-api/internal/service/progress"),
	}
}

// RecomputeForCourse recomputes every enrolled student. Individual failures are reported and
// logged but never abort the batch; the error is only set when the roster cannot be loaded.
func (o *recomputeOrchestrator) RecomputeForCourse(ctx context.Context, courseID uint) (dto.RecomputeReport, error) {
	ctx, span := o.tracer.Start(ctx, "progress.recompute_course", trace.WithAttributes(
		attribute.Int64("progress.course_id", int64(courseID)),
	))
	defer span.End()

	start := time.Now()
	report := dto.RecomputeReport{CourseID: courseID, Failures: []dto.RecomputeFailure{}}

	studentIDs, err := o.courses.EnrolledStudentIDs(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		return report, fmt.Errorf("load roster: %w", err)
	}

	report.Students = len(studentIDs)
	if len(studentIDs) == 0 {
		o.logger.Info().Uint("course_id", courseID).Msg("no enrolled students, skipping recompute")
		return report, nil
	}

	var (
		mu    sync.Mutex
		group errgroup.Group
	)
	group.SetLimit(o.concurrency)

	for _, studentID := range studentIDs {
		studentID := studentID
		group.Go(func() error {
			err := o.recomputeStudent(ctx, studentID, courseID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, dto.RecomputeFailure{StudentID: studentID, Error: err.Error()})
				observability.ProgressRecomputes().WithLabelValues("failed").Inc()
				observability.ProgressRecomputeFailures().Inc()
				o.logger.Error().Err(err).
					Uint("course_id", courseID).
					Uint("student_id", studentID).
					Msg("student recompute failed")
				return nil
			}
			report.Updated++
			observability.ProgressRecomputes().WithLabelValues("updated").Inc()
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].StudentID < report.Failures[j].StudentID
	})

	o.cache.Invalidate(ctx, courseID, studentIDs...)

	elapsed := time.Since(start)
	observability.ProgressRecomputeDuration().Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("progress.students", report.Students),
		attribute.Int("progress.failures", len(report.Failures)),
	)

	event := o.logger.Info()
	if len(report.Failures) > 0 {
		event = o.logger.Warn()
	}
	event.Uint("course_id", courseID).
		Int("students", report.Students).
		Int("updated", report.Updated).
		Int("failed", len(report.Failures)).
		Dur("elapsed", elapsed).
		Msg("course progress recomputed")

	return report, nil
}

func (o *recomputeOrchestrator) recomputeStudent(ctx context.Context, studentID, courseID uint) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recompute panicked: %v", r)
		}
	}()

	_, err = o.aggregator.ComputePercentage(ctx, studentID, courseID)
	return err
}

// Schedule runs RecomputeForCourse in the background, detached from the caller's cancellation.
func (o *recomputeOrchestrator) Schedule(ctx context.Context, courseID uint) {
	detached := context.WithoutCancel(ctx)

	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		if _, err := o.RecomputeForCourse(detached, courseID); err != nil {
			o.logger.Error().Err(err).Uint("course_id", courseID).Msg("scheduled recompute failed")
		}
	}()
}

// Wait blocks until every scheduled recompute has finished.
func (o *recomputeOrchestrator) Wait() {
	o.pending.Wait()
}
