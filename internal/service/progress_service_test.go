package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func TestMarkResourceViewedIsIdempotent(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	chapter := f.seedChapter(t, course.ID)
	resources := f.seedResources(t, course.ID, chapter.ID, 4)
	student := f.seedStudent(t, models.RoleStudent)

	req := dto.ResourceViewRequest{
		UserID:     student.ID,
		CourseID:   course.ID,
		ResourceID: resources[0].ID,
		ChapterID:  &chapter.ID,
	}

	first, err := f.progress.MarkResourceViewed(ctx, req)
	require.NoError(t, err)
	require.True(t, first.Changed)
	require.Equal(t, 25.0, first.ProgressPercentage)
	require.Equal(t, []uint{resources[0].ID}, first.Progress.ViewedResources)
	require.Equal(t, []uint{chapter.ID}, first.Progress.ViewedChapters)

	second, err := f.progress.MarkResourceViewed(ctx, req)
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.Equal(t, first.ProgressPercentage, second.ProgressPercentage)
	require.Equal(t, first.Progress.ViewedResources, second.Progress.ViewedResources)
	require.Equal(t, first.Progress.ViewedChapters, second.Progress.ViewedChapters)
}

func TestMarkResourceViewedUnknownResourceDoesNotWrite(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	student := f.seedStudent(t, models.RoleStudent)

	_, err := f.progress.MarkResourceViewed(ctx, dto.ResourceViewRequest{
		UserID:     student.ID,
		CourseID:   course.ID,
		ResourceID: 404,
	})
	require.ErrorIs(t, err, ErrResourceNotFound)
	require.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, f.db.Model(&models.ProgressRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestMarkResourceViewedRejectsResourceFromAnotherCourse(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	other := f.seedCourse(t)
	chapter := f.seedChapter(t, other.ID)
	resources := f.seedResources(t, other.ID, chapter.ID, 1)
	student := f.seedStudent(t, models.RoleStudent)

	_, err := f.progress.MarkResourceViewed(ctx, dto.ResourceViewRequest{
		UserID:     student.ID,
		CourseID:   course.ID,
		ResourceID: resources[0].ID,
	})
	require.ErrorIs(t, err, ErrItemOutsideCourse)
}

func TestMarkAssignmentCompletedCreatesRecord(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	assignments := f.seedAssignments(t, course.ID, 2)
	student := f.seedStudent(t, models.RoleStudent)

	resp, err := f.progress.MarkAssignmentCompleted(ctx, student.ID, course.ID, assignments[1].ID)
	require.NoError(t, err)
	require.True(t, resp.Changed)
	require.Equal(t, []uint{assignments[1].ID}, resp.Progress.CompletedAssignments)
	require.Equal(t, 50.0, resp.ProgressPercentage)
	require.Equal(t, 50.0, f.storedPercentage(t, student.ID, course.ID))
}

func TestApplyDispatchesActions(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	chapter := f.seedChapter(t, course.ID)
	resources := f.seedResources(t, course.ID, chapter.ID, 1)
	assignments := f.seedAssignments(t, course.ID, 1)
	quizzes := f.seedQuizzes(t, course.ID, chapter.ID, 1)
	student := f.seedStudent(t, models.RoleStudent)

	_, err := f.quizzes.SaveAttempt(ctx, &models.QuizAttempt{
		UserID: student.ID, QuizID: quizzes[0].ID, CourseID: course.ID, ChapterID: chapter.ID,
		Score: 90, TotalQuestions: 10, Completed: true,
	})
	require.NoError(t, err)

	events := []dto.ProgressEvent{
		{UserID: student.ID, CourseID: course.ID, Action: dto.ActionViewChapter, ItemID: chapter.ID},
		{UserID: student.ID, CourseID: course.ID, Action: dto.ActionViewResource, ItemID: resources[0].ID},
		{UserID: student.ID, CourseID: course.ID, Action: dto.ActionCompleteAssignment, ItemID: assignments[0].ID},
		{UserID: student.ID, CourseID: course.ID, Action: dto.ActionCompleteQuiz, ItemID: quizzes[0].ID},
	}

	var last dto.ProgressUpdateResponse
	for _, event := range events {
		resp, err := f.progress.Apply(ctx, event)
		require.NoError(t, err, event.Action)
		last = resp
	}

	require.Equal(t, []uint{chapter.ID}, last.Progress.ViewedChapters)
	require.Equal(t, []uint{resources[0].ID}, last.Progress.ViewedResources)
	require.Equal(t, []uint{assignments[0].ID}, last.Progress.CompletedAssignments)
	require.Equal(t, []uint{quizzes[0].ID}, last.Progress.CompletedQuizzes)
	require.Equal(t, 100.0, last.ProgressPercentage)
}

func TestCompleteQuizRequiresCompletedAttempt(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	chapter := f.seedChapter(t, course.ID)
	quizzes := f.seedQuizzes(t, course.ID, chapter.ID, 1)
	student := f.seedStudent(t, models.RoleStudent)
	event := dto.ProgressEvent{UserID: student.ID, CourseID: course.ID, Action: dto.ActionCompleteQuiz, ItemID: quizzes[0].ID}

	_, err := f.progress.Apply(ctx, event)
	require.ErrorIs(t, err, ErrQuizNotCompleted)

	_, err = f.quizzes.SaveAttempt(ctx, &models.QuizAttempt{
		UserID: student.ID, QuizID: quizzes[0].ID, CourseID: course.ID, ChapterID: chapter.ID,
		Score: 30, TotalQuestions: 10,
	})
	require.NoError(t, err)

	_, err = f.progress.Apply(ctx, event)
	require.ErrorIs(t, err, ErrQuizNotCompleted)

	_, err = f.progressRep.Find(ctx, student.ID, course.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestApplyInvalidActionDoesNotWrite(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	student := f.seedStudent(t, models.RoleStudent)

	_, err := f.progress.Apply(ctx, dto.ProgressEvent{
		UserID:   student.ID,
		CourseID: course.ID,
		Action:   "watchVideo",
		ItemID:   1,
	})
	require.ErrorIs(t, err, ErrInvalidAction)

	_, err = f.progress.Apply(ctx, dto.ProgressEvent{
		UserID:   student.ID,
		CourseID: course.ID,
		Action:   dto.ActionViewResource,
	})
	require.ErrorIs(t, err, ErrMissingItem)

	var count int64
	require.NoError(t, f.db.Model(&models.ProgressRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGetCourseProgressUsesCache(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	chapter := f.seedChapter(t, course.ID)
	resources := f.seedResources(t, course.ID, chapter.ID, 2)
	student := f.seedStudent(t, models.RoleStudent)
	f.enroll(t, course.ID, student.ID)

	view, hit, err := f.progress.GetCourseProgress(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.False(t, hit)
	require.Zero(t, view.ProgressPercentage)
	require.Equal(t, int64(2), view.Totals.Resources)
	require.True(t, f.redis.Exists(progressCacheKey(student.ID, course.ID)))

	_, hit, err = f.progress.GetCourseProgress(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.True(t, hit)

	_, err = f.progress.MarkResourceViewed(ctx, dto.ResourceViewRequest{
		UserID:     student.ID,
		CourseID:   course.ID,
		ResourceID: resources[0].ID,
	})
	require.NoError(t, err)
	require.False(t, f.redis.Exists(progressCacheKey(student.ID, course.ID)))

	view, hit, err = f.progress.GetCourseProgress(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 50.0, view.ProgressPercentage)
	require.Equal(t, 1, view.ViewedResourcesCount)
}

func TestGetCourseProgressDetail(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	course := f.seedCourse(t)
	chapter := f.seedChapter(t, course.ID)
	f.seedChapter(t, course.ID)
	resources := f.seedResources(t, course.ID, chapter.ID, 4)
	f.seedAssignments(t, course.ID, 1)
	student := f.seedStudent(t, models.RoleStudent)

	_, err := f.progress.GetCourseProgressDetail(ctx, student.ID, course.ID)
	require.True(t, errors.Is(err, ErrProgressNotFound))

	_, err = f.progress.MarkResourceViewed(ctx, dto.ResourceViewRequest{
		UserID:     student.ID,
		CourseID:   course.ID,
		ResourceID: resources[0].ID,
		ChapterID:  &chapter.ID,
	})
	require.NoError(t, err)

	detail, err := f.progress.GetCourseProgressDetail(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 20.0, detail.OverallProgress)
	require.Equal(t, 50.0, detail.ChapterProgress)
	require.Equal(t, 25.0, detail.ResourceProgress)
	require.Zero(t, detail.AssignmentProgress)
	require.Zero(t, detail.QuizProgress)
	require.Equal(t, int64(2), detail.Totals.Chapters)
}

func TestListUserProgress(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	first := f.seedCourse(t)
	second := f.seedCourse(t)
	student := f.seedStudent(t, models.RoleStudent)
	f.enroll(t, second.ID, student.ID)
	f.enroll(t, first.ID, student.ID)

	records, err := f.progress.ListUserProgress(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, first.ID, records[0].CourseID)
	require.Equal(t, second.ID, records[1].CourseID)
}
