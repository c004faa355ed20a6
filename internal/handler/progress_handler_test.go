package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func TestProgressEventsUpdateCourseProgress(t *testing.T) {
	app := newTestApp(t, appOptions{})
	seed := app.seedCourse(t, 2, nil)
	student := app.seedUser(t, models.RoleStudent)

	resp, _ := app.do(t, http.MethodPost, coursePath(seed.course.ID, "/enroll"), student, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := app.do(t, http.MethodPost, "/api/v1/progress/events", student, dto.ProgressEvent{
		CourseID: seed.course.ID,
		Action:   dto.ActionViewResource,
		ItemID:   seed.resources[0].ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var update dto.ProgressUpdateResponse
	decodeData(t, body, &update)
	require.True(t, update.Changed)
	require.Equal(t, 50.0, update.ProgressPercentage)
	require.Equal(t, []uint{seed.resources[0].ID}, update.Progress.ViewedResources)

	resp, body = app.do(t, http.MethodGet, progressPath(seed.course.ID, ""), student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body.Meta["cache_hit"])

	var view dto.CourseProgressResponse
	decodeData(t, body, &view)
	require.Equal(t, 50.0, view.ProgressPercentage)
	require.Equal(t, 1, view.ViewedResourcesCount)
	require.EqualValues(t, 2, view.Totals.Resources)

	_, body = app.do(t, http.MethodGet, progressPath(seed.course.ID, ""), student, nil)
	require.Equal(t, true, body.Meta["cache_hit"])

	resp, body = app.do(t, http.MethodGet, "/api/v1/progress/me", student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []dto.ProgressRecordResponse
	decodeData(t, body, &records)
	require.Len(t, records, 1)
	require.Equal(t, seed.course.ID, records[0].CourseID)
}

func TestProgressEventsRejectInvalidInput(t *testing.T) {
	app := newTestApp(t, appOptions{})
	seed := app.seedCourse(t, 1, nil)
	student := app.seedUser(t, models.RoleStudent)

	resp, body := app.do(t, http.MethodPost, "/api/v1/progress/events", student, dto.ProgressEvent{
		CourseID: seed.course.ID,
		Action:   "teleport",
		ItemID:   seed.resources[0].ID,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)

	resp, _ = app.do(t, http.MethodPost, "/api/v1/progress/events", student, dto.ProgressEvent{
		CourseID: seed.course.ID,
		Action:   dto.ActionViewResource,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPost, "/api/v1/progress/events", student, dto.ProgressEvent{
		CourseID: seed.course.ID,
		Action:   dto.ActionViewResource,
		ItemID:   999999,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = app.do(t, http.MethodPost, "/api/v1/progress/events", student, map[string]interface{}{
		"action": dto.ActionViewResource,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body.Details, "courseid")

	var count int64
	require.NoError(t, app.db.Model(&models.ProgressRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestProgressEventsStudentCannotWriteForOthers(t *testing.T) {
	app := newTestApp(t, appOptions{})
	seed := app.seedCourse(t, 2, nil)
	student := app.seedUser(t, models.RoleStudent)
	other := app.seedUser(t, models.RoleStudent)

	resp, body := app.do(t, http.MethodPost, "/api/v1/progress/events", student, dto.ProgressEvent{
		UserID:   other.ID,
		CourseID: seed.course.ID,
		Action:   dto.ActionViewResource,
		ItemID:   seed.resources[1].ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var update dto.ProgressUpdateResponse
	decodeData(t, body, &update)
	require.Equal(t, student.ID, update.Progress.UserID)

	resp, _ = app.do(t, http.MethodGet, progressPath(seed.course.ID, "/detail?user_id="+itoa(other.ID)), student, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = app.do(t, http.MethodGet, progressPath(seed.course.ID, "?user_id="+itoa(student.ID)), seed.owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view dto.CourseProgressResponse
	decodeData(t, body, &view)
	require.Equal(t, student.ID, view.UserID)
	require.Equal(t, 50.0, view.ProgressPercentage)
}

func TestProgressResourceViewAndDetail(t *testing.T) {
	app := newTestApp(t, appOptions{})
	seed := app.seedCourse(t, 4, nil)
	student := app.seedUser(t, models.RoleStudent)

	resp, _ := app.do(t, http.MethodGet, progressPath(seed.course.ID, "/detail"), student, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	chapterID := seed.chapter.ID
	resp, _ = app.do(t, http.MethodPost, "/api/v1/progress/resources", student, dto.ResourceViewRequest{
		CourseID:   seed.course.ID,
		ResourceID: seed.resources[0].ID,
		ChapterID:  &chapterID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := app.do(t, http.MethodGet, progressPath(seed.course.ID, "/detail"), student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail dto.CourseProgressDetailResponse
	decodeData(t, body, &detail)
	require.Equal(t, 25.0, detail.OverallProgress)
	require.Equal(t, 25.0, detail.ResourceProgress)
	require.Equal(t, 100.0, detail.ChapterProgress)
	require.Equal(t, []uint{seed.chapter.ID}, detail.Detailed.ViewedChapters)
}

func TestProgressRecomputeRequiresTeacher(t *testing.T) {
	app := newTestApp(t, appOptions{})
	seed := app.seedCourse(t, 2, nil)
	student := app.seedUser(t, models.RoleStudent)

	resp, _ := app.do(t, http.MethodPost, coursePath(seed.course.ID, "/enroll"), student, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPost, progressPath(seed.course.ID, "/recompute"), student, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := app.do(t, http.MethodPost, progressPath(seed.course.ID, "/recompute"), seed.owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report dto.RecomputeReport
	decodeData(t, body, &report)
	require.Equal(t, seed.course.ID, report.CourseID)
	require.Equal(t, 1, report.Students)
	require.Equal(t, 1, report.Updated)
	require.Empty(t, report.Failures)
}

func TestProgressEventsRateLimited(t *testing.T) {
	app := newTestApp(t, appOptions{eventRateLimit: 2})
	seed := app.seedCourse(t, 1, nil)
	student := app.seedUser(t, models.RoleStudent)

	event := dto.ProgressEvent{CourseID: seed.course.ID, Action: dto.ActionViewResource, ItemID: seed.resources[0].ID}
	for i := 0; i < 2; i++ {
		resp, _ := app.do(t, http.MethodPost, "/api/v1/progress/events", student, event)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := app.do(t, http.MethodPost, "/api/v1/progress/events", student, event)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.False(t, body.Success)
}

func TestProgressRoutesRequireAuthentication(t *testing.T) {
	app := newTestApp(t, appOptions{})

	resp, _ := app.do(t, http.MethodGet, "/api/v1/progress/me", models.Student{}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProgressCourseRosterForTeachers(t *testing.T) {
	app := newTestApp(t, appOptions{})
	seed := app.seedCourse(t, 4, nil)
	student := app.seedUser(t, models.RoleStudent)

	resp, _ := app.do(t, http.MethodPost, coursePath(seed.course.ID, "/enroll"), student, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPost, "/api/v1/progress/events", student, dto.ProgressEvent{
		CourseID: seed.course.ID,
		Action:   dto.ActionViewResource,
		ItemID:   seed.resources[1].ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.do(t, http.MethodGet, progressPath(seed.course.ID, "/students"), student, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := app.do(t, http.MethodGet, progressPath(seed.course.ID, "/students"), seed.owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body.Meta["count"])

	var records []dto.ProgressRecordResponse
	decodeData(t, body, &records)
	require.Len(t, records, 1)
	require.Equal(t, student.ID, records[0].UserID)
	require.Equal(t, 25.0, records[0].ProgressPercentage)
}
