package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func TestResourceLifecycleRecomputesProgress(t *testing.T) {
	app := newTestApp(t, appOptions{})
	seed := app.seedCourse(t, 1, nil)
	student := app.seedUser(t, models.RoleStudent)

	resp, _ := app.do(t, http.MethodPost, coursePath(seed.course.ID, "/enroll"), student, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = app.do(t, http.MethodPost, "/api/v1/progress/events", student, dto.ProgressEvent{
		CourseID: seed.course.ID,
		Action:   dto.ActionViewResource,
		ItemID:   seed.resources[0].ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := dto.ResourceCreateRequest{
		CourseID:  seed.course.ID,
		ChapterID: seed.chapter.ID,
		Name:      "Box model video",
		URL:       "https://cdn.gema.test/box-model.mp4",
		Type:      models.ResourceTypeVideo,
	}

	resp, _ = app.do(t, http.MethodPost, "/api/v1/resources", student, payload)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := app.do(t, http.MethodPost, "/api/v1/resources", seed.owner, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.ResourceResponse
	decodeData(t, body, &created)
	require.Equal(t, seed.chapter.ID, created.ChapterID)
	app.recompute.Wait()

	require.Equal(t, 50.0, storedPercentage(t, app, student.ID, seed.course.ID))

	resp, _ = app.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/resources/%d", seed.resources[0].ID), seed.owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	app.recompute.Wait()

	var record models.ProgressRecord
	require.NoError(t, app.db.Where("user_id = ? AND course_id = ?", student.ID, seed.course.ID).First(&record).Error)
	require.Zero(t, record.ProgressPercentage)

	var items int64
	require.NoError(t, app.db.Model(&models.ProgressItem{}).Where("progress_record_id = ?", record.ID).Count(&items).Error)
	require.Zero(t, items)
}

func storedPercentage(t *testing.T, app *testApp, userID, courseID uint) float64 {
	t.Helper()
	var record models.ProgressRecord
	require.NoError(t, app.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&record).Error)
	return record.ProgressPercentage
}
