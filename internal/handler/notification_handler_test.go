package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
)

func TestNotificationInbox(t *testing.T) {
	app := newTestApp(t, appOptions{})
	owner := app.seedUser(t, models.RoleTeacher)
	stranger := app.seedUser(t, models.RoleStudent)

	for i := 0; i < 3; i++ {
		_, err := app.notifications.Publish(context.Background(), dto.NotificationCreateRequest{
			UserID:  owner.ID,
			Type:    models.NotificationTypeAssignment,
			Title:   "New submission",
			Message: fmt.Sprintf("Submission %d", i+1),
		})
		require.NoError(t, err)
	}

	resp, body := app.do(t, http.MethodGet, "/api/v1/notifications?limit=2", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, body.Meta["limit"])

	var page []dto.NotificationResponse
	decodeData(t, body, &page)
	require.Len(t, page, 2)

	resp, _ = app.do(t, http.MethodGet, "/api/v1/notifications?limit=abc", owner, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	readPath := fmt.Sprintf("/api/v1/notifications/%d/read", page[0].ID)
	resp, _ = app.do(t, http.MethodPatch, readPath, stranger, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = app.do(t, http.MethodPatch, readPath, owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var read dto.NotificationResponse
	decodeData(t, body, &read)
	require.True(t, read.Read)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, appOptions{})

	resp, body := app.do(t, http.MethodGet, "/api/v1/health", models.Student{}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "GEMA LMS Test", resp.Header.Get("X-Application"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	var health struct {
		Status       string   `json:"status"`
		Service      string   `json:"service"`
		CountedKinds []string `json:"counted_kinds"`
	}
	decodeData(t, body, &health)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "GEMA LMS Test", health.Service)
	require.Equal(t, []string{"resource", "assignment", "quiz"}, health.CountedKinds)
}
