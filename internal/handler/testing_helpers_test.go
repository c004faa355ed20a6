package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/router"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

const (
	headerTestUser = "X-Test-User"
	headerTestRole = "X-Test-Role"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]string      `json:"details"`
}

type testApp struct {
	app           *fiber.App
	db            *gorm.DB
	recompute     service.RecomputeOrchestrator
	notifications service.NotificationService
	dispatcher    *service.NotificationDispatcher
}

type appOptions struct {
	eventRateLimit int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// fakeJWT trusts identity headers so tests can switch users per request.
func fakeJWT(c *fiber.Ctx) error {
	if raw := c.Get(headerTestUser); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals(middleware.LocalUserID, uint(id))
		c.Locals(middleware.LocalUserRole, c.Get(headerTestRole))
	}
	return c.Next()
}

func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	progressRepo := repository.NewProgressRepository(db)
	contentRepo := repository.NewContentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	transactor := repository.NewTransactor(db)

	kinds, err := service.ParseCountedKinds([]string{"resource", "assignment", "quiz"})
	require.NoError(t, err)

	aggregator := service.NewProgressAggregator(progressRepo, contentRepo, quizRepo, kinds, logger)
	cache := service.NewProgressCache(redisClient, time.Minute, logger)
	recompute := service.NewRecomputeOrchestrator(courseRepo, aggregator, cache, 4, logger)
	t.Cleanup(recompute.Wait)

	notificationService := service.NewNotificationService(notificationRepo, nil, "", nil, validate, logger)
	dispatcher := service.NewNotificationDispatcher(notificationService, 16, logger)
	dispatcher.Start(context.Background())
	t.Cleanup(dispatcher.Close)

	progressService := service.NewProgressService(progressRepo, contentRepo, assignmentRepo, quizRepo, aggregator, cache, validate, logger)
	enrollmentService := service.NewEnrollmentService(transactor, courseRepo, studentRepo, progressRepo, cache, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, progressRepo, recompute, validate, logger)
	submissionService := service.NewSubmissionService(transactor, submissionRepo, assignmentRepo, courseRepo, progressService, dispatcher, validate, logger)
	quizService := service.NewQuizService(quizRepo, courseRepo, contentRepo, progressRepo, aggregator, cache, recompute, dispatcher, validate, logger)
	resourceService := service.NewResourceService(contentRepo, progressRepo, recompute, validate, logger)

	rateLimit := opts.eventRateLimit
	if rateLimit == 0 {
		rateLimit = 1000
	}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{
		AppName:              "GEMA LMS Test",
		AppEnv:               "test",
		ProgressCountedKinds: []string{"resource", "assignment", "quiz"},
		EventRateLimit:       rateLimit,
		EventRateWindow:      time.Minute,
	}, router.Dependencies{
		ProgressHandler:     handler.NewProgressHandler(progressService, recompute, validate, logger),
		EnrollmentHandler:   handler.NewEnrollmentHandler(enrollmentService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		QuizHandler:         handler.NewQuizHandler(quizService, logger),
		ResourceHandler:     handler.NewResourceHandler(resourceService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		JWTMiddleware:       fakeJWT,
	})

	return &testApp{app: app, db: db, recompute: recompute, notifications: notificationService, dispatcher: dispatcher}
}

func (a *testApp) do(t *testing.T, method, path string, user models.Student, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if user.ID != 0 {
		req.Header.Set(headerTestUser, strconv.FormatUint(uint64(user.ID), 10))
		req.Header.Set(headerTestRole, user.Role)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var payload envelope
	decodeResponse(t, resp, &payload)
	return resp, payload
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func decodeData(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}

func (a *testApp) seedUser(t *testing.T, role string) models.Student {
	t.Helper()
	user := models.Student{
		Name:  "User " + uuid.NewString()[:8],
		Email: uuid.NewString() + "@gema.test",
		Role:  role,
	}
	require.NoError(t, a.db.Create(&user).Error)
	return user
}

type courseSeed struct {
	owner     models.Student
	course    models.Course
	chapter   models.Chapter
	resources []models.Resource
}

func (a *testApp) seedCourse(t *testing.T, resources int, accessKey *string) courseSeed {
	t.Helper()
	owner := a.seedUser(t, models.RoleTeacher)

	course := models.Course{Title: "Web Fundamentals", OwnerID: owner.ID, AccessKey: accessKey}
	require.NoError(t, a.db.Omit("Owner").Create(&course).Error)

	chapter := models.Chapter{CourseID: course.ID, Number: "1", Title: "HTML basics"}
	require.NoError(t, a.db.Create(&chapter).Error)

	seed := courseSeed{owner: owner, course: course, chapter: chapter}
	for i := 0; i < resources; i++ {
		resource := models.Resource{
			CourseID:  course.ID,
			ChapterID: chapter.ID,
			Name:      fmt.Sprintf("Slides %d", i+1),
			URL:       fmt.Sprintf("https://cdn.gema.test/slides-%d.pdf", i+1),
			Type:      models.ResourceTypePDF,
		}
		require.NoError(t, a.db.Create(&resource).Error)
		seed.resources = append(seed.resources, resource)
	}
	return seed
}

func coursePath(courseID uint, suffix string) string {
	return fmt.Sprintf("/api/v1/courses/%d%s", courseID, suffix)
}

func progressPath(courseID uint, suffix string) string {
	return fmt.Sprintf("/api/v1/progress/courses/%d%s", courseID, suffix)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
