package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

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

type recordingEmitter struct {
	mu       sync.Mutex
	payloads []dto.NotificationCreateRequest
}

func (r *recordingEmitter) Emit(payload dto.NotificationCreateRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

func (r *recordingEmitter) Sent() []dto.NotificationCreateRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dto.NotificationCreateRequest, len(r.payloads))
	copy(out, r.payloads)
	return out
}

// progressFixture wires the progress engine over a fresh SQLite database and a miniredis cache.
type progressFixture struct {
	db          *gorm.DB
	transactor  repository.Transactor
	redis       *miniredis.Miniredis
	validate    *validator.Validate
	logger      zerolog.Logger
	progressRep repository.ProgressRepository
	content     repository.ContentRepository
	courses     repository.CourseRepository
	students    repository.StudentRepository
	quizzes     repository.QuizRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *ProgressCache
	aggregator  ProgressAggregator
	recompute   RecomputeOrchestrator
	progress    ProgressService
	notifier    *recordingEmitter
}

func newProgressFixture(t *testing.T, kinds ...models.ItemKind) *progressFixture {
	t.Helper()

	db := setupTestDB(t)
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &progressFixture{
		db:          db,
		transactor:  repository.NewTransactor(db),
		redis:       mini,
		validate:    validator.New(),
		logger:      zerolog.Nop(),
		progressRep: repository.NewProgressRepository(db),
		content:     repository.NewContentRepository(db),
		courses:     repository.NewCourseRepository(db),
		students:    repository.NewStudentRepository(db),
		quizzes:     repository.NewQuizRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		notifier:    &recordingEmitter{},
	}
	f.cache = NewProgressCache(client, time.Minute, f.logger)
	f.aggregator = NewProgressAggregator(f.progressRep, f.content, f.quizzes, kinds, f.logger)
	f.recompute = NewRecomputeOrchestrator(f.courses, f.aggregator, f.cache, 4, f.logger)
	f.progress = NewProgressService(f.progressRep, f.content, f.assignments, f.quizzes, f.aggregator, f.cache, f.validate, f.logger)

	// Scheduled recomputes must finish before the database closes.
	t.Cleanup(f.recompute.Wait)
	return f
}

func (f *progressFixture) seedStudent(t *testing.T, role string) models.Student {
	t.Helper()
	student := models.Student{
		Name:  "User " + uuid.NewString()[:8],
		Email: uuid.NewString() + "@gema.test",
		Role:  role,
	}
	require.NoError(t, f.db.Create(&student).Error)
	return student
}

func (f *progressFixture) seedCourse(t *testing.T) models.Course {
	t.Helper()
	owner := f.seedStudent(t, models.RoleTeacher)
	course := models.Course{Title: "Web Fundamentals", OwnerID: owner.ID}
	require.NoError(t, f.db.Omit("Owner").Create(&course).Error)
	return course
}

func (f *progressFixture) seedChapter(t *testing.T, courseID uint) models.Chapter {
	t.Helper()
	chapter := models.Chapter{CourseID: courseID, Number: "1", Title: "Getting started"}
	require.NoError(t, f.db.Create(&chapter).Error)
	return chapter
}

func (f *progressFixture) seedResources(t *testing.T, courseID, chapterID uint, n int) []models.Resource {
	t.Helper()
	resources := make([]models.Resource, 0, n)
	for i := 0; i < n; i++ {
		resource := models.Resource{
			CourseID:  courseID,
			ChapterID: chapterID,
			Name:      fmt.Sprintf("Resource %d", i+1),
			URL:       fmt.Sprintf("https://cdn.gema.test/%d.pdf", i+1),
			Type:      models.ResourceTypePDF,
		}
		require.NoError(t, f.db.Create(&resource).Error)
		resources = append(resources, resource)
	}
	return resources
}

func (f *progressFixture) seedAssignments(t *testing.T, courseID uint, n int) []models.Assignment {
	t.Helper()
	assignments := make([]models.Assignment, 0, n)
	for i := 0; i < n; i++ {
		assignment := models.Assignment{
			CourseID:    courseID,
			Title:       fmt.Sprintf("Assignment %d", i+1),
			Description: "Build a landing page",
			DueDate:     time.Now().Add(72 * time.Hour),
			MaxPoints:   100,
		}
		require.NoError(t, f.db.Create(&assignment).Error)
		assignments = append(assignments, assignment)
	}
	return assignments
}

func (f *progressFixture) seedQuizzes(t *testing.T, courseID, chapterID uint, n int) []models.Quiz {
	t.Helper()
	quizzes := make([]models.Quiz, 0, n)
	for i := 0; i < n; i++ {
		quiz := models.Quiz{CourseID: courseID, ChapterID: chapterID, Title: fmt.Sprintf("Quiz %d", i+1), TimeLimit: 30}
		require.NoError(t, f.db.Create(&quiz).Error)
		quizzes = append(quizzes, quiz)
	}
	return quizzes
}

func (f *progressFixture) enroll(t *testing.T, courseID, studentID uint) {
	t.Helper()
	_, err := f.courses.Enroll(context.Background(), courseID, studentID)
	require.NoError(t, err)
	_, err = f.progressRep.GetOrCreate(context.Background(), studentID, courseID)
	require.NoError(t, err)
}

func (f *progressFixture) storedPercentage(t *testing.T, userID, courseID uint) float64 {
	t.Helper()
	record, err := f.progressRep.Find(context.Background(), userID, courseID)
	require.NoError(t, err)
	return record.ProgressPercentage
}
