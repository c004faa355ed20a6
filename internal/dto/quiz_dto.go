package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// QuizCreateRequest creates a chapter quiz.
type QuizCreateRequest struct {
	CourseID  uint   `json:"course_id" validate:"required,gt=0"`
	ChapterID uint   `json:"chapter_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required,min=3,max=255"`
	TimeLimit int    `json:"time_limit" validate:"omitempty,gt=0"`
}

// QuizResponse is the serialized quiz.
type QuizResponse struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	ChapterID uint      `json:"chapter_id"`
	Title     string    `json:"title"`
	TimeLimit int       `json:"time_limit"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizAttemptRequest saves a student's quiz result.
type QuizAttemptRequest struct {
	UserID         uint    `json:"user_id" validate:"required,gt=0"`
	QuizID         uint    `json:"quiz_id" validate:"required,gt=0"`
	Score          float64 `json:"score" validate:"gte=0,lte=100"`
	TotalQuestions int     `json:"total_questions" validate:"required,gte=1"`
	Completed      bool    `json:"completed"`
}

// QuizAttemptResponse is the serialized attempt.
type QuizAttemptResponse struct {
	ID                 uint      `json:"id"`
	UserID             uint      `json:"user_id"`
	QuizID             uint      `json:"quiz_id"`
	CourseID           uint      `json:"course_id"`
	Score              float64   `json:"score"`
	TotalQuestions     int       `json:"total_questions"`
	Completed          bool      `json:"completed"`
	CompletedAt        time.Time `json:"completed_at"`
	ProgressPercentage float64   `json:"progress_percentage"`
}

// NewQuizResponse converts a quiz model.
func NewQuizResponse(model models.Quiz) QuizResponse {
	return QuizResponse{
		ID:        model.ID,
		CourseID:  model.CourseID,
		ChapterID: model.ChapterID,
		Title:     model.Title,
		TimeLimit: model.TimeLimit,
		CreatedAt: model.CreatedAt,
	}
}

// NewQuizAttemptResponse converts an attempt model.
func NewQuizAttemptResponse(model models.QuizAttempt, percentage float64) QuizAttemptResponse {
	return QuizAttemptResponse{
		ID:                 model.ID,
		UserID:             model.UserID,
		QuizID:             model.QuizID,
		CourseID:           model.CourseID,
		Score:              model.Score,
		TotalQuestions:     model.TotalQuestions,
		Completed:          model.Completed,
		CompletedAt:        model.CompletedAt,
		ProgressPercentage: percentage,
	}
}
