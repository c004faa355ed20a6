package models

import "time"

// Quiz is a chapter quiz. Questions live with the quiz authoring flow.
type Quiz struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	ChapterID uint      `gorm:"not null;index" json:"chapter_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	TimeLimit int       `gorm:"not null;default:30" json:"time_limit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizAttempt is the authoritative record of a student's quiz result.
// There is at most one attempt per (user, quiz); re-submitting overwrites it.
type QuizAttempt struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_attempt_user_quiz;index:idx_attempt_user_course" json:"user_id"`
	QuizID         uint      `gorm:"not null;uniqueIndex:idx_attempt_user_quiz" json:"quiz_id"`
	CourseID       uint      `gorm:"not null;index:idx_attempt_user_course" json:"course_id"`
	ChapterID      uint      `gorm:"not null" json:"chapter_id"`
	Score          float64   `gorm:"not null" json:"score"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	Completed      bool      `gorm:"not null;default:false" json:"completed"`
	CompletedAt    time.Time `json:"completed_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
