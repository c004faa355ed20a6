package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// Progress actions accepted by the generic progress event dispatch.
const (
	ActionViewChapter        = "viewChapter"
	ActionViewResource       = "viewResource"
	ActionCompleteAssignment = "completeAssignment"
	ActionCompleteQuiz       = "completeQuiz"
)

// ProgressEvent is an inbound progress trigger, delivered over HTTP or the event bus.
// Action is deliberately not constrained by the validator so unknown actions surface as ErrInvalidAction.
type ProgressEvent struct {
	UserID    uint   `json:"user_id" validate:"required,gt=0"`
	CourseID  uint   `json:"course_id" validate:"required,gt=0"`
	Action    string `json:"action" validate:"required"`
	ItemID    uint   `json:"item_id"`
	ChapterID *uint  `json:"chapter_id,omitempty"`
}

// ResourceViewRequest marks a resource, and optionally its chapter, as viewed.
type ResourceViewRequest struct {
	UserID     uint  `json:"user_id" validate:"required,gt=0"`
	CourseID   uint  `json:"course_id" validate:"required,gt=0"`
	ResourceID uint  `json:"resource_id" validate:"required,gt=0"`
	ChapterID  *uint `json:"chapter_id,omitempty" validate:"omitempty,gt=0"`
}

// ProgressRecordResponse exposes the sets of a progress record.
type ProgressRecordResponse struct {
	ID                   uint      `json:"id"`
	UserID               uint      `json:"user_id"`
	CourseID             uint      `json:"course_id"`
	ViewedResources      []uint    `json:"viewed_resources"`
	ViewedChapters       []uint    `json:"viewed_chapters"`
	CompletedAssignments []uint    `json:"completed_assignments"`
	CompletedQuizzes     []uint    `json:"completed_quizzes"`
	ProgressPercentage   float64   `json:"progress_percentage"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProgressUpdateResponse is returned by mutations: the record after the change and the recomputed percentage.
type ProgressUpdateResponse struct {
	Progress           ProgressRecordResponse `json:"progress"`
	ProgressPercentage float64                `json:"progress_percentage"`
	Changed            bool                   `json:"changed"`
}

// ProgressTotals holds the per-kind item counts of a course.
type ProgressTotals struct {
	Resources   int64 `json:"resources"`
	Chapters    int64 `json:"chapters"`
	Assignments int64 `json:"assignments"`
	Quizzes     int64 `json:"quizzes"`
}

// CourseProgressResponse is the statistics view of a student's progress in a course.
type CourseProgressResponse struct {
	UserID                    uint           `json:"user_id"`
	CourseID                  uint           `json:"course_id"`
	ProgressPercentage        float64        `json:"progress_percentage"`
	ViewedResourcesCount      int            `json:"viewed_resources_count"`
	ViewedChaptersCount       int            `json:"viewed_chapters_count"`
	CompletedAssignmentsCount int            `json:"completed_assignments_count"`
	CompletedQuizzesCount     int64          `json:"completed_quizzes_count"`
	Totals                    ProgressTotals `json:"totals"`
}

// CourseProgressDetailResponse reports a separate ratio per item kind next to the stored overall percentage.
type CourseProgressDetailResponse struct {
	OverallProgress    float64                `json:"overall_progress"`
	ChapterProgress    float64                `json:"chapter_progress"`
	ResourceProgress   float64                `json:"resource_progress"`
	AssignmentProgress float64                `json:"assignment_progress"`
	QuizProgress       float64                `json:"quiz_progress"`
	Detailed           ProgressRecordResponse `json:"detailed_progress"`
	Totals             ProgressTotals         `json:"total_counts"`
}

// RecomputeFailure names one student whose recompute failed.
type RecomputeFailure struct {
	StudentID uint   `json:"student_id"`
	Error     string `json:"error"`
}

// RecomputeReport summarizes a course-wide recompute.
type RecomputeReport struct {
	CourseID uint               `json:"course_id"`
	Students int                `json:"students"`
	Updated  int                `json:"updated"`
	Failures []RecomputeFailure `json:"failures"`
}

// NewProgressRecordResponse converts a record into its DTO.
func NewProgressRecordResponse(record models.ProgressRecord) ProgressRecordResponse {
	return ProgressRecordResponse{
		ID:                   record.ID,
		UserID:               record.UserID,
		CourseID:             record.CourseID,
		ViewedResources:      record.IDs(models.ItemKindResource),
		ViewedChapters:       record.IDs(models.ItemKindChapter),
		CompletedAssignments: record.IDs(models.ItemKindAssignment),
		CompletedQuizzes:     record.IDs(models.ItemKindQuiz),
		ProgressPercentage:   record.ProgressPercentage,
		UpdatedAt:            record.UpdatedAt,
	}
}

// NewProgressRecordResponseSlice converts records into DTOs.
func NewProgressRecordResponseSlice(records []models.ProgressRecord) []ProgressRecordResponse {
	out := make([]ProgressRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, NewProgressRecordResponse(record))
	}
	return out
}
