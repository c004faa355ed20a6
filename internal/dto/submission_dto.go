package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// SubmissionCreateRequest describes an assignment hand-in.
type SubmissionCreateRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required,gt=0"`
	StudentID    uint   `json:"student_id" validate:"required,gt=0"`
	Content      string `json:"content" validate:"required,min=1"`
}

// SubmissionGradeRequest is used to grade a submission.
type SubmissionGradeRequest struct {
	Grade    float64 `json:"grade" validate:"gte=0,lte=100"`
	Feedback *string `json:"feedback" validate:"omitempty,min=3"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	CourseID     uint      `json:"course_id"`
	StudentID    uint      `json:"student_id"`
	Content      string    `json:"content"`
	Status       string    `json:"status"`
	Grade        *float64  `json:"grade"`
	Feedback     string    `json:"feedback"`
	SubmittedAt  time.Time `json:"submitted_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		CourseID:     model.Assignment.CourseID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		Status:       model.Status,
		Grade:        model.Grade,
		Feedback:     model.Feedback,
		SubmittedAt:  model.SubmittedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewSubmissionResponseSlice converts submissions into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
