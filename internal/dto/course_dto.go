package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// EnrollmentRequest enrolls the authenticated student into a course.
type EnrollmentRequest struct {
	AccessKey string `json:"access_key" validate:"omitempty,max=64"`
}

// ResourceCreateRequest adds a resource to a chapter.
type ResourceCreateRequest struct {
	CourseID  uint   `json:"course_id" validate:"required,gt=0"`
	ChapterID uint   `json:"chapter_id" validate:"required,gt=0"`
	Name      string `json:"name" validate:"required,min=1,max=255"`
	URL       string `json:"url" validate:"required,url"`
	Type      string `json:"type" validate:"required,oneof=pdf video file"`
}

// ResourceResponse is the serialized resource.
type ResourceResponse struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	ChapterID uint      `json:"chapter_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// NewResourceResponse converts a resource model.
func NewResourceResponse(model models.Resource) ResourceResponse {
	return ResourceResponse{
		ID:        model.ID,
		CourseID:  model.CourseID,
		ChapterID: model.ChapterID,
		Name:      model.Name,
		URL:       model.URL,
		Type:      model.Type,
		CreatedAt: model.CreatedAt,
	}
}
