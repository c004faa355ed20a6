package dto

import (
	"time"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	UserID   uint                   `json:"user_id" validate:"required,gt=0"`
	Type     string                 `json:"type" validate:"required,max=64"`
	Title    string                 `json:"title" validate:"required,max=255"`
	Message  string                 `json:"message" validate:"required,min=1,max=2000"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Read      bool                   `json:"read"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		metadata = map[string]interface{}(model.Metadata)
	}
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Title:     model.Title,
		Message:   model.Message,
		Read:      model.Read,
		Metadata:  metadata,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
