package models

import "time"

// Course groups chapters, resources, assignments and quizzes under an owner.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"size:512" json:"image_url"`
	AccessKey   *string   `gorm:"size:64;uniqueIndex" json:"-"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Owner       Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// RequiresAccessKey reports whether enrollment is gated by a key.
func (c Course) RequiresAccessKey() bool {
	return c.AccessKey != nil && *c.AccessKey != ""
}

// Enrollment is one roster entry of a course.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"course_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student;index" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Chapter is an ordered section of a course.
type Chapter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	Number    string    `gorm:"size:32" json:"number"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ResourceTypePDF   = "pdf"
	ResourceTypeVideo = "video"
	ResourceTypeFile  = "file"
)

// Resource is a viewable piece of chapter material.
type Resource struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	ChapterID uint      `gorm:"not null;index" json:"chapter_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	Type      string    `gorm:"size:16;not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
