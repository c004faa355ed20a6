package models

import "time"

const (
	// RoleStudent marks a learner account.
	RoleStudent = "student"
	// RoleTeacher marks a course author.
	RoleTeacher = "teacher"
	// RoleAdmin marks a platform administrator.
	RoleAdmin = "admin"
)

// Student represents any platform account. Learners, teachers and admins share the table.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
