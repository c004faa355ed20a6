package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// StudentRepository looks up platform accounts (students, teachers and admins share one table).
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewStudentRepository returns the account lookup used by roster flows.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &accountRepository{db: db}
}

// GetByID loads the identity columns only; gorm.ErrRecordNotFound when the account is missing.
func (r *accountRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var account models.Student
	err := conn(ctx, r.db).
		Select("id", "name", "email", "role", "created_at", "updated_at").
		Where("id = ?", id).
		Take(&account).Error
	return account, err
}
