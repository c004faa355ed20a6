package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// CourseRepository provides course lookups and roster management.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	EnrolledStudentIDs(ctx context.Context, courseID uint) ([]uint, error)
	IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error)
	Enroll(ctx context.Context, courseID, studentID uint) (bool, error)
	Unenroll(ctx context.Context, courseID, studentID uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := conn(ctx, r.db).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) EnrolledStudentIDs(ctx context.Context, courseID uint) ([]uint, error) {
	ids := make([]uint, 0)
	if err := conn(ctx, r.db).
		Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *courseRepository) IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error
	return count > 0, err
}

// Enroll adds the student to the roster. The boolean is false when the student was already enrolled.
func (r *courseRepository) Enroll(ctx context.Context, courseID, studentID uint) (bool, error) {
	enrollment := models.Enrollment{CourseID: courseID, StudentID: studentID}
	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(&enrollment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *courseRepository) Unenroll(ctx context.Context, courseID, studentID uint) error {
	return conn(ctx, r.db).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Delete(&models.Enrollment{}).Error
}
