package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// ContentRepository exposes course content lookups and the per-course totals used by progress aggregation.
type ContentRepository interface {
	CountResources(ctx context.Context, courseID uint) (int64, error)
	CountChapters(ctx context.Context, courseID uint) (int64, error)
	CountAssignments(ctx context.Context, courseID uint) (int64, error)
	CountQuizzes(ctx context.Context, courseID uint) (int64, error)
	GetResource(ctx context.Context, id uint) (models.Resource, error)
	GetChapter(ctx context.Context, id uint) (models.Chapter, error)
	CreateResource(ctx context.Context, resource *models.Resource) error
	DeleteResource(ctx context.Context, id uint) error
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository constructs the content repository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) countByCourse(ctx context.Context, model interface{}, courseID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(model).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

func (r *contentRepository) CountResources(ctx context.Context, courseID uint) (int64, error) {
	return r.countByCourse(ctx, &models.Resource{}, courseID)
}

func (r *contentRepository) CountChapters(ctx context.Context, courseID uint) (int64, error) {
	return r.countByCourse(ctx, &models.Chapter{}, courseID)
}

func (r *contentRepository) CountAssignments(ctx context.Context, courseID uint) (int64, error) {
	return r.countByCourse(ctx, &models.Assignment{}, courseID)
}

func (r *contentRepository) CountQuizzes(ctx context.Context, courseID uint) (int64, error) {
	return r.countByCourse(ctx, &models.Quiz{}, courseID)
}

func (r *contentRepository) GetResource(ctx context.Context, id uint) (models.Resource, error) {
	var resource models.Resource
	if err := conn(ctx, r.db).First(&resource, id).Error; err != nil {
		return models.Resource{}, err
	}
	return resource, nil
}

func (r *contentRepository) GetChapter(ctx context.Context, id uint) (models.Chapter, error) {
	var chapter models.Chapter
	if err := conn(ctx, r.db).First(&chapter, id).Error; err != nil {
		return models.Chapter{}, err
	}
	return chapter, nil
}

func (r *contentRepository) CreateResource(ctx context.Context, resource *models.Resource) error {
	return conn(ctx, r.db).Create(resource).Error
}

func (r *contentRepository) DeleteResource(ctx context.Context, id uint) error {
	result := conn(ctx, r.db).Delete(&models.Resource{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
