package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// QuizRepository persists quizzes and their attempts.
type QuizRepository interface {
	GetByID(ctx context.Context, id uint) (models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id uint) error
	SaveAttempt(ctx context.Context, attempt *models.QuizAttempt) (bool, error)
	GetAttempt(ctx context.Context, userID, quizID uint) (models.QuizAttempt, error)
	CountCompletedAttempts(ctx context.Context, userID, courseID uint) (int64, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository constructs the quiz repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := conn(ctx, r.db).First(&quiz, id).Error; err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return conn(ctx, r.db).Create(quiz).Error
}

// Delete removes the quiz together with every attempt made on it.
func (r *quizRepository) Delete(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&models.QuizAttempt{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Quiz{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SaveAttempt upserts the single attempt of (user, quiz) and reloads the stored row into attempt.
// The boolean reports whether the row was created rather than overwritten.
func (r *quizRepository) SaveAttempt(ctx context.Context, attempt *models.QuizAttempt) (bool, error) {
	var stored models.QuizAttempt
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "quiz_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"course_id", "chapter_id", "score", "total_questions", "completed", "completed_at", "updated_at",
				}),
			}).
			Create(attempt).Error
		if err != nil {
			return err
		}

		return tx.Where("user_id = ? AND quiz_id = ?", attempt.UserID, attempt.QuizID).First(&stored).Error
	})
	if err != nil {
		return false, err
	}

	*attempt = stored
	return !stored.UpdatedAt.After(stored.CreatedAt), nil
}

func (r *quizRepository) GetAttempt(ctx context.Context, userID, quizID uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := conn(ctx, r.db).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		First(&attempt).Error; err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}

func (r *quizRepository) CountCompletedAttempts(ctx context.Context, userID, courseID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&models.QuizAttempt{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&count).Error
	return count, err
}
