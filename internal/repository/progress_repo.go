package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// ProgressRepository persists per-(user, course) progress records and their item sets.
type ProgressRepository interface {
	GetOrCreate(ctx context.Context, userID, courseID uint) (models.ProgressRecord, error)
	Find(ctx context.Context, userID, courseID uint) (models.ProgressRecord, error)
	ListByUser(ctx context.Context, userID uint) ([]models.ProgressRecord, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.ProgressRecord, error)
	AddItem(ctx context.Context, recordID uint, kind models.ItemKind, itemID uint) (bool, error)
	RemoveItem(ctx context.Context, recordID uint, kind models.ItemKind, itemID uint) error
	UpdatePercentage(ctx context.Context, recordID uint, percentage float64) error
	Delete(ctx context.Context, userID, courseID uint) error
	PullReference(ctx context.Context, courseID uint, kind models.ItemKind, itemID uint) (int64, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs a GORM-backed progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) withItems(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
}

// GetOrCreate relies on the (user_id, course_id) unique index: the insert is a no-op when
// another caller won the race, and the follow-up read returns the surviving row.
func (r *progressRepository) GetOrCreate(ctx context.Context, userID, courseID uint) (models.ProgressRecord, error) {
	record := models.ProgressRecord{UserID: userID, CourseID: courseID}
	err := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Omit("Items").
		Create(&record).Error
	if err != nil {
		return models.ProgressRecord{}, err
	}

	return r.Find(ctx, userID, courseID)
}

func (r *progressRepository) Find(ctx context.Context, userID, courseID uint) (models.ProgressRecord, error) {
	var record models.ProgressRecord
	if err := r.withItems(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&record).Error; err != nil {
		return models.ProgressRecord{}, err
	}

	return record, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID uint) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	if err := r.withItems(ctx).
		Where("user_id = ?", userID).
		Order("course_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *progressRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	if err := r.withItems(ctx).
		Where("course_id = ?", courseID).
		Order("user_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// AddItem inserts the item when absent. The boolean reports whether the set changed.
func (r *progressRepository) AddItem(ctx context.Context, recordID uint, kind models.ItemKind, itemID uint) (bool, error) {
	item := models.ProgressItem{ProgressRecordID: recordID, Kind: kind, ItemID: itemID}
	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "progress_record_id"}, {Name: "kind"}, {Name: "item_id"}},
			DoNothing: true,
		}).
		Create(&item)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *progressRepository) RemoveItem(ctx context.Context, recordID uint, kind models.ItemKind, itemID uint) error {
	return conn(ctx, r.db).
		Where("progress_record_id = ? AND kind = ? AND item_id = ?", recordID, kind, itemID).
		Delete(&models.ProgressItem{}).Error
}

func (r *progressRepository) UpdatePercentage(ctx context.Context, recordID uint, percentage float64) error {
	return conn(ctx, r.db).
		Model(&models.ProgressRecord{}).
		Where("id = ?", recordID).
		Update("progress_percentage", percentage).Error
}

// Delete removes the record and its items. Deleting an absent record is not an error.
func (r *progressRepository) Delete(ctx context.Context, userID, courseID uint) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var record models.ProgressRecord
		err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("progress_record_id = ?", record.ID).Delete(&models.ProgressItem{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.ProgressRecord{}, record.ID).Error
	})
}

// PullReference drops itemID from the kind set of every record in the course.
func (r *progressRepository) PullReference(ctx context.Context, courseID uint, kind models.ItemKind, itemID uint) (int64, error) {
	records := r.db.Model(&models.ProgressRecord{}).Select("id").Where("course_id = ?", courseID)
	result := conn(ctx, r.db).
		Where("kind = ? AND item_id = ?", kind, itemID).
		Where("progress_record_id IN (?)", records).
		Delete(&models.ProgressItem{})

	return result.RowsAffected, result.Error
}
