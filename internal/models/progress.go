package models

import "time"

// ItemKind names a class of trackable course content.
type ItemKind string

const (
	ItemKindResource   ItemKind = "resource"
	ItemKindChapter    ItemKind = "chapter"
	ItemKindAssignment ItemKind = "assignment"
	ItemKindQuiz       ItemKind = "quiz"
)

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindResource, ItemKindChapter, ItemKindAssignment, ItemKindQuiz:
		return true
	default:
		return false
	}
}

// ProgressRecord tracks a single student's advance through a single course.
// ProgressPercentage is derived and can always be recomputed from Items and the course totals.
type ProgressRecord struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;uniqueIndex:idx_progress_user_course" json:"user_id"`
	CourseID           uint           `gorm:"not null;uniqueIndex:idx_progress_user_course;index" json:"course_id"`
	ProgressPercentage float64        `gorm:"not null;default:0" json:"progress_percentage"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Items              []ProgressItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// ProgressItem is one member of one of the record's sets.
type ProgressItem struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProgressRecordID uint      `gorm:"not null;uniqueIndex:idx_progress_item_unique" json:"progress_record_id"`
	Kind             ItemKind  `gorm:"size:16;not null;uniqueIndex:idx_progress_item_unique;index:idx_progress_item_lookup" json:"kind"`
	ItemID           uint      `gorm:"not null;uniqueIndex:idx_progress_item_unique;index:idx_progress_item_lookup" json:"item_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// IDs returns the item ids of the given kind in insertion order.
func (p ProgressRecord) IDs(kind ItemKind) []uint {
	ids := make([]uint, 0)
	for _, item := range p.Items {
		if item.Kind == kind {
			ids = append(ids, item.ItemID)
		}
	}
	return ids
}

// Count returns the size of the set for kind.
func (p ProgressRecord) Count(kind ItemKind) int {
	count := 0
	for _, item := range p.Items {
		if item.Kind == kind {
			count++
		}
	}
	return count
}

// Has reports whether itemID is already in the set for kind.
func (p ProgressRecord) Has(kind ItemKind, itemID uint) bool {
	for _, item := range p.Items {
		if item.Kind == kind && item.ItemID == itemID {
			return true
		}
	}
	return false
}
