package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeEntry is one worked block of hours for a user on a date.
type TimeEntry struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	EntryDate   DateOnly  `gorm:"column:entry_date;type:date;not null;index" json:"entry_date"`
	Hours       float64   `gorm:"column:hours;type:decimal(5,2);not null" json:"hours"`
	Project     string    `gorm:"column:project;not null" json:"project"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

func (t *TimeEntry) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
