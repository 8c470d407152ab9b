package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Reminder struct {
	ReminderID  uuid.UUID  `gorm:"type:uuid;primaryKey;column:reminder_id" json:"reminder_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	RemindAt    *time.Time `json:"remind_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ReminderID == uuid.Nil {
		r.ReminderID = uuid.New()
	}
	return nil
}
