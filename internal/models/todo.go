package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RepeatFrequency string

const (
	RepeatNone    RepeatFrequency = "none"
	RepeatDaily   RepeatFrequency = "daily"
	RepeatWeekly  RepeatFrequency = "weekly"
	RepeatMonthly RepeatFrequency = "monthly"
	RepeatYearly  RepeatFrequency = "yearly"
)

// ParseRepeatFrequency maps an empty string to RepeatNone.
func ParseRepeatFrequency(s string) (RepeatFrequency, error) {
	switch f := RepeatFrequency(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return RepeatNone, nil
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return f, nil
	default:
		return "", fmt.Errorf("invalid repeat frequency %q", s)
	}
}

type Todo struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Title           string          `gorm:"not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	IsCompleted     bool            `gorm:"default:false" json:"is_completed"`
	IsImportant     bool            `gorm:"default:false" json:"is_important"`
	DueDate         *time.Time      `json:"due_date"`
	Tags            []string        `gorm:"serializer:json" json:"tags"`
	RepeatFrequency RepeatFrequency `gorm:"type:varchar(20);not null" json:"repeat_frequency"`
	DisplayOrder    int             `gorm:"index;not null" json:"display_order"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (t *Todo) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.RepeatFrequency == "" {
		t.RepeatFrequency = RepeatNone
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return nil
}

// ParseTags splits a comma separated tag string, trimming blanks.
func ParseTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
