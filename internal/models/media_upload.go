package models

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaStatus string

const (
	MediaStatusPending  MediaStatus = "pending"
	MediaStatusUploaded MediaStatus = "uploaded"
)

// Usage tags written to UsedElsewhere by other features.
const (
	UsageProfileImage = "profile_image"
	UsageBlog         = "blog"
)

// MediaUpload is the metadata row of one uploaded asset. CountID is a
// monotonically increasing sequence; together with RandomNumber it forms the
// collision-resistant storage file name.
type MediaUpload struct {
	CountID          uint64      `gorm:"primaryKey;autoIncrement" json:"count_id"`
	MediaID          uuid.UUID   `gorm:"type:uuid;uniqueIndex;not null" json:"media_id"`
	RandomNumber     int         `gorm:"not null" json:"random_number"`
	UserID           uuid.UUID   `gorm:"type:uuid;index;not null" json:"user_id"`
	OriginalFileName string      `json:"original_file_name"`
	FileName         string      `json:"file_name"`
	FileType         string      `gorm:"size:120" json:"file_type"`
	FileSize         int64       `json:"file_size"`
	StoragePath      string      `gorm:"size:512" json:"storage_path"`
	ThumbnailPath    string      `gorm:"size:512" json:"thumbnail_path"`
	Description      string      `gorm:"type:text" json:"description"`
	UsedElsewhere    *string     `gorm:"size:64;index" json:"used_elsewhere"`
	Status           MediaStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// Filled from the object store on read, never persisted.
	URL          string `gorm:"-" json:"url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`
}

func (MediaUpload) TableName() string {
	return "media_uploads"
}

func (m *MediaUpload) BeforeCreate(tx *gorm.DB) error {
	if m.MediaID == uuid.Nil {
		m.MediaID = uuid.New()
	}
	if m.RandomNumber == 0 {
		m.RandomNumber = 100000 + rand.IntN(900000)
	}
	if m.Status == "" {
		m.Status = MediaStatusPending
	}
	return nil
}

// BaseName is the extension-less storage file name, e.g. "00042-583920".
func (m *MediaUpload) BaseName() string {
	return fmt.Sprintf("%05d-%d", m.CountID, m.RandomNumber)
}
