package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultMediaPageSize = 50
	MaxMediaPageSize     = 100
)

// Media listing filters. Any other value matches the usage tag exactly.
const (
	FilterStandard = "standard"
	FilterAll      = "all"
)

type MediaPage struct {
	Media    []models.MediaUpload `json:"media"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

// MediaService is the metadata store of uploaded assets.
type MediaService struct {
	db     *gorm.DB
	store  storage.ObjectStore
	audit  *AuditService
	logger *zap.Logger
}

func NewMediaService(db *gorm.DB, store storage.ObjectStore, audit *AuditService, logger *zap.Logger) *MediaService {
	return &MediaService{
		db:     db,
		store:  store,
		audit:  audit,
		logger: logger,
	}
}

// CreatePlaceholder reserves a row, and with it the count id and random
// suffix of the storage name, before any processing happens.
func (s *MediaService) CreatePlaceholder(ctx context.Context, userID uuid.UUID, originalName string) (*models.MediaUpload, error) {
	m := &models.MediaUpload{
		UserID:           userID,
		OriginalFileName: originalName,
		Status:           models.MediaStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("insert placeholder: %w", err)
	}
	return m, nil
}

// Finalize writes the processed file metadata and marks the row uploaded.
func (s *MediaService) Finalize(ctx context.Context, m *models.MediaUpload) error {
	m.Status = models.MediaStatusUploaded
	res := s.db.WithContext(ctx).Model(&models.MediaUpload{}).
		Where("media_id = ? AND user_id = ?", m.MediaID, m.UserID).
		Updates(map[string]any{
			"file_name":      m.FileName,
			"file_type":      m.FileType,
			"file_size":      m.FileSize,
			"storage_path":   m.StoragePath,
			"thumbnail_path": m.ThumbnailPath,
			"used_elsewhere": m.UsedElsewhere,
			"status":         m.Status,
		})
	if res.Error != nil {
		return fmt.Errorf("finalize media: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finalize media %s: %w", m.MediaID, ErrNotFound)
	}
	return nil
}

// DeletePlaceholder removes a row that never left the pending state.
func (s *MediaService) DeletePlaceholder(ctx context.Context, mediaID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("media_id = ? AND status = ?", mediaID, models.MediaStatusPending).
		Delete(&models.MediaUpload{}).Error
}

// List returns a page of media, newest first.
func (s *MediaService) List(ctx context.Context, page, pageSize int, filterBy string) (*MediaPage, error) {
	if page < 1 || pageSize < 1 {
		return nil, invalid("Invalid pagination parameters.")
	}
	if pageSize > MaxMediaPageSize {
		pageSize = MaxMediaPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.MediaUpload{})
	switch filterBy {
	case FilterStandard, "":
		query = query.Where("used_elsewhere IS NULL")
	case FilterAll:
	default:
		query = query.Where("used_elsewhere = ?", filterBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count media: %w", err)
	}

	media := []models.MediaUpload{}
	if err := query.Order("created_at DESC").Order("count_id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&media).Error; err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	for i := range media {
		s.fillURLs(&media[i])
	}

	return &MediaPage{Media: media, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *MediaService) Get(ctx context.Context, mediaID uuid.UUID) (*models.MediaUpload, error) {
	var m models.MediaUpload
	if err := s.db.WithContext(ctx).First(&m, "media_id = ?", mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.fillURLs(&m)
	return &m, nil
}

// UpdateDescription edits the description of one of the caller's own assets.
// Last write wins.
func (s *MediaService) UpdateDescription(ctx context.Context, userID, mediaID uuid.UUID, description string) (*models.MediaUpload, error) {
	if strings.TrimSpace(description) == "" {
		return nil, invalid("Missing description in request body")
	}

	res := s.db.WithContext(ctx).Model(&models.MediaUpload{}).
		Where("media_id = ? AND user_id = ?", mediaID, userID).
		Update("description", description)
	if res.Error != nil {
		return nil, fmt.Errorf("update media: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, mediaID)
}

// Delete removes the row and both storage objects. Owners may delete their
// own assets; admins may delete any. The row and its audit entry commit
// together; the objects go only after that commit, so a failed delete never
// leaves a row pointing at missing files.
func (s *MediaService) Delete(ctx context.Context, caller Caller, mediaID uuid.UUID, meta RequestMeta) error {
	var m models.MediaUpload
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, "media_id = ?", mediaID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if m.UserID != caller.ID && !caller.Can(models.AccessAdmin) {
			return ErrNotFound
		}

		if m.UserID != caller.ID {
			err := s.audit.logAction(tx, AuditEntry{
				ActorID:    caller.ID,
				Action:     models.ActionDeleteMedia,
				TargetType: "media",
				TargetID:   m.MediaID.String(),
				Details:    map[string]any{"owner_id": m.UserID, "storage_path": m.StoragePath},
				IPAddress:  meta.IPAddress,
				UserAgent:  meta.UserAgent,
			})
			if err != nil {
				return err
			}
		}
		if err := tx.Delete(&m).Error; err != nil {
			return fmt.Errorf("delete media row: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, m.StoragePath, m.ThumbnailPath); err != nil {
		// The row is gone; leftover objects are unreachable but harmless.
		s.logger.Error("media objects left behind",
			zap.String("media_id", m.MediaID.String()),
			zap.String("storage_path", m.StoragePath),
			zap.String("thumbnail_path", m.ThumbnailPath),
			zap.Error(err))
	}
	return nil
}

func (s *MediaService) fillURLs(m *models.MediaUpload) {
	m.URL = s.store.PublicURL(m.StoragePath)
	m.ThumbnailURL = s.store.PublicURL(m.ThumbnailPath)
}
