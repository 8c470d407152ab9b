package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/pkg/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileUpdate lists the profile fields a caller may change. Author summary
// and profile image live on the admin row and need one.
type ProfileUpdate struct {
	Name                *string    `json:"name"`
	AuthorSummary       *string    `json:"author_summary"`
	ProfileImageMediaID *uuid.UUID `json:"profile_image_media_id"`
	ClearProfileImage   bool       `json:"clear_profile_image"`
}

type UserService struct {
	db    *gorm.DB
	media *MediaService
	audit *AuditService
}

func NewUserService(db *gorm.DB, media *MediaService, audit *AuditService) *UserService {
	return &UserService{db: db, media: media, audit: audit}
}

// GetProfile retrieves a user with its admin row, if any.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserView, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("AdminUser").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &UserView{User: user, IsVerified: user.IsVerified()}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller Caller, in ProfileUpdate, meta RequestMeta) (*UserView, error) {
	adminFields := in.AuthorSummary != nil || in.ProfileImageMediaID != nil || in.ClearProfileImage
	if in.Name == nil && !adminFields {
		return nil, invalid("No valid fields to update")
	}
	if adminFields && caller.Role == "" {
		return nil, ErrForbidden
	}

	adminUpdates := map[string]any{}
	if in.AuthorSummary != nil {
		summary := validation.SanitizeString(*in.AuthorSummary)
		adminUpdates["author_summary"] = &summary
	}
	switch {
	case in.ClearProfileImage:
		adminUpdates["profile_image_url"] = nil
		adminUpdates["profile_image_thumbnail_url"] = nil
	case in.ProfileImageMediaID != nil:
		m, err := s.media.Get(ctx, *in.ProfileImageMediaID)
		if err != nil {
			return nil, err
		}
		if m.UserID != caller.ID {
			return nil, ErrNotFound
		}
		adminUpdates["profile_image_url"] = m.URL
		adminUpdates["profile_image_thumbnail_url"] = m.ThumbnailURL
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Name != nil {
			name := validation.SanitizeString(*in.Name)
			if name == "" {
				return invalid("Name must not be empty")
			}
			if err := tx.Model(&models.User{}).Where("id = ?", caller.ID).Update("name", name).Error; err != nil {
				return err
			}
		}
		if len(adminUpdates) == 0 {
			return nil
		}

		res := tx.Model(&models.AdminUser{}).Where("user_id = ?", caller.ID).Updates(adminUpdates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrForbidden
		}
		if in.ProfileImageMediaID != nil && !in.ClearProfileImage {
			tag := models.UsageProfileImage
			if err := tx.Model(&models.MediaUpload{}).
				Where("media_id = ?", *in.ProfileImageMediaID).
				Update("used_elsewhere", &tag).Error; err != nil {
				return fmt.Errorf("tag profile image: %w", err)
			}
		}

		fields := make([]string, 0, len(adminUpdates))
		for k := range adminUpdates {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		return s.audit.logAction(tx, AuditEntry{
			ActorID:    caller.ID,
			Action:     models.ActionUpdateProfile,
			TargetType: "user",
			TargetID:   caller.ID.String(),
			Details:    map[string]any{"fields": strings.Join(fields, ",")},
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, caller.ID)
}
