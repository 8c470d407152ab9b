package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beamdash/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReminderInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	RemindAt    *time.Time `json:"remind_at"`
}

// ReminderService scopes every query to the identity in the caller's token.
type ReminderService struct {
	db *gorm.DB
}

func NewReminderService(db *gorm.DB) *ReminderService {
	return &ReminderService{db: db}
}

// List returns the caller's reminders. A super admin sees everyone's,
// ordered by user id descending.
func (s *ReminderService) List(ctx context.Context, caller Caller) ([]models.Reminder, error) {
	reminders := []models.Reminder{}
	query := s.db.WithContext(ctx)
	if caller.Can(models.AccessSuperAdmin) {
		query = query.Order("user_id DESC").Order("created_at DESC")
	} else {
		query = query.Where("user_id = ?", caller.ID).Order("created_at DESC")
	}
	if err := query.Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

func (s *ReminderService) Create(ctx context.Context, userID uuid.UUID, in ReminderInput) (*models.Reminder, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("Title is required")
	}
	r := &models.Reminder{
		UserID:      userID,
		Title:       title,
		Description: in.Description,
		RemindAt:    in.RemindAt,
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderService) Delete(ctx context.Context, caller Caller, reminderID uuid.UUID) error {
	var r models.Reminder
	if err := s.db.WithContext(ctx).First(&r, "reminder_id = ?", reminderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if r.UserID != caller.ID && !caller.Can(models.AccessSuperAdmin) {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Delete(&r).Error
}
