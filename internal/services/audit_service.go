package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/beamdash/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	return &AuditService{db: db, logger: logger}
}

// AuditEntry describes one admin action.
type AuditEntry struct {
	ActorID    uuid.UUID
	Action     string
	TargetType string
	TargetID   string
	Details    map[string]any
	IPAddress  string
	UserAgent  string
}

// LogAction logs an admin action to the audit log
func (s *AuditService) LogAction(ctx context.Context, e AuditEntry) error {
	return s.logAction(s.db.WithContext(ctx), e)
}

func (s *AuditService) logAction(tx *gorm.DB, e AuditEntry) error {
	detailsJSON := ""
	if e.Details != nil {
		if jsonBytes, err := json.Marshal(e.Details); err == nil {
			detailsJSON = string(jsonBytes)
		}
	}

	entry := &models.AuditLog{
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Details:    detailsJSON,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}
	if err := tx.Create(entry).Error; err != nil {
		return err
	}

	s.logger.Info("admin action",
		zap.String("actor_id", e.ActorID.String()),
		zap.String("action", e.Action),
		zap.String("target_type", e.TargetType),
		zap.String("target_id", e.TargetID))
	return nil
}

// GetRecentActions retrieves recent admin actions with pagination
func (s *AuditService) GetRecentActions(ctx context.Context, page, limit int, actorID *uuid.UUID, action string) ([]*models.AuditLog, int64, error) {
	var logs []*models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if actorID != nil {
		query = query.Where("actor_id = ?", *actorID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// GetActionCount returns the count of actions in a time window
func (s *AuditService) GetActionCount(ctx context.Context, actorID uuid.UUID, action string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("actor_id = ? AND action = ? AND created_at > ?", actorID, action, since).
		Count(&count).Error
	return count, err
}
