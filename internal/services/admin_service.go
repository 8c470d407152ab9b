package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/beamdash/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UsersPerPage is the fixed page size of the user listing.
const UsersPerPage = 10

// User listing filters.
const (
	UserTypeAdmin    = "admin"
	UserTypeCustomer = "customer"
)

// UserView is an identity as the admin listing returns it.
type UserView struct {
	models.User
	IsVerified bool `json:"is_verified"`
}

type UserPage struct {
	Users    []UserView `json:"users"`
	Total    int64      `json:"total"`
	LastPage int        `json:"lastPage"`
}

// RequestMeta identifies where an admin action came from, for the audit log.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type AdminService struct {
	db     *gorm.DB
	audit  *AuditService
	logger *zap.Logger
}

func NewAdminService(db *gorm.DB, audit *AuditService, logger *zap.Logger) *AdminService {
	return &AdminService{db: db, audit: audit, logger: logger}
}

// ListUsers pages through admins or customers, newest first. Admin rows are
// merged into admin results only.
func (s *AdminService) ListUsers(ctx context.Context, userType string, page int) (*UserPage, error) {
	if page < 1 {
		return nil, invalid("Invalid page parameter")
	}
	query := s.db.WithContext(ctx).Model(&models.User{})
	switch userType {
	case UserTypeAdmin:
		query = query.Where("is_admin = ?", true).Preload("AdminUser")
	case UserTypeCustomer:
		query = query.Where("is_admin = ?", false)
	default:
		return nil, invalid("Invalid userType parameter")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Order("id ASC").
		Offset((page - 1) * UsersPerPage).
		Limit(UsersPerPage).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := &UserPage{
		Users:    make([]UserView, 0, len(users)),
		Total:    total,
		LastPage: LastPage(total, UsersPerPage),
	}
	for _, u := range users {
		out.Users = append(out.Users, UserView{User: u, IsVerified: u.IsVerified()})
	}
	return out, nil
}

// LastPage is ceil(total/pageSize); zero when there is nothing to page.
func LastPage(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// ResolveRole reads the caller's role from the admin table. ok is false when
// the user has no admin row.
func (s *AdminService) ResolveRole(ctx context.Context, userID uuid.UUID) (models.AdminRole, bool, error) {
	return resolveRole(s.db.WithContext(ctx), userID)
}

func resolveRole(tx *gorm.DB, userID uuid.UUID) (models.AdminRole, bool, error) {
	var row models.AdminUser
	err := tx.Select("user_id", "role").First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Role, true, nil
}

// requireSuperAdmin re-reads the caller's role; whatever the request claims
// about the caller is ignored.
func requireSuperAdmin(tx *gorm.DB, callerID uuid.UUID) error {
	role, ok, err := resolveRole(tx, callerID)
	if err != nil {
		return err
	}
	if !ok || !role.Allows(models.AccessSuperAdmin) {
		return ErrForbidden
	}
	return nil
}

// PromoteCustomer marks a standard identity as admin and gives it a
// standard admin row.
func (s *AdminService) PromoteCustomer(ctx context.Context, callerID, targetID uuid.UUID, meta RequestMeta) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSuperAdmin(tx, callerID); err != nil {
			return err
		}

		var target models.User
		if err := tx.First(&target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if target.IsAdmin {
			return ErrAlreadyAdmin
		}

		if err := tx.Model(&target).Update("is_admin", true).Error; err != nil {
			return fmt.Errorf("mark admin: %w", err)
		}

		row := models.AdminUser{}
		if err := tx.Where(models.AdminUser{UserID: targetID}).
			Attrs(models.AdminUser{Role: models.RoleStandard}).
			FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("create admin row: %w", err)
		}

		return s.audit.logAction(tx, AuditEntry{
			ActorID:    callerID,
			Action:     models.ActionPromoteUser,
			TargetType: "user",
			TargetID:   targetID.String(),
			Details:    map[string]any{"role": row.Role},
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("user promoted to admin", zap.String("user_id", targetID.String()))
	return nil
}

// UpdateAdminRole changes the role of an existing admin.
func (s *AdminService) UpdateAdminRole(ctx context.Context, callerID, targetID uuid.UUID, newRole string, meta RequestMeta) error {
	role, err := models.ParseAdminRole(newRole)
	if err != nil {
		return ErrInvalidRole
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSuperAdmin(tx, callerID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", targetID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		var row models.AdminUser
		if err := tx.First(&row, "user_id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotAdmin
			}
			return err
		}
		previous := row.Role

		if err := tx.Model(&row).Update("role", role).Error; err != nil {
			return fmt.Errorf("update role: %w", err)
		}

		return s.audit.logAction(tx, AuditEntry{
			ActorID:    callerID,
			Action:     models.ActionUpdateRole,
			TargetType: "user",
			TargetID:   targetID.String(),
			Details:    map[string]any{"from": previous, "to": role},
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
		})
	})
}
