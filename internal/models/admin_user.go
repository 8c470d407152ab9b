package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AdminRole is the closed set of roles an admin row can hold.
type AdminRole string

const (
	RoleStandard   AdminRole = "standard"
	RoleAdmin      AdminRole = "admin"
	RoleSuperAdmin AdminRole = "super_admin"
)

// AdminRoles lists every valid role, lowest privilege first.
var AdminRoles = []AdminRole{RoleStandard, RoleAdmin, RoleSuperAdmin}

// ParseAdminRole accepts exactly one of the three role names.
func ParseAdminRole(s string) (AdminRole, error) {
	switch r := AdminRole(strings.TrimSpace(s)); r {
	case RoleStandard, RoleAdmin, RoleSuperAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("invalid admin role %q", s)
	}
}

// AccessLevel is the minimum privilege a gate requires.
type AccessLevel string

const (
	AccessAdmin      AccessLevel = "admin"
	AccessSuperAdmin AccessLevel = "super_admin"
)

// Allows reports whether a holder of r passes a gate at level. Unknown roles
// and unknown levels are denied.
func (r AdminRole) Allows(level AccessLevel) bool {
	switch r {
	case RoleSuperAdmin:
		switch level {
		case AccessAdmin, AccessSuperAdmin:
			return true
		}
	case RoleAdmin:
		switch level {
		case AccessAdmin:
			return true
		case AccessSuperAdmin:
			return false
		}
	case RoleStandard:
		return false
	}
	return false
}

// AdminUser is the account/role record attached 1:1 to an identity that was
// promoted to admin.
type AdminUser struct {
	UserID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role                     AdminRole `gorm:"type:varchar(20);not null" json:"admin_role"`
	ProfileImageURL          *string   `json:"profile_image_url"`
	ProfileImageThumbnailURL *string   `json:"profile_image_thumbnail_url"`
	AuthorSummary            *string   `gorm:"type:text" json:"author_summary"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}
