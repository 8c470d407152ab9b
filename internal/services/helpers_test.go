package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/beamdash/backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "services.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))
	return db
}

// seedUser inserts an identity. A non-empty role also marks it admin and
// gives it an admin row.
func seedUser(t *testing.T, db *gorm.DB, email string, role models.AdminRole) *models.User {
	t.Helper()
	now := time.Now()
	u := &models.User{
		Email:            email,
		PasswordHash:     "x",
		Name:             email,
		IsAdmin:          role != "",
		EmailConfirmedAt: &now,
	}
	require.NoError(t, db.Create(u).Error)
	if role != "" {
		require.NoError(t, db.Create(&models.AdminUser{UserID: u.ID, Role: role}).Error)
	}
	return u
}

func callerOf(u *models.User, role models.AdminRole) Caller {
	return Caller{ID: u.ID, Role: role}
}

func testLogger() *zap.Logger { return zap.NewNop() }

func newAudit(db *gorm.DB) *AuditService { return NewAuditService(db, testLogger()) }

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
