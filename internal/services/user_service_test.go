package services

import (
	"context"
	"testing"

	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfileName(t *testing.T) {
	db := newTestDB(t)
	mediaSvc := NewMediaService(db, storagetest.NewMemoryStore(), newAudit(db), testLogger())
	svc := NewUserService(db, mediaSvc, newAudit(db))
	ctx := context.Background()
	u := seedUser(t, db, "u@example.com", "")

	view, err := svc.UpdateProfile(ctx, callerOf(u, ""), ProfileUpdate{Name: strPtr("  New Name ")}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "New Name", view.Name)
	assert.True(t, view.IsVerified)
	assert.Nil(t, view.AdminUser)

	_, err = svc.UpdateProfile(ctx, callerOf(u, ""), ProfileUpdate{}, RequestMeta{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateProfile(ctx, callerOf(u, ""), ProfileUpdate{Name: strPtr("  ")}, RequestMeta{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateProfile(ctx, callerOf(u, ""), ProfileUpdate{AuthorSummary: strPtr("hi")}, RequestMeta{})
	assert.ErrorIs(t, err, ErrForbidden, "admin fields need an admin row")
}

func TestUpdateProfileImage(t *testing.T) {
	db := newTestDB(t)
	store := storagetest.NewMemoryStore()
	mediaSvc := NewMediaService(db, store, newAudit(db), testLogger())
	svc := NewUserService(db, mediaSvc, newAudit(db))
	ctx := context.Background()

	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)
	other := seedUser(t, db, "other@example.com", models.RoleAdmin)
	m := seedMedia(t, mediaSvc, store, admin.ID, "")
	foreign := seedMedia(t, mediaSvc, store, other.ID, "")

	view, err := svc.UpdateProfile(ctx, callerOf(admin, models.RoleAdmin), ProfileUpdate{
		AuthorSummary:       strPtr("Writes about light."),
		ProfileImageMediaID: &m.MediaID,
	}, RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, view.AdminUser)
	require.NotNil(t, view.AdminUser.ProfileImageURL)
	assert.Equal(t, "https://cdn.test/"+m.StoragePath, *view.AdminUser.ProfileImageURL)
	assert.Equal(t, "https://cdn.test/"+m.ThumbnailPath, *view.AdminUser.ProfileImageThumbnailURL)
	assert.Equal(t, "Writes about light.", *view.AdminUser.AuthorSummary)

	tagged, err := mediaSvc.Get(ctx, m.MediaID)
	require.NoError(t, err)
	require.NotNil(t, tagged.UsedElsewhere)
	assert.Equal(t, models.UsageProfileImage, *tagged.UsedElsewhere)
	assert.EqualValues(t, 1, countRows(t, db, &models.AuditLog{}, "action = ?", models.ActionUpdateProfile))

	_, err = svc.UpdateProfile(ctx, callerOf(admin, models.RoleAdmin), ProfileUpdate{ProfileImageMediaID: &foreign.MediaID}, RequestMeta{})
	assert.ErrorIs(t, err, ErrNotFound)

	view, err = svc.UpdateProfile(ctx, callerOf(admin, models.RoleAdmin), ProfileUpdate{ClearProfileImage: true}, RequestMeta{})
	require.NoError(t, err)
	assert.Nil(t, view.AdminUser.ProfileImageURL)
	assert.Nil(t, view.AdminUser.ProfileImageThumbnailURL)
}
