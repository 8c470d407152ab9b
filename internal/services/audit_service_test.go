package services

import (
	"context"
	"testing"
	"time"

	"github.com/beamdash/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditActionCountAndPaging(t *testing.T) {
	db := newTestDB(t)
	svc := newAudit(db)
	ctx := context.Background()
	actor := seedUser(t, db, "root@example.com", models.RoleSuperAdmin)
	before := time.Now().Add(-time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.LogAction(ctx, AuditEntry{
			ActorID:    actor.ID,
			Action:     models.ActionPromoteUser,
			TargetType: "user",
			TargetID:   "t",
			Details:    map[string]any{"n": i},
		}))
	}
	require.NoError(t, svc.LogAction(ctx, AuditEntry{ActorID: actor.ID, Action: models.ActionDeleteMedia, TargetType: "media", TargetID: "m"}))

	n, err := svc.GetActionCount(ctx, actor.ID, models.ActionPromoteUser, before)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = svc.GetActionCount(ctx, actor.ID, models.ActionPromoteUser, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	logs, total, err := svc.GetRecentActions(ctx, 1, 2, &actor.ID, "")
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, logs, 2)

	logs, total, err = svc.GetRecentActions(ctx, 1, 10, nil, models.ActionDeleteMedia)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, logs[0].Details)
}
