package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AdminBlockDuration is how long an admin stays blocked after a burst.
const AdminBlockDuration = time.Hour

// ActionCounter counts audited actions of one actor since a point in time.
type ActionCounter interface {
	GetActionCount(ctx context.Context, actorID uuid.UUID, action string, since time.Time) (int64, error)
}

// AdminActionRateLimit throttles a sensitive admin action using the audit
// log as the source of truth. maxActions in the window answers 429; twice
// that blocks the admin for AdminBlockDuration when redis is available.
func AdminActionRateLimit(audit ActionCounter, client *redis.Client, action string, maxActions, windowMinutes int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := UserID(c)
		if !ok || maxActions <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		blockKey := fmt.Sprintf("admin_blocked:%s:%s", adminID, action)

		if client != nil {
			if blocked, err := client.Get(ctx, blockKey).Result(); err == nil && blocked == "1" {
				abortWithError(c, http.StatusForbidden, "Your account has been temporarily blocked due to suspicious activity. Please contact the system administrator.")
				return
			}
		}

		since := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)
		count, err := audit.GetActionCount(ctx, adminID, action, since)
		if err != nil {
			logger.Warn("admin action count failed", zap.Error(err))
			c.Next()
			return
		}

		if count >= int64(2*maxActions) && client != nil {
			if err := client.Set(ctx, blockKey, "1", AdminBlockDuration).Err(); err != nil {
				logger.Warn("could not block admin", zap.Error(err))
			}
			logger.Warn("admin blocked",
				zap.String("user_id", adminID.String()),
				zap.String("action", action),
				zap.Int64("count", count))
			abortWithError(c, http.StatusForbidden, "Too many actions detected. Your account has been temporarily blocked for 1 hour.")
			return
		}

		if count >= int64(maxActions) {
			c.Header("Retry-After", fmt.Sprintf("%d", windowMinutes*60))
			abortWithError(c, http.StatusTooManyRequests, "Too many actions in a short time. Please wait a few minutes.")
			return
		}

		c.Next()
	}
}
