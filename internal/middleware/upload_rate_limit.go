package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadRateLimit caps uploads per identity per calendar day. It must run
// after Auth.
func UploadRateLimit(counter Counter, maxPerDay int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok || maxPerDay <= 0 {
			c.Next()
			return
		}

		// Resets at local midnight for predictable behaviour.
		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		key := fmt.Sprintf("upload_limit:%s:%s", userID, now.Format("2006-01-02"))

		count, ttl, err := counter.Hit(c.Request.Context(), key, midnight.Sub(now))
		if err != nil {
			logger.Warn("upload limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count > int64(maxPerDay) {
			logger.Info("upload limit reached",
				zap.String("user_id", userID.String()),
				zap.Int64("uploads_today", count-1))
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())+1))
			abortWithError(c, http.StatusTooManyRequests, "Too many uploads today. Please try again tomorrow.")
			return
		}
		c.Next()
	}
}
