package middleware

import (
	"context"
	"net/http"

	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleResolver reads an identity's admin role from the metadata store.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID uuid.UUID) (models.AdminRole, bool, error)
}

// LoadCaller resolves the role of the authenticated identity on every
// request and stores a services.Caller. It must run after Auth.
func LoadCaller(resolver RoleResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		role, _, err := resolver.ResolveRole(c.Request.Context(), userID)
		if err != nil {
			logger.Error("resolve role", zap.String("user_id", userID.String()), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		c.Set(ContextCaller, services.Caller{ID: userID, Role: role})
		c.Next()
	}
}

// RequireAccess rejects callers whose role does not reach level.
func RequireAccess(level models.AccessLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !caller.Can(level) {
			abortWithError(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

// CallerFrom returns the caller stored by LoadCaller.
func CallerFrom(c *gin.Context) (services.Caller, bool) {
	v, ok := c.Get(ContextCaller)
	if !ok {
		return services.Caller{}, false
	}
	caller, ok := v.(services.Caller)
	return caller, ok
}
