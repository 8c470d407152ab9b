package handlers

import (
	"errors"
	"net/http"

	"github.com/beamdash/backend/internal/middleware"
	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const internalError = "Internal Server Error"

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// messages overrides the response text for sentinel errors of one endpoint.
type messages map[error]string

// respondServiceError maps service errors to status codes. Validation errors
// carry their own message; anything unclassified is logged and answered with
// fallback.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error, fallback string, msgs messages) {
	status, message := http.StatusInternalServerError, fallback
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		status, message = http.StatusBadRequest, verr.Message
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrForbidden):
		status, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, services.ErrAlreadyAdmin),
		errors.Is(err, services.ErrNotAdmin),
		errors.Is(err, services.ErrInvalidRole):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, services.ErrEmailTaken):
		status, message = http.StatusConflict, "Email already registered"
	}
	for target, text := range msgs {
		if errors.Is(err, target) {
			message = text
			break
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.ContextRequestID)),
			zap.Error(err))
		_ = c.Error(err)
	}
	respondError(c, status, message)
}

// caller returns the authenticated caller or answers 401.
func caller(c *gin.Context) (services.Caller, bool) {
	cl, ok := middleware.CallerFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
	}
	return cl, ok
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
