package handlers

import (
	"net/http"

	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// GetProfile returns the current user's profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), cl.ID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to load profile", messages{
			services.ErrNotFound: "User not found",
		})
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// UpdateProfile updates the current user's profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), cl, req, requestMeta(c))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update profile", messages{
			services.ErrForbidden: "Only admins can set an author summary or profile image",
			services.ErrNotFound:  "Media not found",
		})
		return
	}
	respondOK(c, http.StatusOK, profile)
}
