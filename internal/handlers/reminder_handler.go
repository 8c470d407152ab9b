package handlers

import (
	"net/http"

	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	reminderService *services.ReminderService
	logger          *zap.Logger
}

func NewReminderHandler(reminderService *services.ReminderService, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService, logger: logger}
}

// GET /reminders
func (h *ReminderHandler) List(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	reminders, err := h.reminderService.List(c.Request.Context(), cl)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch reminders", nil)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"reminders": reminders})
}

// POST /reminders
func (h *ReminderHandler) Create(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req services.ReminderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	reminder, err := h.reminderService.Create(c.Request.Context(), cl.ID, req)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to create reminder", nil)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"reminder": reminder})
}

// DELETE /reminders/:id
func (h *ReminderHandler) Delete(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reminderService.Delete(c.Request.Context(), cl, id); err != nil {
		respondServiceError(c, h.logger, err, "Failed to delete reminder", messages{
			services.ErrNotFound: "Reminder not found",
		})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Reminder deleted successfully"})
}
