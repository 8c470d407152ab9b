package handlers

import (
	"net/http"
	"strconv"

	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	adminService *services.AdminService
	auditService *services.AuditService
	logger       *zap.Logger
}

func NewAdminHandler(adminService *services.AdminService, auditService *services.AuditService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, auditService: auditService, logger: logger}
}

// ListUsers pages identities by type.
// GET /admin-users/list-users?userType=admin|customer&page=1
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page parameter")
		return
	}

	result, err := h.adminService.ListUsers(c.Request.Context(), c.Query("userType"), page)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch users", nil)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// PromoteCustomer grants admin capability to a customer.
// POST /admin-users/promote-customer-to-admin {targetUserId}
func (h *AdminHandler) PromoteCustomer(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		TargetUserID string `json:"targetUserId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetUserID == "" {
		respondError(c, http.StatusBadRequest, "Target user ID is required")
		return
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		respondError(c, http.StatusNotFound, "Target user not found")
		return
	}

	if err := h.adminService.PromoteCustomer(c.Request.Context(), cl.ID, targetID, requestMeta(c)); err != nil {
		respondServiceError(c, h.logger, err, internalError, messages{
			services.ErrForbidden: "Unauthorized. Only super_admins can promote users.",
			services.ErrNotFound:  "Target user not found",
		})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User successfully promoted to admin"})
}

// UpdateAdminRole changes the role of an existing admin.
// POST /admin-users/update-admin-role {targetUserId, newRole}
func (h *AdminHandler) UpdateAdminRole(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		TargetUserID string `json:"targetUserId"`
		NewRole      string `json:"newRole"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		targetID = uuid.Nil
	}

	err = h.adminService.UpdateAdminRole(c.Request.Context(), cl.ID, targetID, req.NewRole, requestMeta(c))
	if err != nil {
		respondServiceError(c, h.logger, err, internalError, messages{
			services.ErrInvalidRole: "Invalid admin role",
			services.ErrForbidden:   "Unauthorized - You are Not a super_admin",
			services.ErrNotFound:    "Target user not found",
			services.ErrNotAdmin:    "Target user is not an admin",
		})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Admin role updated successfully"})
}

// GetAuditLogs returns the admin audit trail.
// GET /admin-users/audit-logs?page=1&limit=50&action=
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var actorID *uuid.UUID
	if raw := c.Query("actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid actor_id")
			return
		}
		actorID = &id
	}

	logs, total, err := h.auditService.GetRecentActions(c.Request.Context(), page, limit, actorID, c.Query("action"))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch audit logs", nil)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"lastPage": services.LastPage(total, limit),
	})
}
