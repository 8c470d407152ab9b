package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beamdash/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingRejectsBeforeAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/admin-users/promote-customer-to-admin", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST", w.Header().Get("Allow"))
	assert.Equal(t, "Method Not Allowed", decode(t, w, nil).Error)

	w = env.do(http.MethodPost, "/api/v1/admin-users/promote-customer-to-admin", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decode(t, w, nil).Error)

	w = env.do(http.MethodGet, "/api/v1/admin-users/list-users", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decode(t, w, nil).Success)
}

func TestHeadAndOptionsOnKnownPaths(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/v1/media-uploads/list-media"

	tests := []struct {
		name     string
		method   string
		header   map[string]string
		wantCode int
		wantAll  string
	}{
		{"head", http.MethodHead, nil, http.StatusMethodNotAllowed, "GET"},
		{"plain options", http.MethodOptions, nil, http.StatusMethodNotAllowed, "GET"},
		{"cors preflight", http.MethodOptions, map[string]string{
			"Origin":                        "http://localhost:3000",
			"Access-Control-Request-Method": http.MethodGet,
		}, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantAll, w.Header().Get("Allow"))
		})
	}
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	super := env.seedUser("root@example.com", models.RoleSuperAdmin)
	customer := env.seedUser("c0@example.com", "")
	for i := 1; i < 12; i++ {
		env.seedUser(fmt.Sprintf("c%d@example.com", i), "")
	}

	w := env.do(http.MethodGet, "/api/v1/admin-users/list-users?userType=customer", env.token(customer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var page struct {
		Users []struct {
			Email      string `json:"email"`
			IsVerified bool   `json:"is_verified"`
		} `json:"users"`
		Total    int64 `json:"total"`
		LastPage int   `json:"lastPage"`
	}
	w = env.do(http.MethodGet, "/api/v1/admin-users/list-users?userType=customer&page=2", env.token(super), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &page)
	assert.EqualValues(t, 12, page.Total)
	assert.Equal(t, 2, page.LastPage)
	assert.Len(t, page.Users, 2)
	assert.True(t, page.Users[0].IsVerified)

	w = env.do(http.MethodGet, "/api/v1/admin-users/list-users?userType=admin", env.token(super), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.EqualValues(t, 1, page.Total)

	w = env.do(http.MethodGet, "/api/v1/admin-users/list-users?userType=robots", env.token(super), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid userType parameter", decode(t, w, nil).Error)

	w = env.do(http.MethodGet, "/api/v1/admin-users/list-users?userType=admin&page=abc", env.token(super), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromoteCustomer(t *testing.T) {
	env := newTestEnv(t)
	super := env.seedUser("root@example.com", models.RoleSuperAdmin)
	admin := env.seedUser("admin@example.com", models.RoleAdmin)
	customer := env.seedUser("customer@example.com", "")
	path := "/api/v1/admin-users/promote-customer-to-admin"

	tests := []struct {
		name    string
		token   string
		body    any
		status  int
		message string
	}{
		{"missing target", env.token(super), map[string]string{}, http.StatusBadRequest, "Target user ID is required"},
		{"not a super admin", env.token(admin), map[string]string{"targetUserId": customer.ID.String()}, http.StatusForbidden, "Unauthorized. Only super_admins can promote users."},
		{"unknown target", env.token(super), map[string]string{"targetUserId": uuid.NewString()}, http.StatusNotFound, "Target user not found"},
		{"already admin", env.token(super), map[string]string{"targetUserId": admin.ID.String()}, http.StatusBadRequest, "User is already an admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w, nil).Error)
		})
	}

	var out struct {
		Message string `json:"message"`
	}
	w := env.do(http.MethodPost, path, env.token(super), map[string]string{"targetUserId": customer.ID.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode(t, w, &out).Success)
	assert.Equal(t, "User successfully promoted to admin", out.Message)

	var row models.AdminUser
	require.NoError(t, env.db.First(&row, "user_id = ?", customer.ID).Error)
	assert.Equal(t, models.RoleStandard, row.Role)
}

func TestUpdateAdminRole(t *testing.T) {
	env := newTestEnv(t)
	super := env.seedUser("root@example.com", models.RoleSuperAdmin)
	admin := env.seedUser("admin@example.com", models.RoleStandard)
	customer := env.seedUser("customer@example.com", "")
	path := "/api/v1/admin-users/update-admin-role"

	tests := []struct {
		name    string
		token   string
		target  string
		role    string
		status  int
		message string
	}{
		{"invalid role", env.token(super), admin.ID.String(), "owner", http.StatusBadRequest, "Invalid admin role"},
		{"caller not super admin", env.token(admin), admin.ID.String(), "admin", http.StatusForbidden, "Unauthorized - You are Not a super_admin"},
		{"unknown target", env.token(super), uuid.NewString(), "admin", http.StatusNotFound, "Target user not found"},
		{"malformed target", env.token(super), "nope", "admin", http.StatusNotFound, "Target user not found"},
		{"target not admin", env.token(super), customer.ID.String(), "admin", http.StatusBadRequest, "Target user is not an admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, path, tt.token, map[string]string{"targetUserId": tt.target, "newRole": tt.role})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w, nil).Error)
		})
	}

	w := env.do(http.MethodPost, path, env.token(super), map[string]string{"targetUserId": admin.ID.String(), "newRole": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var row models.AdminUser
	require.NoError(t, env.db.First(&row, "user_id = ?", admin.ID).Error)
	assert.Equal(t, models.RoleAdmin, row.Role)

	var logs struct {
		Logs []struct {
			Action string `json:"action"`
		} `json:"logs"`
		Total int64 `json:"total"`
	}
	w = env.do(http.MethodGet, "/api/v1/admin-users/audit-logs?action="+models.ActionUpdateRole, env.token(super), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &logs)
	assert.EqualValues(t, 1, logs.Total)

	w = env.do(http.MethodGet, "/api/v1/admin-users/audit-logs", env.token(admin), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
