package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beamdash/backend/internal/config"
	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/observability"
	"github.com/beamdash/backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	tokens map[string]string
}

func (f fakeValidator) ValidateAccessToken(_ context.Context, token string) (*jwt.Claims, error) {
	id, ok := f.tokens[token]
	if !ok {
		return nil, jwt.ErrInvalidToken
	}
	return &jwt.Claims{UserID: id}, nil
}

type fakeResolver map[uuid.UUID]models.AdminRole

func (f fakeResolver) ResolveRole(_ context.Context, id uuid.UUID) (models.AdminRole, bool, error) {
	role, ok := f[id]
	return role, ok, nil
}

type fakeActions struct {
	count int64
	err   error
}

func (f fakeActions) GetActionCount(context.Context, uuid.UUID, string, time.Time) (int64, error) {
	return f.count, f.err
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func ok(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) }

func TestAuth(t *testing.T) {
	id := uuid.New()
	r := gin.New()
	r.GET("/me", Auth(fakeValidator{tokens: map[string]string{
		"good":  id.String(),
		"weird": "not-a-uuid",
	}}), func(c *gin.Context) {
		got, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": got, "token": c.GetString(ContextToken)})
	})

	tests := []struct {
		name   string
		header map[string]string
		status int
	}{
		{"missing header", nil, http.StatusUnauthorized},
		{"wrong scheme", map[string]string{"Authorization": "Basic good"}, http.StatusUnauthorized},
		{"unknown token", bearer("bad"), http.StatusUnauthorized},
		{"identity is not a uuid", bearer("weird"), http.StatusUnauthorized},
		{"valid", bearer("good"), http.StatusOK},
		{"lower case scheme", map[string]string{"Authorization": "bearer good"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/me", tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), id.String())
			} else {
				assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestRequireAccess(t *testing.T) {
	standard, admin, root, customer := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	validator := fakeValidator{tokens: map[string]string{
		"standard": standard.String(),
		"admin":    admin.String(),
		"root":     root.String(),
		"customer": customer.String(),
	}}
	resolver := fakeResolver{
		standard: models.RoleStandard,
		admin:    models.RoleAdmin,
		root:     models.RoleSuperAdmin,
	}

	r := gin.New()
	g := r.Group("/", Auth(validator), LoadCaller(resolver, zap.NewNop()))
	g.GET("/admin", RequireAccess(models.AccessAdmin), ok)
	g.GET("/root", RequireAccess(models.AccessSuperAdmin), ok)

	tests := []struct {
		token      string
		admin, sup int
	}{
		{"customer", http.StatusForbidden, http.StatusForbidden},
		{"standard", http.StatusForbidden, http.StatusForbidden},
		{"admin", http.StatusOK, http.StatusForbidden},
		{"root", http.StatusOK, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.admin, do(r, http.MethodGet, "/admin", bearer(tt.token)).Code)
			assert.Equal(t, tt.sup, do(r, http.MethodGet, "/root", bearer(tt.token)).Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r := gin.New()
	r.GET("/thing", ok)
	r.POST("/thing", MethodNotAllowed(http.MethodGet))

	w := do(r, http.MethodPost, "/thing", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Allow"))
	assert.JSONEq(t, `{"success":false,"error":"Method Not Allowed"}`, w.Body.String())
}

func TestMemoryCounterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCounter(8)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, ttl, err := c.Hit(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
		assert.Equal(t, time.Minute, ttl)
	}

	now = now.Add(time.Minute)
	n, _, err := c.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "window resets")

	n, _, _ = c.Hit(ctx, "other", time.Minute)
	assert.EqualValues(t, 1, n, "keys are independent")
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(NewMemoryCounter(8), 2, time.Minute, zap.NewNop()))
	r.GET("/", ok)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiterFailsOpenWithoutRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.Use(RateLimiter(NewCounter(client), 1, time.Minute, zap.NewNop()))
	r.GET("/", ok)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	}
}

func TestUploadRateLimit(t *testing.T) {
	id := uuid.New()
	r := gin.New()
	r.POST("/upload",
		Auth(fakeValidator{tokens: map[string]string{"t": id.String()}}),
		UploadRateLimit(NewMemoryCounter(8), 2, zap.NewNop()),
		ok)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/upload", bearer("t")).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/upload", bearer("t")).Code)
	w := do(r, http.MethodPost, "/upload", bearer("t"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many uploads today")
}

func TestAdminActionRateLimit(t *testing.T) {
	id := uuid.New()
	validator := fakeValidator{tokens: map[string]string{"t": id.String()}}

	tests := []struct {
		name    string
		actions fakeActions
		status  int
	}{
		{"under the limit", fakeActions{count: 2}, http.StatusOK},
		{"at the limit", fakeActions{count: 3}, http.StatusTooManyRequests},
		{"burst without redis is throttled, not blocked", fakeActions{count: 10}, http.StatusTooManyRequests},
		{"audit failure lets the request through", fakeActions{err: errors.New("db down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/promote", Auth(validator),
				AdminActionRateLimit(tt.actions, nil, models.ActionPromoteUser, 3, 5, zap.NewNop()),
				ok)
			assert.Equal(t, tt.status, do(r, http.MethodPost, "/promote", bearer("t")).Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal Server Error"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zap.NewNop()))
	r.GET("/", ok)

	w := do(r, http.MethodGet, "/", map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestHTTPMetrics(t *testing.T) {
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(HTTPMetrics(m))
	r.GET("/items/:id", ok)

	do(r, http.MethodGet, "/items/1", nil)
	do(r, http.MethodGet, "/items/2", nil)
	do(r, http.MethodGet, "/nowhere", nil)

	expected := `
# HELP beamdash_http_requests_total HTTP requests by method, route and status.
# TYPE beamdash_http_requests_total counter
beamdash_http_requests_total{method="GET",route="/items/:id",status="200"} 2
beamdash_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "beamdash_http_requests_total"))
}

func TestCORS(t *testing.T) {
	cfg := &config.Config{
		Env:            "production",
		AllowedOrigins: []string{"https://dash.example.com/"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/", ok)

	w := do(r, http.MethodOptions, "/", map[string]string{
		"Origin":                        "https://dash.example.com",
		"Access-Control-Request-Method": "GET",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
