package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/beamdash/backend/internal/config"
	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/observability"
	"github.com/beamdash/backend/internal/pkg/media"
	"github.com/beamdash/backend/internal/pkg/media/mediatest"
	"github.com/beamdash/backend/internal/services"
	"github.com/beamdash/backend/internal/storage/storagetest"
	jwtpkg "github.com/beamdash/backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	t       *testing.T
	cfg     *config.Config
	db      *gorm.DB
	store   *storagetest.MemoryStore
	metrics *observability.Metrics
	encoder *mediatest.Encoder
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		Env:                         "test",
		JWTSecret:                   "handler-test-secret",
		JWTAccessTokenDuration:      time.Hour,
		JWTRefreshTokenDuration:     24 * time.Hour,
		BcryptCost:                  bcrypt.MinCost,
		MaxUploadSize:               10 << 20,
		UploadMaxPerDay:             100,
		AdminRateLimitActions:       100,
		AdminRateLimitWindowMinutes: 5,
		AllowedOrigins:              []string{"http://localhost:3000"},
		AllowedMethods:              []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:              []string{"Authorization", "Content-Type"},
	}
	log := zap.NewNop()
	store := storagetest.NewMemoryStore()
	metrics := observability.NewMetrics()

	audit := services.NewAuditService(db, log)
	mediaSvc := services.NewMediaService(db, store, audit, log)
	encoder := &mediatest.Encoder{}
	processor := media.NewProcessor(encoder, &mediatest.Extractor{Width: 1280, Height: 720})

	router := NewRouter(Deps{
		Config:    cfg,
		Logger:    log,
		Metrics:   metrics,
		Auth:      services.NewAuthService(db, nil, cfg, log),
		Admin:     services.NewAdminService(db, audit, log),
		Audit:     audit,
		Media:     mediaSvc,
		Upload:    services.NewUploadService(mediaSvc, store, processor, metrics, log),
		Todos:     services.NewTodoService(db, metrics, log),
		Reminders: services.NewReminderService(db),
		Users:     services.NewUserService(db, mediaSvc, audit),
	})

	return &testEnv{t: t, cfg: cfg, db: db, store: store, metrics: metrics, encoder: encoder, router: router}
}

func (e *testEnv) seedUser(email string, role models.AdminRole) *models.User {
	e.t.Helper()
	now := time.Now()
	u := &models.User{Email: email, PasswordHash: "x", Name: email, IsAdmin: role != "", EmailConfirmedAt: &now}
	require.NoError(e.t, e.db.Create(u).Error)
	if role != "" {
		require.NoError(e.t, e.db.Create(&models.AdminUser{UserID: u.ID, Role: role}).Error)
	}
	return u
}

func (e *testEnv) token(u *models.User) string {
	e.t.Helper()
	tok, _, err := jwtpkg.GenerateToken(u.ID.String(), u.Email, jwtpkg.AccessToken, e.cfg.JWTSecret, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(token, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.uploadWithContext(context.Background(), token, filename, data, fields)
}

func (e *testEnv) uploadWithContext(ctx context.Context, token, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = part.Write(data)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/api/v1/media-uploads/upload-media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func pngFile(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, mediatest.SolidImage(w, h, color.NRGBA{B: 200, A: 255})))
	return buf.Bytes()
}
