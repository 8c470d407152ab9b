package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 256, cfg.ThumbnailSize)
	assert.Equal(t, 1024, cfg.PosterSize)
	assert.Equal(t, 75, cfg.WebPQuality)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadSize)
	assert.Equal(t, time.Hour, cfg.JWTAccessTokenDuration)
	assert.False(t, cfg.IsProduction())
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("THUMBNAIL_SIZE", "128")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("JWT_ACCESS_TOKEN_DURATION", "not-a-duration")

	cfg := New()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 128, cfg.ThumbnailSize)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.JWTAccessTokenDuration)
}
