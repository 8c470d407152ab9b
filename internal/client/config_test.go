package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beamdash/backend/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.Upload.ConvertToWebP)
	assert.Equal(t, 2048, cfg.Upload.MaxWidthHeight)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.APIURL = "https://admin.example.com"
	cfg.Upload.ConvertToWebP = false
	cfg.Session = session.Session{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.APIURL, loaded.APIURL)
	assert.Equal(t, cfg.Upload, loaded.Upload)
	assert.Equal(t, "r", loaded.Session.RefreshToken)
	assert.True(t, cfg.Session.ExpiresAt.Equal(loaded.Session.ExpiresAt))
	assert.False(t, loaded.Upload.Options().ConvertImagesToWebp)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unclosed"), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/beamctl-test.yaml")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/beamctl-test.yaml", p)
}
