// Package client talks to the beamdash API from the command line: session
// persistence, the JSON envelope and the queued media uploader.
package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beamdash/backend/pkg/session"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "BEAMCTL_CONFIG"

// Config is the beamctl configuration file.
type Config struct {
	APIURL  string          `yaml:"api_url"`
	Upload  UploadDefaults  `yaml:"upload"`
	Session session.Session `yaml:"session,omitempty"`
}

// UploadDefaults are the upload options used when no flag overrides them.
type UploadDefaults struct {
	ConvertToWebP           bool   `yaml:"convert_to_webp"`
	MaxWidthHeight          int    `yaml:"max_width_height"`
	ThumbnailMaxWidthHeight int    `yaml:"thumbnail_max_width_height"`
	UsedElsewhere           string `yaml:"used_elsewhere,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		APIURL: "http://localhost:8080",
		Upload: UploadDefaults{
			ConvertToWebP:  true,
			MaxWidthHeight: 2048,
		},
	}
}

// DefaultPath is $BEAMCTL_CONFIG or ~/.config/beamctl/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "beamctl", "config.yaml"), nil
}

// LoadConfig reads path; a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultConfig().APIURL
	}
	return cfg, nil
}

// Save writes the config owner-readable only; it holds tokens.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Options converts the defaults into per-upload form options.
func (d UploadDefaults) Options() UploadOptions {
	return UploadOptions{
		ConvertImagesToWebp:     d.ConvertToWebP,
		LimitMaxWidthHeight:     d.MaxWidthHeight,
		ThumbnailMaxWidthHeight: d.ThumbnailMaxWidthHeight,
		UsedElsewhere:           d.UsedElsewhere,
	}
}
