// Package storage writes named byte buffers to a durable, publicly
// addressable location.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/beamdash/backend/internal/config"
	"go.uber.org/zap"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the object store client. Put overwrites an existing key.
// Delete ignores keys that do not exist.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	PublicURL(key string) string
}

// New builds the store selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		logger.Info("using s3 object store", zap.String("bucket", cfg.MediaBucket))
		return NewS3Store(ctx, S3Options{
			Endpoint:        cfg.MediaS3Endpoint,
			Region:          cfg.MediaS3Region,
			AccessKeyID:     cfg.MediaS3AccessKeyID,
			SecretAccessKey: cfg.MediaS3SecretAccessKey,
			UsePathStyle:    cfg.MediaS3UsePathStyle,
			Bucket:          cfg.MediaBucket,
			PublicURL:       cfg.MediaPublicURL,
		})
	case "local", "":
		logger.Info("using local object store", zap.String("path", cfg.LocalAssetsPath))
		return NewLocalStore(cfg.LocalAssetsPath, cfg.LocalPublicURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
