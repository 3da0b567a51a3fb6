// Package storage holds the local file store that owns asset and document bytes,
// and the optional S3-compatible object stores documents are mirrored to.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docforge/backend/internal/infrastructure/config"
)

// ObjectStore is an S3-compatible bucket rendered documents are mirrored to
type ObjectStore interface {
	// EnsureBucket creates the bucket if it does not exist
	EnsureBucket(ctx context.Context) error
	// Put uploads data under key
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// PresignGet returns a time-limited download URL; expiry <= 0 uses the configured default
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Delete removes the object under key
	Delete(ctx context.Context, key string) error
	// Bucket returns the bucket name
	Bucket() string
}

// NewObjectStore builds the mirror selected by cfg.Mirror; "none" returns nil
func NewObjectStore(cfg *config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	if cfg == nil {
		return nil, nil
	}
	switch cfg.Mirror {
	case "", "none":
		return nil, nil
	case "s3":
		return NewS3ObjectStore(cfg, WithLogger(logger))
	case "minio":
		return NewMinIOObjectStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage mirror %q", cfg.Mirror)
	}
}
