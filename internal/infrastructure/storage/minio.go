package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/docforge/backend/internal/infrastructure/config"
)

var _ ObjectStore = (*MinIOObjectStore)(nil)

// MinIOObjectStore mirrors documents to a MinIO server.
// It is safe for concurrent use by multiple goroutines.
type MinIOObjectStore struct {
	client            *minio.Client
	bucket            string
	region            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// NewMinIOObjectStore creates the client; the bucket is checked by EnsureBucket
func NewMinIOObjectStore(cfg *config.StorageConfig, logger *zap.Logger) (*MinIOObjectStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("minio bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// minio takes host:port; accept a URL as well
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid minio endpoint: %w", err)
		}
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	lookup := minio.BucketLookupAuto
	if cfg.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	expiry := cfg.PresignExpiration
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &MinIOObjectStore{
		client:            cli,
		bucket:            cfg.Bucket,
		region:            region,
		presignExpiration: expiry,
		logger:            logger,
	}, nil
}

// EnsureBucket creates the bucket if it is missing
func (m *MinIOObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	m.logger.Info("Creating storage bucket", zap.String("bucket", m.bucket))
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Put uploads data using streaming I/O
func (m *MinIOObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	m.logger.Debug("object uploaded",
		zap.String("bucket", m.bucket),
		zap.String("key", key),
		zap.String("etag", info.ETag))
	return nil
}

// PresignGet generates a pre-signed URL for GET
func (m *MinIOObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	if expiry <= 0 {
		expiry = m.presignExpiration
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

// Delete removes an object by key
func (m *MinIOObjectStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// Bucket returns the bucket name
func (m *MinIOObjectStore) Bucket() string {
	return m.bucket
}
