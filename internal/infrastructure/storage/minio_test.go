package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/backend/internal/infrastructure/config"
)

func TestNewMinIOObjectStore(t *testing.T) {
	base := config.StorageConfig{
		Bucket:    "documents",
		AccessKey: "minio",
		SecretKey: "minio123",
		Endpoint:  "localhost:9000",
	}

	t.Run("requires an endpoint", func(t *testing.T) {
		cfg := base
		cfg.Endpoint = ""
		_, err := NewMinIOObjectStore(&cfg, nil)
		assert.ErrorContains(t, err, "endpoint is required")
	})

	t.Run("requires credentials", func(t *testing.T) {
		cfg := base
		cfg.SecretKey = ""
		_, err := NewMinIOObjectStore(&cfg, nil)
		assert.ErrorContains(t, err, "credentials are required")
	})

	t.Run("requires a bucket", func(t *testing.T) {
		cfg := base
		cfg.Bucket = ""
		_, err := NewMinIOObjectStore(&cfg, nil)
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("accepts a URL endpoint", func(t *testing.T) {
		cfg := base
		cfg.Endpoint = "https://minio.internal:9000"
		store, err := NewMinIOObjectStore(&cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, "minio.internal:9000", store.client.EndpointURL().Host)
		assert.Equal(t, "https", store.client.EndpointURL().Scheme)
	})

	t.Run("presigns without contacting the server", func(t *testing.T) {
		cfg := base
		cfg.UsePathStyle = true
		store, err := NewMinIOObjectStore(&cfg, nil)
		require.NoError(t, err)

		url, err := store.PresignGet(context.Background(), "documents/receipt.pdf", time.Minute)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:9000/documents/documents/receipt.pdf?"))
		assert.Contains(t, url, "X-Amz-Expires=60")
	})
}
