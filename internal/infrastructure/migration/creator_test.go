package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/backend/migrations"
)

func fixedCreator(dir string) *Creator {
	c := NewCreator(dir)
	c.Now = func() time.Time { return time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add templates table", "add_templates_table"},
		{"Add-Templates-Table", "add_templates_table"},
		{"ADD_ASSET_ROLE", "add_asset_role"},
		{"add__asset__role", "add_asset_role"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreator_Create(t *testing.T) {
	dir := t.TempDir()

	mf, err := fixedCreator(dir).Create("add asset checksum", "Store a checksum per <asset>")
	require.NoError(t, err)

	assert.Equal(t, "20241001090000", mf.Version)
	assert.Equal(t, "add_asset_checksum", mf.Name)
	assert.Equal(t, filepath.Join(dir, "20241001090000_add_asset_checksum.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20241001090000_add_asset_checksum.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_asset_checksum")
	assert.Contains(t, string(up), "-- Created: 2024-10-01T09:00:00Z")
	assert.Contains(t, string(up), "-- Description: Store a checksum per <asset>")
	assert.Contains(t, string(up), "UP migration")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")
	assert.Contains(t, string(down), "DOWN migration")
}

func TestCreator_Create_NoDescription(t *testing.T) {
	mf, err := fixedCreator(t.TempDir()).Create("plain", "  ")
	require.NoError(t, err)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.NotContains(t, string(up), "Description")
}

func TestCreator_Create_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := fixedCreator(dir).Create("first", "")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreator_Create_Errors(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		_, err := fixedCreator(t.TempDir()).Create("!!!", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no usable characters")
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		c := fixedCreator(t.TempDir())
		_, err := c.Create("same", "")
		require.NoError(t, err)

		_, err = c.Create("same", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create up migration")
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("sorted up migrations", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"20241002000000_second.up.sql",
			"20241002000000_second.down.sql",
			"20241001000000_first.up.sql",
			"20241001000000_first.down.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "old.up.sql"), 0o755))

		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"20241001000000_first", "20241002000000_second"}, names)
	})

	t.Run("missing directory", func(t *testing.T) {
		names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok {
			ups[base] = true
		}
		if base, ok := strings.CutSuffix(e.Name(), ".down.sql"); ok {
			downs[base] = true
		}
	}

	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
	assert.Contains(t, ups, "20241001090000_create_document_templates")
	assert.Contains(t, ups, "20241001090100_create_template_assets")
}
