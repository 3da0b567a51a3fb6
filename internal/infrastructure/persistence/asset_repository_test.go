package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
)

func newAsset(t *testing.T, templateID uuid.UUID, role printing.AssetRole, path string) *printing.Asset {
	t.Helper()
	w, h := 120, 40
	asset, err := printing.NewAsset(templateID, role, "", printing.StoredFile{
		Path:     path,
		Size:     2048,
		MimeType: "image/png",
		Width:    &w,
		Height:   &h,
	})
	require.NoError(t, err)
	return asset
}

func TestGormAssetRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAssetRepository(newTestDatabase(t).DB)
	templateID := uuid.New()

	logo := newAsset(t, templateID, printing.AssetRoleLogo, "assets/logo/20240315_093045_abcdef012345.png").
		WithDisplay(map[string]any{"alt": "Acme"}, true)
	require.NoError(t, repo.Save(ctx, logo))

	found, err := repo.FindByID(ctx, logo.ID)
	require.NoError(t, err)
	assert.Equal(t, printing.AssetRoleLogo, found.Role)
	assert.Equal(t, "20240315_093045_abcdef012345.png", found.Name)
	assert.Equal(t, int64(2048), found.FileSize)
	require.NotNil(t, found.Width)
	assert.Equal(t, 120, *found.Width)
	assert.Equal(t, "Acme", found.DisplayConfig["alt"])
	assert.True(t, found.IsDefault)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, printing.ErrAssetNotFound)
}

func TestGormAssetRepository_SVGWithoutDimensions(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAssetRepository(newTestDatabase(t).DB)

	svg, err := printing.NewAsset(uuid.New(), printing.AssetRoleImage, "mark.svg", printing.StoredFile{
		Path:     "assets/image/mark.svg",
		Size:     300,
		MimeType: "image/svg+xml",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, svg))

	found, err := repo.FindByID(ctx, svg.ID)
	require.NoError(t, err)
	assert.Nil(t, found.Width)
	assert.Nil(t, found.Height)
}

func TestGormAssetRepository_DuplicatePath(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAssetRepository(newTestDatabase(t).DB)
	templateID := uuid.New()

	require.NoError(t, repo.Save(ctx, newAsset(t, templateID, printing.AssetRoleLogo, "assets/logo/a.png")))
	err := repo.Save(ctx, newAsset(t, templateID, printing.AssetRoleLogo, "assets/logo/a.png"))

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormAssetRepository_FindByTemplate(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAssetRepository(newTestDatabase(t).DB)
	templateID := uuid.New()

	first := newAsset(t, templateID, printing.AssetRoleLogo, "assets/logo/1.png")
	second := newAsset(t, templateID, printing.AssetRoleImage, "assets/image/2.png")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, newAsset(t, uuid.New(), printing.AssetRoleImage, "assets/image/other.png")))

	assets, err := repo.FindByTemplate(ctx, templateID)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, first.ID, assets[0].ID)
	assert.Equal(t, second.ID, assets[1].ID)

	count, err := repo.CountByTemplate(ctx, templateID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGormAssetRepository_DeleteWithFile(t *testing.T) {
	ctx := context.Background()

	t.Run("removes record and file", func(t *testing.T) {
		repo := NewGormAssetRepository(newTestDatabase(t).DB)
		asset := newAsset(t, uuid.New(), printing.AssetRoleSignature, "assets/signature/s.png")
		require.NoError(t, repo.Save(ctx, asset))

		var removed string
		err := repo.DeleteWithFile(ctx, asset.ID, func(path string) error {
			removed = path
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, "assets/signature/s.png", removed)
		_, err = repo.FindByID(ctx, asset.ID)
		assert.ErrorIs(t, err, printing.ErrAssetNotFound)
	})

	t.Run("file failure keeps the record", func(t *testing.T) {
		repo := NewGormAssetRepository(newTestDatabase(t).DB)
		asset := newAsset(t, uuid.New(), printing.AssetRoleWatermark, "assets/watermark/w.png")
		require.NoError(t, repo.Save(ctx, asset))

		boom := errors.New("permission denied")
		err := repo.DeleteWithFile(ctx, asset.ID, func(string) error { return boom })
		require.ErrorIs(t, err, boom)

		_, err = repo.FindByID(ctx, asset.ID)
		assert.NoError(t, err)
	})

	t.Run("missing asset", func(t *testing.T) {
		repo := NewGormAssetRepository(newTestDatabase(t).DB)

		err := repo.DeleteWithFile(ctx, uuid.New(), func(string) error {
			t.Fatal("removeFile must not be called")
			return nil
		})
		assert.ErrorIs(t, err, printing.ErrAssetNotFound)
	})
}

func TestGormAssetRepository_AllStoragePaths(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAssetRepository(newTestDatabase(t).DB)

	a := newAsset(t, uuid.New(), printing.AssetRoleLogo, "assets/logo/a.png")
	b := newAsset(t, uuid.New(), printing.AssetRoleImage, "assets/image/b.png")
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	paths, err := repo.AllStoragePaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{
		"assets/logo/a.png":  a.ID,
		"assets/image/b.png": b.ID,
	}, paths)
}
