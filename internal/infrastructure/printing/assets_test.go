package printing

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/backend/internal/domain/printing"
)

func writeAsset(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func intPtr(v int) *int { return &v }

func TestAssetEmbedder_Embed(t *testing.T) {
	dir := t.TempDir()
	logo := writeAsset(t, dir, "logo.png", []byte{0x89, 'P', 'N', 'G', 0x00, 0xff})
	sig := writeAsset(t, dir, "sig.svg", []byte("<svg/>"))
	photo := writeAsset(t, dir, "photo.jpg", []byte{0xff, 0xd8, 0xff})

	embedder := NewAssetEmbedder(false, nil)

	t.Run("classifies logo and images", func(t *testing.T) {
		out, err := embedder.Embed(context.Background(), []printing.AssetDescriptor{
			{Role: printing.AssetRoleLogo, Name: "logo", FilePath: logo, MimeType: "image/png",
				Width: intPtr(120), Height: intPtr(40), DisplayConfig: map[string]any{"align": "left"}},
			{Role: printing.AssetRoleSignature, Name: "sig", FilePath: sig, MimeType: "image/svg+xml"},
			{Role: printing.AssetRoleImage, Name: "photo", FilePath: photo, MimeType: "image/jpeg", Width: intPtr(10)},
		})
		require.NoError(t, err)

		logoCtx, ok := out["logo"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 120, logoCtx["width"])
		assert.Equal(t, 40, logoCtx["height"])
		assert.Equal(t, map[string]any{"align": "left"}, logoCtx["display_config"])

		mime, data, err := DecodeDataURL(logoCtx["data_url"].(string))
		require.NoError(t, err)
		assert.Equal(t, "image/png", mime)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}, data)

		images, ok := out["images"].([]any)
		require.True(t, ok)
		require.Len(t, images, 2)
		assert.Equal(t, "sig", images[0].(map[string]any)["name"])
		assert.Equal(t, "photo", images[1].(map[string]any)["name"])
		assert.Nil(t, images[0].(map[string]any)["width"])
		assert.Equal(t, 10, images[1].(map[string]any)["width"])
	})

	t.Run("default flag wins the logo slot, last one wins", func(t *testing.T) {
		out, err := embedder.Embed(context.Background(), []printing.AssetDescriptor{
			{Role: printing.AssetRoleLogo, Name: "old", FilePath: logo, MimeType: "image/png"},
			{Role: printing.AssetRoleImage, Name: "new", FilePath: photo, MimeType: "image/jpeg", IsDefault: true},
		})
		require.NoError(t, err)
		mime, _, err := DecodeDataURL(out["logo"].(map[string]any)["data_url"].(string))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mime)
		assert.Empty(t, out["images"])
	})

	t.Run("missing file is skipped", func(t *testing.T) {
		out, err := embedder.Embed(context.Background(), []printing.AssetDescriptor{
			{Role: printing.AssetRoleLogo, FilePath: filepath.Join(dir, "gone.png")},
			{Role: printing.AssetRoleImage, Name: "photo", FilePath: photo},
		})
		require.NoError(t, err)
		assert.NotContains(t, out, "logo")
		assert.Len(t, out["images"], 1)
	})

	t.Run("missing MIME defaults to png", func(t *testing.T) {
		out, err := embedder.Embed(context.Background(), []printing.AssetDescriptor{
			{Role: printing.AssetRoleImage, FilePath: photo},
		})
		require.NoError(t, err)
		url := out["images"].([]any)[0].(map[string]any)["data_url"].(string)
		assert.Contains(t, url, "data:image/png;base64,")
	})

	t.Run("strict mode fails on missing file", func(t *testing.T) {
		strict := NewAssetEmbedder(true, nil)
		_, err := strict.Embed(context.Background(), []printing.AssetDescriptor{
			{Role: printing.AssetRoleLogo, FilePath: filepath.Join(dir, "gone.png")},
		})
		assert.ErrorIs(t, err, printing.ErrMissingAssetFile)
	})

	t.Run("unreadable file is not reported as missing", func(t *testing.T) {
		for _, strictMode := range []bool{false, true} {
			e := NewAssetEmbedder(strictMode, nil)
			e.readFile = func(string) ([]byte, error) { return nil, fs.ErrPermission }

			_, err := e.Embed(context.Background(), []printing.AssetDescriptor{
				{Role: printing.AssetRoleLogo, FilePath: logo},
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, printing.ErrRender)
			assert.ErrorIs(t, err, fs.ErrPermission)
			assert.NotErrorIs(t, err, printing.ErrMissingAssetFile)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := embedder.Embed(ctx, []printing.AssetDescriptor{{FilePath: logo}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDataURLRoundTrip(t *testing.T) {
	payloads := [][]byte{{}, {0}, []byte("hello"), {0xff, 0xfe, 0x00, 0x10}}
	for _, p := range payloads {
		url := EncodeDataURL("image/webp", p)
		mime, data, err := DecodeDataURL(url)
		require.NoError(t, err)
		assert.Equal(t, "image/webp", mime)
		assert.Equal(t, len(p), len(data))
		assert.Equal(t, string(p), string(data))
	}

	for _, bad := range []string{"image/png;base64,AA==", "data:image/png;base64", "data:image/png,AA==", "data:image/png;base64,***"} {
		_, _, err := DecodeDataURL(bad)
		assert.Error(t, err, bad)
	}
}
