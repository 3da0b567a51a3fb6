package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
)

var fixedTime = time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)

func newTestStore(t *testing.T, optimize bool) *FileStore {
	t.Helper()
	store, err := NewFileStore(FileStoreConfig{
		BasePath: t.TempDir(),
		BaseURL:  "https://cdn.example.com/files/",
		Optimize: optimize,
		Clock:    func() time.Time { return fixedTime },
	})
	require.NoError(t, err)
	return store
}

func pngBytes(t *testing.T, w, h int, alpha bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if alpha {
				a = uint8((x * 255) / max(1, w-1))
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: a})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func TestNewFileStore_CreatesLayout(t *testing.T) {
	base := t.TempDir()
	_, err := NewFileStore(FileStoreConfig{BasePath: base})
	require.NoError(t, err)

	for _, dir := range []string{AssetsDir, DocumentsDir, TempDir} {
		info, err := os.Stat(filepath.Join(base, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// idempotent
	_, err = NewFileStore(FileStoreConfig{BasePath: base})
	require.NoError(t, err)
}

func TestFileStore_SaveAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("names by role, timestamp and content hash", func(t *testing.T) {
		store := newTestStore(t, false)
		data := pngBytes(t, 40, 20, false)

		file, err := store.SaveAsset(ctx, printing.AssetRoleLogo, "Company Logo.PNG", data)
		require.NoError(t, err)

		assert.Regexp(t, `^assets/logo/20240315_093045_[0-9a-f]{12}\.png$`, file.Path)
		assert.Equal(t, "image/png", file.MimeType)
		assert.Equal(t, int64(len(data)), file.Size)
		require.NotNil(t, file.Width)
		require.NotNil(t, file.Height)
		assert.Equal(t, 40, *file.Width)
		assert.Equal(t, 20, *file.Height)

		stored, err := store.ReadFile(ctx, file.Path)
		require.NoError(t, err)
		assert.Equal(t, data, stored)
	})

	t.Run("same second same content does not overwrite", func(t *testing.T) {
		store := newTestStore(t, false)
		data := pngBytes(t, 8, 8, false)

		first, err := store.SaveAsset(ctx, printing.AssetRoleImage, "a.png", data)
		require.NoError(t, err)
		second, err := store.SaveAsset(ctx, printing.AssetRoleImage, "a.png", data)
		require.NoError(t, err)
		third, err := store.SaveAsset(ctx, printing.AssetRoleImage, "a.png", data)
		require.NoError(t, err)

		assert.NotEqual(t, first.Path, second.Path)
		assert.Equal(t, strings.TrimSuffix(first.Path, ".png")+"_1.png", second.Path)
		assert.Equal(t, strings.TrimSuffix(first.Path, ".png")+"_2.png", third.Path)
		assert.True(t, store.Exists(first.Path))
		assert.True(t, store.Exists(second.Path))
	})

	t.Run("rejects extensions outside the allow-list", func(t *testing.T) {
		store := newTestStore(t, false)
		_, err := store.SaveAsset(ctx, printing.AssetRoleImage, "payload.exe", []byte("MZ"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, printing.ErrInvalidAssetType))
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		store := newTestStore(t, false)
		_, err := store.SaveAsset(ctx, printing.AssetRole("banner"), "a.png", pngBytes(t, 2, 2, false))
		assert.True(t, errors.Is(err, printing.ErrInvalidAssetType))
	})

	t.Run("svg is stored verbatim with null dimensions", func(t *testing.T) {
		store := newTestStore(t, true)
		svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"></svg>`)

		file, err := store.SaveAsset(ctx, printing.AssetRoleSignature, "sig.svg", svg)
		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml", file.MimeType)
		assert.Nil(t, file.Width)
		assert.Nil(t, file.Height)

		stored, err := store.ReadFile(ctx, file.Path)
		require.NoError(t, err)
		assert.Equal(t, svg, stored)
	})

	t.Run("optimize re-encodes png keeping alpha", func(t *testing.T) {
		store := newTestStore(t, true)
		data := pngBytes(t, 16, 16, true)

		file, err := store.SaveAsset(ctx, printing.AssetRoleWatermark, "mark.png", data)
		require.NoError(t, err)

		stored, err := store.ReadFile(ctx, file.Path)
		require.NoError(t, err)
		assert.Equal(t, int64(len(stored)), file.Size)

		img, err := png.Decode(bytes.NewReader(stored))
		require.NoError(t, err)
		_, _, _, a := img.At(0, 0).RGBA()
		assert.Equal(t, uint32(0), a)
	})

	t.Run("optimize re-encodes jpeg", func(t *testing.T) {
		store := newTestStore(t, true)
		data := jpegBytes(t, 32, 24)

		file, err := store.SaveAsset(ctx, printing.AssetRoleImage, "photo.jpeg", data)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", file.MimeType)
		assert.Equal(t, 32, *file.Width)

		stored, err := store.ReadFile(ctx, file.Path)
		require.NoError(t, err)
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(stored))
		require.NoError(t, err)
		assert.Equal(t, 24, cfg.Height)
	})
}

func TestFileStore_SaveDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, false)
	pdf := []byte("%PDF-1.4\n% test document\n")

	t.Run("names by slug, timestamp and hash", func(t *testing.T) {
		doc, err := store.SaveDocument(ctx, "Invoice #1001 (final).pdf", pdf)
		require.NoError(t, err)
		assert.Regexp(t, `^documents/Invoice_1001_final_20240315_093045_[0-9a-f]{8}\.pdf$`, doc.Path)
		assert.Equal(t, int64(len(pdf)), doc.Size)
		assert.Equal(t, "https://cdn.example.com/files/"+doc.Path, doc.URL)
	})

	t.Run("identical payloads get distinct paths", func(t *testing.T) {
		a, err := store.SaveDocument(ctx, "receipt", pdf)
		require.NoError(t, err)
		b, err := store.SaveDocument(ctx, "receipt", pdf)
		require.NoError(t, err)
		assert.NotEqual(t, a.Path, b.Path)
	})

	t.Run("empty payload is a storage failure", func(t *testing.T) {
		_, err := store.SaveDocument(ctx, "empty", nil)
		assert.True(t, errors.Is(err, printing.ErrStorageWriteFailure))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.SaveDocument(cctx, "late", pdf)
		assert.True(t, errors.Is(err, printing.ErrStorageWriteFailure))
	})
}

func TestFileStore_SaveDocument_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, false)

	const writers = 32
	paths := make([]string, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte("%PDF-1.4\n% shared\n")
			if i%2 == 1 {
				payload = []byte(fmt.Sprintf("%%PDF-1.4\n%% document %d\n", i))
			}
			doc, err := store.SaveDocument(ctx, "statement", payload)
			errs[i] = err
			if err == nil {
				paths[i] = doc.Path
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, writers)
	for i := range paths {
		require.NoError(t, errs[i])
		assert.False(t, seen[paths[i]], "path %s written twice", paths[i])
		seen[paths[i]] = true
		assert.True(t, store.Exists(paths[i]))
	}
	assert.Len(t, seen, writers)
}

func TestFileStore_SaveDocument_LaterCallsGetLaterTimestamps(t *testing.T) {
	ctx := context.Background()
	var tick atomic.Int64
	store, err := NewFileStore(FileStoreConfig{
		BasePath: t.TempDir(),
		Clock: func() time.Time {
			return fixedTime.Add(time.Duration(tick.Load()) * time.Second)
		},
	})
	require.NoError(t, err)
	pdf := []byte("%PDF-1.4\n% same bytes\n")

	first, err := store.SaveDocument(ctx, "report", pdf)
	require.NoError(t, err)
	tick.Add(75)
	second, err := store.SaveDocument(ctx, "report", pdf)
	require.NoError(t, err)

	assert.Contains(t, first.Path, "_20240315_093045_")
	assert.Contains(t, second.Path, "_20240315_093200_")
	assert.NotEqual(t, first.Path, second.Path)
}

func TestFileStore_PathSanitising(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	for _, p := range []string{"../etc/passwd", "assets/../../x", "/etc/passwd", ""} {
		t.Run(p, func(t *testing.T) {
			_, err := store.Resolve(p)
			assert.Error(t, err)
			_, err = store.Open(ctx, p)
			assert.Error(t, err)
			assert.Error(t, store.Delete(ctx, p))
		})
	}
}

func TestFileStore_OpenAndDelete(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	file, err := store.SaveAsset(ctx, printing.AssetRoleImage, "x.gif", []byte("GIF8"))
	require.NoError(t, err)
	assert.Nil(t, file.Width)

	require.NoError(t, store.Delete(ctx, file.Path))
	assert.False(t, store.Exists(file.Path))

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, file.Path))

	_, err = store.Open(ctx, file.Path)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestFileStore_ListAssetFiles(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	logo, err := store.SaveAsset(ctx, printing.AssetRoleLogo, "l.png", pngBytes(t, 2, 2, false))
	require.NoError(t, err)
	img, err := store.SaveAsset(ctx, printing.AssetRoleImage, "i.png", pngBytes(t, 3, 3, false))
	require.NoError(t, err)
	_, err = store.SaveDocument(ctx, "doc", []byte("%PDF"))
	require.NoError(t, err)

	files, err := store.ListAssetFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{img.Path, logo.Path}, files)
}

func TestFileStore_CleanupTemp(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	oldFile := filepath.Join(store.TempPath(), "old.html")
	newFile := filepath.Join(store.TempPath(), "new.html")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("y"), 0o644))
	require.NoError(t, os.Chtimes(oldFile, fixedTime.Add(-48*time.Hour), fixedTime.Add(-48*time.Hour)))
	require.NoError(t, os.Chtimes(newFile, fixedTime.Add(-time.Hour), fixedTime.Add(-time.Hour)))

	n, err := store.CleanupTemp(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
}

func TestFileStore_ResizeAsset(t *testing.T) {
	store := newTestStore(t, false)
	ctx := context.Background()

	src, err := store.SaveAsset(ctx, printing.AssetRoleLogo, "wide.png", pngBytes(t, 400, 100, true))
	require.NoError(t, err)

	resized, err := store.ResizeAsset(ctx, src.Path, 200, 0, 0)
	require.NoError(t, err)
	assert.NotEqual(t, src.Path, resized.Path)
	assert.True(t, strings.HasPrefix(resized.Path, "assets/logo/"))
	assert.Equal(t, 200, *resized.Width)
	assert.Equal(t, 50, *resized.Height)
	assert.True(t, store.Exists(src.Path))

	_, err = store.ResizeAsset(ctx, src.Path, -1, 0, 0)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"invoice.pdf", "invoice"},
		{"Acme Corp_invoice", "Acme_Corp_invoice"},
		{"../../etc/passwd", "passwd"},
		{"   ", "document"},
		{"preview_INV-1.pdf", "preview_INV-1"},
		{"Report.PDF", "Report"},
		{"acme.v2_invoice", "acme.v2_invoice"},
		{"acme.v2.pdf", "acme.v2"},
		{"logo.png", "logo"},
		{"archive.tar", "archive.tar"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(400, 100, 200, 0)
	assert.Equal(t, 200, w)
	assert.Equal(t, 50, h)

	w, h = fitWithin(100, 100, 500, 500)
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)

	w, h = fitWithin(300, 600, 150, 150)
	assert.Equal(t, 75, w)
	assert.Equal(t, 150, h)
}
