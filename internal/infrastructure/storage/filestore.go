package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
)

// Directory layout under the base path
const (
	AssetsDir    = "assets"
	DocumentsDir = "documents"
	TempDir      = "temp"
)

const (
	timestampLayout   = "20060102_150405"
	maxNameCollisions = 1000
)

// StoredDocument is where a rendered document was written
type StoredDocument struct {
	// Path is relative to the base path, with forward slashes
	Path string
	URL  string
	Size int64
}

// FileStoreConfig contains configuration for the local file store
type FileStoreConfig struct {
	// BasePath is the root directory holding assets/, documents/ and temp/
	BasePath string
	// BaseURL is the URL prefix stored paths are served under
	BaseURL string
	// Optimize re-encodes PNG and JPEG uploads
	Optimize bool
	Logger   *zap.Logger
	// Clock is used for file name timestamps; defaults to time.Now
	Clock func() time.Time
}

// FileStore owns asset and document bytes on the local filesystem.
// Names are unique per write: same-second writes of identical content get a _N suffix.
type FileStore struct {
	basePath string
	baseURL  string
	optimize bool
	logger   *zap.Logger
	clock    func() time.Time
}

// NewFileStore creates the store and its directories
func NewFileStore(config FileStoreConfig) (*FileStore, error) {
	if config.BasePath == "" {
		config.BasePath = "./data"
	}
	if config.BaseURL == "" {
		config.BaseURL = "/files"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	absBase, err := filepath.Abs(config.BasePath)
	if err != nil {
		return nil, printing.NewStorageWriteError(config.BasePath, err)
	}
	for _, dir := range []string{AssetsDir, DocumentsDir, TempDir} {
		if err := os.MkdirAll(filepath.Join(absBase, dir), 0o755); err != nil {
			return nil, printing.NewStorageWriteError(filepath.Join(absBase, dir), err)
		}
	}

	return &FileStore{
		basePath: absBase,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		optimize: config.Optimize,
		logger:   config.Logger,
		clock:    config.Clock,
	}, nil
}

// TempPath returns the absolute scratch directory
func (s *FileStore) TempPath() string {
	return filepath.Join(s.basePath, TempDir)
}

// SaveAsset stores an uploaded asset under assets/<role>/.
// Supported raster formats have their dimensions recorded; PNG and JPEG are
// re-encoded when optimisation is enabled.
func (s *FileStore) SaveAsset(ctx context.Context, role printing.AssetRole, filename string, data []byte) (*printing.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, printing.NewStorageWriteError(filename, err)
	}
	if err := printing.ValidateAssetRole(role); err != nil {
		return nil, err
	}
	ext, err := printing.ValidateAssetExtension(filename)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "asset file is empty")
	}

	sum := md5.Sum(data)
	stem := s.clock().Format(timestampLayout) + "_" + hex.EncodeToString(sum[:])[:12]

	payload := data
	width, height := imageDimensions(ext, data)
	if s.optimize {
		if optimized, ok := optimizeImage(ext, data); ok {
			payload = optimized
		} else if isRaster(ext) && width == nil {
			s.logger.Warn("asset could not be decoded, storing original bytes",
				zap.String("filename", filename))
		}
	}

	rel, err := s.writeExclusive(path(AssetsDir, string(role)), stem, ext, payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("asset stored",
		zap.String("path", rel),
		zap.String("role", string(role)),
		zap.Int("size", len(payload)))

	return &printing.StoredFile{
		Path:     rel,
		Size:     int64(len(payload)),
		MimeType: printing.MimeTypeForExtension(ext),
		Width:    width,
		Height:   height,
	}, nil
}

// SaveDocument stores a rendered PDF under documents/ named after the filename hint
func (s *FileStore) SaveDocument(ctx context.Context, filename string, data []byte) (*StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, printing.NewStorageWriteError(filename, err)
	}
	if len(data) == 0 {
		return nil, printing.NewStorageWriteError(filename, errors.New("document is empty"))
	}

	sum := md5.Sum(data)
	stem := fmt.Sprintf("%s_%s_%s", Slug(filename), s.clock().Format(timestampLayout), hex.EncodeToString(sum[:])[:8])

	rel, err := s.writeExclusive(DocumentsDir, stem, ".pdf", data)
	if err != nil {
		return nil, err
	}

	url := s.URL(rel)
	s.logger.Info("document stored",
		zap.String("path", rel),
		zap.Int("size", len(data)),
		zap.String("url", url))

	return &StoredDocument{Path: rel, URL: url, Size: int64(len(data))}, nil
}

// writeExclusive creates dir/stem+ext without overwriting, retrying with a _N suffix
func (s *FileStore) writeExclusive(dir, stem, ext string, data []byte) (string, error) {
	absDir := filepath.Join(s.basePath, filepath.FromSlash(dir))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", printing.NewStorageWriteError(dir, err)
	}

	for n := 0; n < maxNameCollisions; n++ {
		name := stem + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		full := filepath.Join(absDir, name)

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", printing.NewStorageWriteError(path(dir, name), err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(full)
			return "", printing.NewStorageWriteError(path(dir, name), err)
		}
		if err := f.Close(); err != nil {
			os.Remove(full)
			return "", printing.NewStorageWriteError(path(dir, name), err)
		}
		return path(dir, name), nil
	}
	return "", printing.NewStorageWriteError(path(dir, stem+ext),
		fmt.Errorf("more than %d files share this name", maxNameCollisions))
}

// Resolve maps a stored relative path to an absolute path under the base path.
// Absolute paths and paths escaping the base are rejected.
func (s *FileStore) Resolve(rel string) (string, error) {
	cleanPath := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(cleanPath) || containsDotDot(rel) {
		s.logger.Warn("blocked potentially malicious path",
			zap.String("path", rel),
			zap.String("cleanPath", cleanPath))
		return "", shared.NewDomainError("INVALID_PATH", fmt.Sprintf("invalid storage path %q", rel))
	}

	full := filepath.Join(s.basePath, cleanPath)
	if !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked",
			zap.String("path", rel),
			zap.String("absPath", full),
			zap.String("absBase", s.basePath))
		return "", shared.NewDomainError("INVALID_PATH", fmt.Sprintf("invalid storage path %q", rel))
	}
	return full, nil
}

// ResolveOrRaw is Resolve for descriptor building: invalid paths are passed
// through so the embedder reports them as missing files.
func (s *FileStore) ResolveOrRaw(rel string) string {
	full, err := s.Resolve(rel)
	if err != nil {
		return rel
	}
	return full
}

// Open opens a stored file for reading
func (s *FileStore) Open(ctx context.Context, rel string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, shared.WrapDomainError(shared.ErrNotFound.Code, fmt.Sprintf("file %s not found", rel), err)
		}
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	return f, nil
}

// ReadFile returns the content of a stored file
func (s *FileStore) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	rc, err := s.Open(ctx, rel)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return printing.NewStorageWriteError(rel, err)
	}
	s.logger.Info("file deleted", zap.String("path", rel))
	return nil
}

// Exists reports whether a stored file is present
func (s *FileStore) Exists(rel string) bool {
	full, err := s.Resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// ListAssetFiles returns the relative paths of every file under assets/, sorted
func (s *FileStore) ListAssetFiles(ctx context.Context) ([]string, error) {
	var files []string
	root := filepath.Join(s.basePath, AssetsDir)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list asset files: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

// CleanupTemp removes scratch files older than age and returns how many were removed
func (s *FileStore) CleanupTemp(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.clock().Add(-age)
	deletedCount := 0

	err := filepath.WalkDir(s.TempPath(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err == nil {
				deletedCount++
				s.logger.Debug("deleted temp file", zap.String("path", p))
			}
		}
		return nil
	})
	if err != nil {
		return deletedCount, fmt.Errorf("cleanup walk failed: %w", err)
	}

	s.logger.Info("temp cleanup completed",
		zap.Int("deleted", deletedCount),
		zap.Duration("age", age))
	return deletedCount, nil
}

// URL returns the accessible URL for a stored path
func (s *FileStore) URL(rel string) string {
	return s.baseURL + "/" + strings.TrimPrefix(filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel))), "/")
}

// ResizeAsset writes a scaled copy of a stored raster asset next to the original.
// The image only shrinks and keeps its aspect ratio; a zero bound is unconstrained.
func (s *FileStore) ResizeAsset(ctx context.Context, rel string, maxWidth, maxHeight, quality int) (*printing.StoredFile, error) {
	data, err := s.ReadFile(ctx, rel)
	if err != nil {
		return nil, err
	}
	ext, err := printing.ValidateAssetExtension(rel)
	if err != nil {
		return nil, err
	}

	out, outExt, w, h, err := resizeImage(ext, data, maxWidth, maxHeight, quality)
	if err != nil {
		return nil, err
	}

	sum := md5.Sum(out)
	stem := s.clock().Format(timestampLayout) + "_" + hex.EncodeToString(sum[:])[:12]
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel)))

	newRel, err := s.writeExclusive(dir, stem, outExt, out)
	if err != nil {
		return nil, err
	}

	s.logger.Info("asset resized",
		zap.String("source", rel),
		zap.String("path", newRel),
		zap.Int("width", w),
		zap.Int("height", h))

	return &printing.StoredFile{
		Path:     newRel,
		Size:     int64(len(out)),
		MimeType: printing.MimeTypeForExtension(outExt),
		Width:    &w,
		Height:   &h,
	}, nil
}

// Slug reduces a filename hint to a safe file name stem. Only a .pdf or
// asset extension is dropped; other dots are part of the name.
func Slug(filename string) string {
	base := filepath.Base(filepath.ToSlash(filename))
	if ext := strings.ToLower(filepath.Ext(base)); ext == ".pdf" || slices.Contains(printing.AllowedExtensions(), ext) {
		base = base[:len(base)-len(ext)]
	}

	var b bytes.Buffer
	lastUnderscore := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	slug := strings.Trim(b.String(), "_.-")
	if slug == "" {
		return "document"
	}
	return slug
}

func path(parts ...string) string {
	return strings.Join(parts, "/")
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
