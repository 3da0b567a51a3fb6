package printing

import (
	"maps"
	"path/filepath"
	"strings"

	"github.com/docforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// mimeTypes is the fixed extension allow-list and its MIME mapping
var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// AllowedExtensions returns the accepted asset file extensions, sorted
func AllowedExtensions() []string {
	return []string{".gif", ".jpeg", ".jpg", ".png", ".svg", ".webp"}
}

// MimeTypeForExtension maps an extension (with dot, any case) to its MIME type.
// Unknown extensions map to application/octet-stream.
func MimeTypeForExtension(ext string) string {
	if mt, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// ValidateAssetExtension returns the normalised extension of filename or InvalidAssetType
func ValidateAssetExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := mimeTypes[ext]; !ok {
		shown := ext
		if shown == "" {
			shown = filename
		}
		return "", NewInvalidAssetTypeError(shown, AllowedExtensions())
	}
	return ext, nil
}

// ValidateAssetRole returns InvalidAssetType for roles outside the allow-list
func ValidateAssetRole(role AssetRole) error {
	if role.IsValid() {
		return nil
	}
	allowed := make([]string, 0, 4)
	for _, r := range AllAssetRoles() {
		allowed = append(allowed, string(r))
	}
	return NewInvalidAssetTypeError(string(role), allowed)
}

// Asset is a stored binary file attached to a template.
// Assets are immutable once stored; re-uploading creates a new asset.
type Asset struct {
	shared.BaseEntity
	TemplateID    uuid.UUID
	Role          AssetRole
	Name          string
	StoragePath   string
	FileSize      int64
	MimeType      string
	Width         *int
	Height        *int
	DisplayConfig map[string]any
	IsDefault     bool
}

// StoredFile describes the bytes an AssetStore persisted for an upload
type StoredFile struct {
	Path     string
	Size     int64
	MimeType string
	Width    *int
	Height   *int
}

// NewAsset creates an asset record for a file that has already been stored
func NewAsset(templateID uuid.UUID, role AssetRole, name string, file StoredFile) (*Asset, error) {
	if templateID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TEMPLATE", "Asset must belong to a template")
	}
	if err := ValidateAssetRole(role); err != nil {
		return nil, err
	}
	if strings.TrimSpace(file.Path) == "" {
		return nil, shared.NewDomainError("INVALID_PATH", "Asset storage path cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = filepath.Base(file.Path)
	}

	return &Asset{
		BaseEntity:    shared.NewBaseEntity(),
		TemplateID:    templateID,
		Role:          role,
		Name:          name,
		StoragePath:   file.Path,
		FileSize:      file.Size,
		MimeType:      file.MimeType,
		Width:         file.Width,
		Height:        file.Height,
		DisplayConfig: map[string]any{},
	}, nil
}

// WithDisplay sets the display configuration and default flag
func (a *Asset) WithDisplay(display map[string]any, isDefault bool) *Asset {
	a.DisplayConfig = maps.Clone(display)
	if a.DisplayConfig == nil {
		a.DisplayConfig = map[string]any{}
	}
	a.IsDefault = isDefault
	return a
}

// Descriptor converts the asset into the input of the asset embedder.
// resolve maps the stored relative path to a readable filesystem path.
func (a *Asset) Descriptor(resolve func(string) string) AssetDescriptor {
	path := a.StoragePath
	if resolve != nil {
		path = resolve(path)
	}
	return AssetDescriptor{
		Role:          a.Role,
		Name:          a.Name,
		FilePath:      path,
		MimeType:      a.MimeType,
		Width:         a.Width,
		Height:        a.Height,
		DisplayConfig: a.DisplayConfig,
		IsDefault:     a.IsDefault,
	}
}

// AssetDescriptor is what the embedder needs to inline one asset
type AssetDescriptor struct {
	Role          AssetRole
	Name          string
	FilePath      string
	MimeType      string
	Width         *int
	Height        *int
	DisplayConfig map[string]any
	IsDefault     bool
}
