package printing

import (
	"context"

	"github.com/docforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TemplateRepository defines the interface for template persistence.
// Template rows are append-only per version; Save only updates the
// fields a Template allows to change in place.
type TemplateRepository interface {
	// FindByID finds a template version by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Template, error)

	// FindAll finds templates matching the filter
	FindAll(ctx context.Context, filter TemplateFilter) ([]Template, error)

	// Count returns the number of templates matching the filter
	Count(ctx context.Context, filter TemplateFilter) (int64, error)

	// FindVersions returns every version of a family ordered by version ascending
	FindVersions(ctx context.Context, familyID uuid.UUID) ([]Template, error)

	// LatestVersion returns the highest version number stored for a family
	LatestVersion(ctx context.Context, familyID uuid.UUID) (int, error)

	// Save saves a template (insert or update)
	Save(ctx context.Context, template *Template) error

	// ExistsByName checks if a template family with the given name exists
	ExistsByName(ctx context.Context, name string, excludeFamily *uuid.UUID) (bool, error)
}

// AssetRepository defines the interface for asset persistence
type AssetRepository interface {
	// FindByID finds an asset by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// FindByTemplate returns a template's assets in upload order
	FindByTemplate(ctx context.Context, templateID uuid.UUID) ([]Asset, error)

	// CountByTemplate returns the number of assets attached to a template
	CountByTemplate(ctx context.Context, templateID uuid.UUID) (int64, error)

	// Save inserts a new asset
	Save(ctx context.Context, asset *Asset) error

	// DeleteWithFile deletes the record and calls removeFile inside one transaction.
	// If removeFile fails the record is kept.
	DeleteWithFile(ctx context.Context, id uuid.UUID, removeFile func(path string) error) error

	// AllStoragePaths returns every stored path, used for reconciliation
	AllStoragePaths(ctx context.Context) (map[string]uuid.UUID, error)
}

// TemplateFilter extends the standard filter with template specific criteria
type TemplateFilter struct {
	shared.Filter
	DocumentType *DocType
	IsActive     *bool
	FamilyID     *uuid.UUID
	LatestOnly   bool
}
