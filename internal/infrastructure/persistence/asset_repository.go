package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
	"github.com/docforge/backend/internal/infrastructure/persistence/models"
)

// GormAssetRepository implements printing.AssetRepository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// FindByID finds an asset by ID
func (r *GormAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*printing.Asset, error) {
	var model models.TemplateAssetModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(printing.CodeAssetNotFound, fmt.Sprintf("asset %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByTemplate returns a template's assets in upload order
func (r *GormAssetRepository) FindByTemplate(ctx context.Context, templateID uuid.UUID) ([]printing.Asset, error) {
	var rows []models.TemplateAssetModel
	if err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	assets := make([]printing.Asset, len(rows))
	for i := range rows {
		a, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		assets[i] = *a
	}
	return assets, nil
}

// CountByTemplate returns the number of assets attached to a template
func (r *GormAssetRepository) CountByTemplate(ctx context.Context, templateID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TemplateAssetModel{}).
		Where("template_id = ?", templateID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts a new asset
func (r *GormAssetRepository) Save(ctx context.Context, asset *printing.Asset) error {
	model, err := models.TemplateAssetModelFromDomain(asset)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.WrapDomainError(shared.ErrAlreadyExists.Code,
				fmt.Sprintf("an asset already points at %s", asset.StoragePath), err)
		}
		return err
	}
	return nil
}

// DeleteWithFile removes the record, then the file, in one transaction.
// The row delete is rolled back when removeFile fails.
func (r *GormAssetRepository) DeleteWithFile(ctx context.Context, id uuid.UUID, removeFile func(path string) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.TemplateAssetModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.NewDomainError(printing.CodeAssetNotFound, fmt.Sprintf("asset %s not found", id))
			}
			return err
		}
		if err := tx.Delete(&models.TemplateAssetModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		if removeFile == nil {
			return nil
		}
		return removeFile(model.StoragePath)
	})
}

// AllStoragePaths maps every recorded storage path to its asset ID
func (r *GormAssetRepository) AllStoragePaths(ctx context.Context) (map[string]uuid.UUID, error) {
	var rows []struct {
		ID          uuid.UUID
		StoragePath string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TemplateAssetModel{}).
		Select("id", "storage_path").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	paths := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		paths[row.StoragePath] = row.ID
	}
	return paths, nil
}

// Ensure GormAssetRepository implements AssetRepository
var _ printing.AssetRepository = (*GormAssetRepository)(nil)
