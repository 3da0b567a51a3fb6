package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
	"github.com/docforge/backend/internal/infrastructure/persistence/models"
)

const latestVersionClause = "version = (SELECT MAX(v.version) FROM document_templates v WHERE v.family_id = document_templates.family_id)"

// GormTemplateRepository implements printing.TemplateRepository using GORM
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewGormTemplateRepository creates a new GormTemplateRepository
func NewGormTemplateRepository(db *gorm.DB) *GormTemplateRepository {
	return &GormTemplateRepository{db: db}
}

// FindByID finds a template version by ID
func (r *GormTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*printing.Template, error) {
	var model models.DocumentTemplateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, printing.NewTemplateNotFoundError(id.String())
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll finds templates matching the filter, paged and ordered
func (r *GormTemplateRepository) FindAll(ctx context.Context, filter printing.TemplateFilter) ([]printing.Template, error) {
	var rows []models.DocumentTemplateModel
	query := r.applyCriteria(r.db.WithContext(ctx).Model(&models.DocumentTemplateModel{}), filter)

	query = query.Order(templateOrder(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTemplates(rows)
}

// Count returns the number of templates matching the filter
func (r *GormTemplateRepository) Count(ctx context.Context, filter printing.TemplateFilter) (int64, error) {
	var count int64
	query := r.applyCriteria(r.db.WithContext(ctx).Model(&models.DocumentTemplateModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindVersions returns every version of a family ordered by version ascending
func (r *GormTemplateRepository) FindVersions(ctx context.Context, familyID uuid.UUID) ([]printing.Template, error) {
	var rows []models.DocumentTemplateModel
	if err := r.db.WithContext(ctx).
		Where("family_id = ?", familyID).
		Order("version ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, printing.NewTemplateNotFoundError("family " + familyID.String())
	}
	return toTemplates(rows)
}

// LatestVersion returns the highest version number stored for a family, or 0
func (r *GormTemplateRepository) LatestVersion(ctx context.Context, familyID uuid.UUID) (int, error) {
	var latest int
	row := r.db.WithContext(ctx).
		Model(&models.DocumentTemplateModel{}).
		Where("family_id = ?", familyID).
		Select("COALESCE(MAX(version), 0)").
		Row()
	if err := row.Scan(&latest); err != nil {
		return 0, err
	}
	return latest, nil
}

// Save inserts a new version or updates an existing row in place
func (r *GormTemplateRepository) Save(ctx context.Context, template *printing.Template) error {
	model, err := models.DocumentTemplateModelFromDomain(template)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.WrapDomainError(printing.CodeInvalidTemplateVersion,
				fmt.Sprintf("version %d of template family %s already exists", template.Version, template.FamilyID), err)
		}
		return err
	}
	return nil
}

// ExistsByName checks whether another template family already uses name
func (r *GormTemplateRepository) ExistsByName(ctx context.Context, name string, excludeFamily *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.DocumentTemplateModel{}).
		Where("name = ?", name)
	if excludeFamily != nil {
		query = query.Where("family_id <> ?", *excludeFamily)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyCriteria applies the WHERE part of a filter
func (r *GormTemplateRepository) applyCriteria(query *gorm.DB, filter printing.TemplateFilter) *gorm.DB {
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", string(*filter.DocumentType))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.FamilyID != nil {
		query = query.Where("family_id = ?", *filter.FamilyID)
	}
	if filter.LatestOnly {
		query = query.Where(latestVersionClause)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(title) LIKE ?", pattern, pattern)
	}
	return query
}

func toTemplates(rows []models.DocumentTemplateModel) ([]printing.Template, error) {
	templates := make([]printing.Template, len(rows))
	for i := range rows {
		t, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		templates[i] = *t
	}
	return templates, nil
}

// Ensure GormTemplateRepository implements TemplateRepository
var _ printing.TemplateRepository = (*GormTemplateRepository)(nil)
