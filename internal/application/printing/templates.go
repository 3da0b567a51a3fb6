package printing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
	"github.com/docforge/backend/internal/infrastructure/telemetry"
)

// =============================================================================
// Template Operations
// =============================================================================

// CreateTemplate creates version 1 of a new template family
func (s *GenerationService) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*TemplateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "CreateTemplate",
		telemetry.WithAttribute(telemetry.SpanAttrTemplateName, req.Name))
	defer span.End()

	tmpl, err := s.createTemplate(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return toTemplateResponse(tmpl), nil
}

func (s *GenerationService) createTemplate(ctx context.Context, req CreateTemplateRequest) (*printing.Template, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	exists, err := s.templates.ExistsByName(ctx, req.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check template existence: %w", err)
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code,
			fmt.Sprintf("Template %q already exists", req.Name))
	}

	tmpl, err := printing.NewTemplate(req.Name, req.Title, printing.DocType(req.DocumentType), req.HTMLContent)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := tmpl.UpdateDetails(tmpl.Title, req.Description); err != nil {
			return nil, err
		}
	}
	if len(req.Variables) > 0 {
		if err := tmpl.SetVariables(toVariableSpecs(req.Variables)); err != nil {
			return nil, err
		}
	}
	tmpl.SetDefaultMetadata(req.DefaultMetadata)

	var branding printing.BrandingConfig
	if req.Branding != nil {
		branding = *req.Branding
	}
	if err := tmpl.SetStyle(req.CSSContent, branding); err != nil {
		return nil, err
	}

	// syntax errors and unknown filters surface at create time, not at first render
	if _, err := s.resolver.Compile(tmpl.Reference(), tmpl.HTMLContent); err != nil {
		return nil, err
	}

	if err := s.templates.Save(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	s.logger.Info("template created",
		zap.String("id", tmpl.ID.String()),
		zap.String("name", tmpl.Name),
		zap.String("docType", string(tmpl.DocumentType)))
	return tmpl, nil
}

// GetTemplate retrieves a template version by ID
func (s *GenerationService) GetTemplate(ctx context.Context, id uuid.UUID) (*TemplateResponse, error) {
	tmpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.assets.CountByTemplate(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}
	resp := toTemplateResponse(tmpl)
	resp.AssetCount = &count
	return resp, nil
}

// ListTemplates retrieves a paginated list of templates
func (s *GenerationService) ListTemplates(ctx context.Context, req ListTemplatesRequest) (*ListTemplatesResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	filter := printing.TemplateFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
		IsActive:   req.IsActive,
		FamilyID:   req.FamilyID,
		LatestOnly: req.LatestOnly,
	}
	if req.DocumentType != "" {
		docType := printing.DocType(req.DocumentType)
		filter.DocumentType = &docType
	}

	templates, err := s.templates.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	total, err := s.templates.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	items := make([]TemplateResponse, len(templates))
	for i := range templates {
		items[i] = *toTemplateResponse(&templates[i])
	}
	return &ListTemplatesResponse{
		Items: items,
		Total: total,
		Page:  req.Page,
		Size:  req.PageSize,
	}, nil
}

// UpdateTemplate edits the title and description of a version in place
func (s *GenerationService) UpdateTemplate(ctx context.Context, id uuid.UUID, req UpdateTemplateRequest) (*TemplateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	tmpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	title, description := tmpl.Title, tmpl.Description
	if req.Title != nil {
		title = *req.Title
	}
	if req.Description != nil {
		description = *req.Description
	}
	if err := tmpl.UpdateDetails(title, description); err != nil {
		return nil, err
	}
	if err := s.templates.Save(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	s.logger.Info("template updated", zap.String("id", tmpl.ID.String()))
	return toTemplateResponse(tmpl), nil
}

// CreateVersion derives a new version from the given one. The new version is
// numbered above every version already stored in the family.
func (s *GenerationService) CreateVersion(ctx context.Context, parentID uuid.UUID, req NewVersionRequest) (*TemplateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "CreateVersion",
		telemetry.WithAttribute(telemetry.SpanAttrTemplateID, parentID.String()))
	defer span.End()

	resp, err := s.createVersion(ctx, parentID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return resp, nil
}

func (s *GenerationService) createVersion(ctx context.Context, parentID uuid.UUID, req NewVersionRequest) (*TemplateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	parent, err := s.findTemplate(ctx, parentID)
	if err != nil {
		return nil, err
	}
	latest, err := s.templates.LatestVersion(ctx, parent.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest version: %w", err)
	}

	rev := printing.TemplateRevision{
		HTMLContent: req.HTMLContent,
		CSSContent:  req.CSSContent,
		Branding:    req.Branding,
		Metadata:    req.DefaultMetadata,
	}
	if req.Variables != nil {
		rev.Variables = toVariableSpecs(req.Variables)
	}
	next, err := parent.NewVersion(latest, rev)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.Compile(next.Reference(), next.HTMLContent); err != nil {
		return nil, err
	}
	if err := s.templates.Save(ctx, next); err != nil {
		if errors.Is(err, printing.ErrInvalidTemplateVersion) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save template version: %w", err)
	}

	s.logger.Info("template version created",
		zap.String("id", next.ID.String()),
		zap.String("parent", parent.Reference()),
		zap.Int("version", next.Version))
	return toTemplateResponse(next), nil
}

// ListVersions returns every version in the family of the given template, oldest first
func (s *GenerationService) ListVersions(ctx context.Context, id uuid.UUID) ([]TemplateResponse, error) {
	tmpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.templates.FindVersions(ctx, tmpl.FamilyID)
	if err != nil {
		return nil, err
	}
	items := make([]TemplateResponse, len(versions))
	for i := range versions {
		items[i] = *toTemplateResponse(&versions[i])
	}
	return items, nil
}

// DuplicateTemplate copies a version into a new family
func (s *GenerationService) DuplicateTemplate(ctx context.Context, id uuid.UUID, req DuplicateTemplateRequest) (*TemplateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	source, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.templates.ExistsByName(ctx, req.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check template existence: %w", err)
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code,
			fmt.Sprintf("Template %q already exists", req.Name))
	}

	dup, err := source.Duplicate(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.templates.Save(ctx, dup); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	s.logger.Info("template duplicated",
		zap.String("source", source.Reference()),
		zap.String("id", dup.ID.String()))
	return toTemplateResponse(dup), nil
}

// ActivateTemplate makes a version usable for generation again
func (s *GenerationService) ActivateTemplate(ctx context.Context, id uuid.UUID) (*TemplateResponse, error) {
	return s.setActive(ctx, id, (*printing.Template).Activate)
}

// DeactivateTemplate retires a version; templates are never hard-deleted
func (s *GenerationService) DeactivateTemplate(ctx context.Context, id uuid.UUID) (*TemplateResponse, error) {
	return s.setActive(ctx, id, (*printing.Template).Deactivate)
}

func (s *GenerationService) setActive(ctx context.Context, id uuid.UUID, change func(*printing.Template) error) (*TemplateResponse, error) {
	tmpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(tmpl); err != nil {
		return nil, err
	}
	if err := s.templates.Save(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	s.logger.Info("template status changed",
		zap.String("id", tmpl.ID.String()),
		zap.Bool("active", tmpl.IsActive))
	return toTemplateResponse(tmpl), nil
}

// ImportTemplates creates one template per YAML document in r.
// Import stops at the first failure; templates created before it are kept.
func (s *GenerationService) ImportTemplates(ctx context.Context, r io.Reader) ([]TemplateResponse, error) {
	dec := yaml.NewDecoder(r)
	var created []TemplateResponse
	for n := 1; ; n++ {
		var req CreateTemplateRequest
		err := dec.Decode(&req)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return created, shared.WrapDomainError(shared.ErrInvalidInput.Code,
				fmt.Sprintf("manifest document %d is not valid YAML", n), err)
		}
		resp, err := s.CreateTemplate(ctx, req)
		if err != nil {
			return created, fmt.Errorf("manifest document %d (%s): %w", n, req.Name, err)
		}
		created = append(created, *resp)
	}
	return created, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func toVariableSpecs(vars []VariableDTO) []printing.VariableSpec {
	specs := make([]printing.VariableSpec, len(vars))
	for i, v := range vars {
		specs[i] = printing.VariableSpec{
			Name:        v.Name,
			Description: v.Description,
			Example:     v.Example,
			DataType:    printing.VariableType(v.DataType),
			Required:    v.Required,
		}
	}
	return specs
}

func toTemplateResponse(t *printing.Template) *TemplateResponse {
	resp := &TemplateResponse{
		ID:              t.ID.String(),
		FamilyID:        t.FamilyID.String(),
		Version:         t.Version,
		Name:            t.Name,
		Title:           t.Title,
		Description:     t.Description,
		DocumentType:    string(t.DocumentType),
		HTMLContent:     t.HTMLContent,
		CSSContent:      t.CSSContent,
		Variables:       t.Variables,
		DefaultMetadata: t.DefaultMetadata,
		Branding:        t.Branding,
		IsActive:        t.IsActive,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.ParentID != nil {
		resp.ParentID = t.ParentID.String()
	}
	return resp
}
