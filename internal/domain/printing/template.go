package printing

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/docforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Template is a versioned document template.
// It is the aggregate root for template, branding and asset operations.
//
// Templates form version chains inside a family: FamilyID is the ID of the
// version-1 root, ParentID points at the version the template was derived from,
// and Version is always strictly greater than the parent's. Published content
// is never edited in place; a new version is created instead.
type Template struct {
	shared.BaseEntity
	FamilyID        uuid.UUID
	ParentID        *uuid.UUID
	Version         int
	Name            string
	Title           string
	Description     string
	DocumentType    DocType
	HTMLContent     string
	CSSContent      string
	Variables       []VariableSpec
	DefaultMetadata map[string]any
	Branding        BrandingConfig
	IsActive        bool
}

// NewTemplate creates version 1 of a new template family
func NewTemplate(name, title string, docType DocType, htmlContent string) (*Template, error) {
	if err := validateTemplateName(name); err != nil {
		return nil, err
	}
	if err := validateDocType(docType); err != nil {
		return nil, err
	}
	if err := validateTemplateContent(htmlContent); err != nil {
		return nil, err
	}

	base := shared.NewBaseEntity()
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(name)
	}

	return &Template{
		BaseEntity:      base,
		FamilyID:        base.ID,
		Version:         1,
		Name:            strings.TrimSpace(name),
		Title:           title,
		DocumentType:    docType,
		HTMLContent:     htmlContent,
		DefaultMetadata: map[string]any{},
		IsActive:        true,
	}, nil
}

// SetStyle sets the stylesheet override and branding before the template is first saved
func (t *Template) SetStyle(css string, branding BrandingConfig) error {
	if err := branding.Validate(); err != nil {
		return err
	}
	t.CSSContent = css
	t.Branding = branding
	t.Touch()
	return nil
}

// SetVariables replaces the declared variable schema
func (t *Template) SetVariables(vars []VariableSpec) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return shared.NewDomainError("INVALID_VARIABLE", "Variable name cannot be empty")
		}
		if seen[name] {
			return shared.NewDomainError("INVALID_VARIABLE", fmt.Sprintf("Variable %q declared twice", name))
		}
		if v.DataType != "" && !v.DataType.IsValid() {
			return shared.NewDomainError("INVALID_VARIABLE", fmt.Sprintf("Variable %q has invalid data type %q", name, v.DataType))
		}
		seen[name] = true
	}
	t.Variables = slices.Clone(vars)
	t.Touch()
	return nil
}

// SetDefaultMetadata replaces the default metadata mapping
func (t *Template) SetDefaultMetadata(meta map[string]any) {
	t.DefaultMetadata = maps.Clone(meta)
	if t.DefaultMetadata == nil {
		t.DefaultMetadata = map[string]any{}
	}
	t.Touch()
}

// UpdateDetails edits the superficial fields that may change in place
func (t *Template) UpdateDetails(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Template title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Template title cannot exceed 200 characters")
	}
	t.Title = title
	t.Description = strings.TrimSpace(description)
	t.Touch()
	return nil
}

// TemplateRevision carries the content changes for a new version.
// Nil fields are inherited from the parent.
type TemplateRevision struct {
	HTMLContent *string
	CSSContent  *string
	Variables   []VariableSpec
	Branding    *BrandingConfig
	Metadata    map[string]any
}

// NewVersion derives a new template version from t.
// latest is the highest version currently stored in the family; the new version
// is numbered above both latest and t so the chain never cycles.
func (t *Template) NewVersion(latest int, rev TemplateRevision) (*Template, error) {
	next := &Template{
		BaseEntity:      shared.NewBaseEntity(),
		FamilyID:        t.FamilyID,
		Version:         max(latest, t.Version) + 1,
		Name:            t.Name,
		Title:           t.Title,
		Description:     t.Description,
		DocumentType:    t.DocumentType,
		HTMLContent:     t.HTMLContent,
		CSSContent:      t.CSSContent,
		Variables:       slices.Clone(t.Variables),
		DefaultMetadata: maps.Clone(t.DefaultMetadata),
		Branding:        t.Branding,
		IsActive:        true,
	}
	parentID := t.ID
	next.ParentID = &parentID

	if rev.HTMLContent != nil {
		if err := validateTemplateContent(*rev.HTMLContent); err != nil {
			return nil, err
		}
		next.HTMLContent = *rev.HTMLContent
	}
	if rev.CSSContent != nil {
		next.CSSContent = *rev.CSSContent
	}
	if rev.Variables != nil {
		if err := next.SetVariables(rev.Variables); err != nil {
			return nil, err
		}
	}
	if rev.Branding != nil {
		if err := rev.Branding.Validate(); err != nil {
			return nil, err
		}
		next.Branding = *rev.Branding
	}
	if rev.Metadata != nil {
		next.DefaultMetadata = maps.Clone(rev.Metadata)
	}
	if next.DefaultMetadata == nil {
		next.DefaultMetadata = map[string]any{}
	}

	if err := next.ValidateParent(t); err != nil {
		return nil, err
	}
	return next, nil
}

// ValidateParent enforces the version chain: the parent is a different template of
// the same family with a strictly smaller version.
func (t *Template) ValidateParent(parent *Template) error {
	if parent == nil {
		if t.ParentID != nil {
			return shared.NewDomainError(CodeInvalidTemplateVersion, "parent template is missing")
		}
		return nil
	}
	if parent.ID == t.ID {
		return shared.NewDomainError(CodeInvalidTemplateVersion, "template cannot be its own parent")
	}
	if t.ParentID == nil || *t.ParentID != parent.ID {
		return shared.NewDomainError(CodeInvalidTemplateVersion, "parent id does not match")
	}
	if parent.FamilyID != t.FamilyID {
		return shared.NewDomainError(CodeInvalidTemplateVersion, "parent belongs to another template family")
	}
	if parent.Version >= t.Version {
		return shared.NewDomainError(CodeInvalidTemplateVersion,
			fmt.Sprintf("parent version %d must be lower than version %d", parent.Version, t.Version))
	}
	return nil
}

// Duplicate copies the template into a new family under a new name
func (t *Template) Duplicate(newName string) (*Template, error) {
	dup, err := NewTemplate(newName, t.Title+" (Copy)", t.DocumentType, t.HTMLContent)
	if err != nil {
		return nil, err
	}
	dup.Description = t.Description
	dup.CSSContent = t.CSSContent
	dup.Variables = slices.Clone(t.Variables)
	dup.DefaultMetadata = maps.Clone(t.DefaultMetadata)
	if dup.DefaultMetadata == nil {
		dup.DefaultMetadata = map[string]any{}
	}
	dup.Branding = t.Branding
	return dup, nil
}

// Activate marks the template usable for generation
func (t *Template) Activate() error {
	if t.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Template is already active")
	}
	t.IsActive = true
	t.Touch()
	return nil
}

// Deactivate retires the template; templates are never hard-deleted
func (t *Template) Deactivate() error {
	if !t.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Template is already inactive")
	}
	t.IsActive = false
	t.Touch()
	return nil
}

// MissingRequired returns the declared required variables absent from data, in declaration order.
// Dotted names are looked up through nested maps.
func (t *Template) MissingRequired(data map[string]any) []string {
	var missing []string
	for _, v := range t.Variables {
		if !v.Required {
			continue
		}
		if !hasPath(data, v.Name) {
			missing = append(missing, v.Name)
		}
	}
	return missing
}

// Reference returns a short human readable reference (name@vN)
func (t *Template) Reference() string {
	return fmt.Sprintf("%s@v%d", t.Name, t.Version)
}

func hasPath(data map[string]any, path string) bool {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return false
		}
	}
	return true
}

func validateTemplateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Template name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Template name cannot exceed 100 characters")
	}
	return nil
}

func validateDocType(docType DocType) error {
	if !docType.IsValid() {
		return shared.NewDomainError("INVALID_DOC_TYPE", "Invalid document type")
	}
	return nil
}

func validateTemplateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return shared.NewDomainError("INVALID_CONTENT", "Template content cannot be empty")
	}
	return nil
}
