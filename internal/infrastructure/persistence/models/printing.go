package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/docforge/backend/internal/domain/printing"
)

// DocumentTemplateModel is the GORM model for the append-only document_templates table
type DocumentTemplateModel struct {
	BaseModel
	FamilyID            uuid.UUID  `gorm:"column:family_id;type:uuid;not null;uniqueIndex:idx_document_templates_family_version"`
	ParentID            *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Version             int        `gorm:"not null;uniqueIndex:idx_document_templates_family_version"`
	Name                string     `gorm:"type:varchar(100);not null;index"`
	Title               string     `gorm:"type:varchar(200);not null"`
	Description         string     `gorm:"type:text"`
	DocumentType        string     `gorm:"column:document_type;type:varchar(50);not null;index"`
	HTMLContent         string     `gorm:"column:html_content;type:text;not null"`
	CSSContent          string     `gorm:"column:css_content;type:text"`
	VariablesJSON       string     `gorm:"column:variables;type:jsonb;not null"`
	DefaultMetadataJSON string     `gorm:"column:default_metadata;type:jsonb;not null"`
	BrandingJSON        string     `gorm:"column:branding;type:jsonb;not null"`
	IsActive            bool       `gorm:"column:is_active;not null"`
}

// TableName returns the table name for DocumentTemplateModel
func (DocumentTemplateModel) TableName() string {
	return "document_templates"
}

// ToDomain converts DocumentTemplateModel to domain Template
func (m *DocumentTemplateModel) ToDomain() (*printing.Template, error) {
	t := &printing.Template{
		BaseEntity:   m.BaseModel.entity(),
		FamilyID:     m.FamilyID,
		ParentID:     m.ParentID,
		Version:      m.Version,
		Name:         m.Name,
		Title:        m.Title,
		Description:  m.Description,
		DocumentType: printing.DocType(m.DocumentType),
		HTMLContent:  m.HTMLContent,
		CSSContent:   m.CSSContent,
		IsActive:     m.IsActive,
	}
	if err := decodeJSON(m.VariablesJSON, &t.Variables); err != nil {
		return nil, fmt.Errorf("template %s variables: %w", m.ID, err)
	}
	if err := decodeJSON(m.DefaultMetadataJSON, &t.DefaultMetadata); err != nil {
		return nil, fmt.Errorf("template %s default metadata: %w", m.ID, err)
	}
	if err := decodeJSON(m.BrandingJSON, &t.Branding); err != nil {
		return nil, fmt.Errorf("template %s branding: %w", m.ID, err)
	}
	if t.DefaultMetadata == nil {
		t.DefaultMetadata = map[string]any{}
	}
	return t, nil
}

// DocumentTemplateModelFromDomain creates a DocumentTemplateModel from domain Template
func DocumentTemplateModelFromDomain(t *printing.Template) (*DocumentTemplateModel, error) {
	m := &DocumentTemplateModel{
		FamilyID:     t.FamilyID,
		ParentID:     t.ParentID,
		Version:      t.Version,
		Name:         t.Name,
		Title:        t.Title,
		Description:  t.Description,
		DocumentType: string(t.DocumentType),
		HTMLContent:  t.HTMLContent,
		CSSContent:   t.CSSContent,
		IsActive:     t.IsActive,
	}
	m.BaseModel = baseModelOf(t.BaseEntity)

	var err error
	vars := t.Variables
	if vars == nil {
		vars = []printing.VariableSpec{}
	}
	if m.VariablesJSON, err = encodeJSON(vars); err != nil {
		return nil, err
	}
	meta := t.DefaultMetadata
	if meta == nil {
		meta = map[string]any{}
	}
	if m.DefaultMetadataJSON, err = encodeJSON(meta); err != nil {
		return nil, err
	}
	if m.BrandingJSON, err = encodeJSON(t.Branding); err != nil {
		return nil, err
	}
	return m, nil
}

// TemplateAssetModel is the GORM model for the template_assets table
type TemplateAssetModel struct {
	BaseModel
	TemplateID        uuid.UUID `gorm:"column:template_id;type:uuid;not null;index"`
	Role              string    `gorm:"type:varchar(20);not null"`
	Name              string    `gorm:"type:varchar(255);not null"`
	StoragePath       string    `gorm:"column:storage_path;type:varchar(500);not null;uniqueIndex"`
	FileSize          int64     `gorm:"column:file_size;not null"`
	MimeType          string    `gorm:"column:mime_type;type:varchar(100);not null"`
	Width             *int
	Height            *int
	DisplayConfigJSON string `gorm:"column:display_config;type:jsonb;not null"`
	IsDefault         bool   `gorm:"column:is_default;not null"`
}

// TableName returns the table name for TemplateAssetModel
func (TemplateAssetModel) TableName() string {
	return "template_assets"
}

// ToDomain converts TemplateAssetModel to domain Asset
func (m *TemplateAssetModel) ToDomain() (*printing.Asset, error) {
	a := &printing.Asset{
		BaseEntity:  m.BaseModel.entity(),
		TemplateID:  m.TemplateID,
		Role:        printing.AssetRole(m.Role),
		Name:        m.Name,
		StoragePath: m.StoragePath,
		FileSize:    m.FileSize,
		MimeType:    m.MimeType,
		Width:       m.Width,
		Height:      m.Height,
		IsDefault:   m.IsDefault,
	}
	if err := decodeJSON(m.DisplayConfigJSON, &a.DisplayConfig); err != nil {
		return nil, fmt.Errorf("asset %s display config: %w", m.ID, err)
	}
	if a.DisplayConfig == nil {
		a.DisplayConfig = map[string]any{}
	}
	return a, nil
}

// TemplateAssetModelFromDomain creates a TemplateAssetModel from domain Asset
func TemplateAssetModelFromDomain(a *printing.Asset) (*TemplateAssetModel, error) {
	m := &TemplateAssetModel{
		TemplateID:  a.TemplateID,
		Role:        string(a.Role),
		Name:        a.Name,
		StoragePath: a.StoragePath,
		FileSize:    a.FileSize,
		MimeType:    a.MimeType,
		Width:       a.Width,
		Height:      a.Height,
		IsDefault:   a.IsDefault,
	}
	m.BaseModel = baseModelOf(a.BaseEntity)

	display := a.DisplayConfig
	if display == nil {
		display = map[string]any{}
	}
	var err error
	if m.DisplayConfigJSON, err = encodeJSON(display); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
