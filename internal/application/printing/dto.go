package printing

import (
	"time"

	"github.com/google/uuid"

	"github.com/docforge/backend/internal/domain/printing"
)

// =============================================================================
// Template DTOs
// =============================================================================

// VariableDTO declares one template variable
type VariableDTO struct {
	Name        string `json:"name" yaml:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=500"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
	DataType    string `json:"data_type,omitempty" yaml:"data_type,omitempty" validate:"omitempty,oneof=string number date boolean list object"`
	Required    bool   `json:"required" yaml:"required"`
}

// CreateTemplateRequest creates version 1 of a new template family.
// It is also the document format of `docgen template import`.
type CreateTemplateRequest struct {
	Name            string                   `json:"name" yaml:"name" validate:"required,min=1,max=100"`
	Title           string                   `json:"title" yaml:"title" validate:"max=200"`
	Description     string                   `json:"description" yaml:"description" validate:"max=500"`
	DocumentType    string                   `json:"document_type" yaml:"document_type" validate:"required,oneof=invoice agreement quote receipt purchase_order delivery_note"`
	HTMLContent     string                   `json:"html_content" yaml:"html_content" validate:"required"`
	CSSContent      string                   `json:"css_content" yaml:"css_content"`
	Variables       []VariableDTO            `json:"variables" yaml:"variables" validate:"dive"`
	DefaultMetadata map[string]any           `json:"default_metadata" yaml:"default_metadata"`
	Branding        *printing.BrandingConfig `json:"branding" yaml:"branding"`
}

// UpdateTemplateRequest changes the fields a version allows to edit in place
type UpdateTemplateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// NewVersionRequest derives a new version; nil fields are inherited from the parent
type NewVersionRequest struct {
	HTMLContent     *string                  `json:"html_content" yaml:"html_content"`
	CSSContent      *string                  `json:"css_content" yaml:"css_content"`
	Variables       []VariableDTO            `json:"variables" yaml:"variables" validate:"dive"`
	DefaultMetadata map[string]any           `json:"default_metadata" yaml:"default_metadata"`
	Branding        *printing.BrandingConfig `json:"branding" yaml:"branding"`
}

// DuplicateTemplateRequest copies a template into a new family
type DuplicateTemplateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// ListTemplatesRequest represents a request to list templates
type ListTemplatesRequest struct {
	Page         int    `json:"page" validate:"min=0"`
	PageSize     int    `json:"page_size" validate:"min=0,max=100"`
	OrderBy      string `json:"order_by"`
	OrderDir     string `json:"order_dir" validate:"omitempty,oneof=asc desc"`
	Search       string `json:"search" validate:"max=100"`
	DocumentType string `json:"document_type" validate:"omitempty,oneof=invoice agreement quote receipt purchase_order delivery_note"`
	IsActive     *bool  `json:"is_active"`
	FamilyID     *uuid.UUID
	LatestOnly   bool `json:"latest_only"`
}

// TemplateResponse represents a template version
type TemplateResponse struct {
	ID              string                  `json:"id"`
	FamilyID        string                  `json:"family_id"`
	ParentID        string                  `json:"parent_id,omitempty"`
	Version         int                     `json:"version"`
	Name            string                  `json:"name"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	DocumentType    string                  `json:"document_type"`
	HTMLContent     string                  `json:"html_content,omitempty"`
	CSSContent      string                  `json:"css_content,omitempty"`
	Variables       []printing.VariableSpec `json:"variables"`
	DefaultMetadata map[string]any          `json:"default_metadata"`
	Branding        printing.BrandingConfig `json:"branding"`
	IsActive        bool                    `json:"is_active"`
	AssetCount      *int64                  `json:"asset_count,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// ListTemplatesResponse represents a paginated list of templates
type ListTemplatesResponse struct {
	Items []TemplateResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
}

// =============================================================================
// Asset DTOs
// =============================================================================

// UploadAssetRequest stores a file and attaches it to a template
type UploadAssetRequest struct {
	TemplateID    uuid.UUID      `json:"template_id" validate:"required"`
	Role          string         `json:"role" validate:"required"`
	Filename      string         `json:"filename" validate:"required,max=255"`
	Name          string         `json:"name" validate:"max=255"`
	Data          []byte         `json:"-" validate:"required"`
	DisplayConfig map[string]any `json:"display_config"`
	IsDefault     bool           `json:"is_default"`
}

// ResizeAssetRequest stores a scaled copy of a raster asset as a new asset
type ResizeAssetRequest struct {
	AssetID   uuid.UUID `json:"asset_id" validate:"required"`
	MaxWidth  int       `json:"max_width" validate:"min=0,max=10000"`
	MaxHeight int       `json:"max_height" validate:"min=0,max=10000"`
	Quality   int       `json:"quality" validate:"omitempty,min=1,max=100"`
}

// AssetResponse represents a stored asset
type AssetResponse struct {
	ID            string         `json:"id"`
	TemplateID    string         `json:"template_id"`
	Role          string         `json:"role"`
	Name          string         `json:"name"`
	StoragePath   string         `json:"storage_path"`
	URL           string         `json:"url"`
	FileSize      int64          `json:"file_size"`
	MimeType      string         `json:"mime_type"`
	Width         *int           `json:"width,omitempty"`
	Height        *int           `json:"height,omitempty"`
	DisplayConfig map[string]any `json:"display_config"`
	IsDefault     bool           `json:"is_default"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ReconcileResponse lists files without records and records without files
type ReconcileResponse struct {
	OrphanFiles    []string `json:"orphan_files"`
	DanglingAssets []string `json:"dangling_assets"`
	RemovedFiles   int      `json:"removed_files"`
}

// =============================================================================
// Generation DTOs
// =============================================================================

// GenerateRequest renders a stored template and persists the document
type GenerateRequest struct {
	TemplateID     uuid.UUID      `json:"template_id" yaml:"template_id" validate:"required"`
	Data           map[string]any `json:"data" yaml:"data"`
	Metadata       map[string]any `json:"metadata" yaml:"metadata"`
	OutputFilename string         `json:"output_filename" yaml:"output_filename" validate:"max=200"`
	QRData         string         `json:"qr_data" yaml:"qr_data" validate:"max=2048"`
	WatermarkText  string         `json:"watermark_text" yaml:"watermark_text" validate:"max=100"`
}

// PreviewRequest renders a stored template without persisting it
type PreviewRequest struct {
	TemplateID uuid.UUID      `json:"template_id" validate:"required"`
	Data       map[string]any `json:"data"`
	Metadata   map[string]any `json:"metadata"`
	QRData     string         `json:"qr_data" validate:"max=2048"`
}

// PreviewResponse carries an unpersisted document
type PreviewResponse struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
	Size     int64  `json:"size"`
	Pages    int    `json:"pages"`
}

// RenderRequest renders ad-hoc markup that is not stored as a template
type RenderRequest struct {
	Title          string                   `json:"title" validate:"max=200"`
	HTMLContent    string                   `json:"html_content" validate:"required"`
	CSSContent     string                   `json:"css_content"`
	Branding       *printing.BrandingConfig `json:"branding"`
	Data           map[string]any           `json:"data"`
	Metadata       map[string]any           `json:"metadata"`
	QRData         string                   `json:"qr_data" validate:"max=2048"`
	WatermarkText  string                   `json:"watermark_text" validate:"max=100"`
	OutputFilename string                   `json:"output_filename" validate:"max=200"`
	// Persist stores the document in the document store when set
	Persist bool `json:"persist"`
}

// =============================================================================
// Reference Data DTOs
// =============================================================================

// DocumentTypeResponse represents a document type
type DocumentTypeResponse struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// PageSizeResponse represents a page size in millimetres
type PageSizeResponse struct {
	Code   string  `json:"code"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
