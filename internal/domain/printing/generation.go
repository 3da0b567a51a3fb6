package printing

import (
	"maps"

	"github.com/google/uuid"
)

// Reserved context keys populated by the generation pipeline
const (
	ContextKeyAssets    = "assets"
	ContextKeyQRCode    = "qr_code"
	ContextKeyBranding  = "branding"
	ContextKeyWatermark = "watermark"
	ContextKeyMetadata  = "metadata"
	ContextKeyTemplate  = "template"
)

// GenerationRequest asks for a template to be rendered with a data context.
// It is never persisted.
type GenerationRequest struct {
	TemplateID     uuid.UUID
	Data           map[string]any
	Metadata       map[string]any
	OutputFilename string
	QRData         string
	WatermarkText  string
}

// GenerationResult is returned to every caller regardless of where the pipeline stopped
type GenerationResult struct {
	Success bool
	Path    string
	URL     string
	Size    int64
	Pages   int
	Message string
	Data    []byte
}

// NewSuccessResult builds a successful result; Size always equals len(data)
func NewSuccessResult(data []byte, path, url, message string, pages int) *GenerationResult {
	return &GenerationResult{
		Success: true,
		Path:    path,
		URL:     url,
		Size:    int64(len(data)),
		Pages:   pages,
		Message: message,
		Data:    data,
	}
}

// NewFailureResult builds a failed result that carries no payload
func NewFailureResult(message string) *GenerationResult {
	return &GenerationResult{Success: false, Message: message}
}

// MergeMetadata overlays request metadata on top of template defaults
func MergeMetadata(defaults, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(overrides))
	maps.Copy(out, defaults)
	maps.Copy(out, overrides)
	return out
}
