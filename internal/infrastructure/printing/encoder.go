package printing

import (
	"context"
	"time"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
)

// EncodeRequest contains the parameters for laying out markup as a PDF
type EncodeRequest struct {
	// HTML is the resolved template body or a complete document
	HTML string
	// CSS is the composed stylesheet injected into the document head
	CSS string
	// PageSize defines the output paper dimensions
	PageSize printing.PageSize
	// Margins in millimeters
	Margins printing.Margins
	// Title for the PDF document metadata
	Title string
	// Timeout overrides the encoder's default; zero keeps the default
	Timeout time.Duration
}

// EncodeResult contains the output from PDF encoding
type EncodeResult struct {
	PDFData   []byte
	PageCount int
	Duration  time.Duration
}

// Encoder turns markup plus a stylesheet into a paginated PDF
type Encoder interface {
	Encode(ctx context.Context, req *EncodeRequest) (*EncodeResult, error)
	Close() error
}

// RenderError represents an error during PDF encoding.
// Every RenderError also matches printing.ErrRender.
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Is matches the domain RENDER_ERROR code and other RenderErrors with the same sub-code
func (e *RenderError) Is(target error) bool {
	switch t := target.(type) {
	case *shared.DomainError:
		return t.Code == printing.CodeRenderError
	case *RenderError:
		return t.Code == e.Code
	}
	return false
}

// Error codes for encoding failures
const (
	ErrCodeRenderTimeout   = "RENDER_TIMEOUT"
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeInvalidHTML     = "INVALID_HTML"
	ErrCodeInvalidCSS      = "INVALID_CSS"
	ErrCodeBinaryNotFound  = "BINARY_NOT_FOUND"
	ErrCodeInvalidPageSize = "INVALID_PAGE_SIZE"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// checkRequest runs the checks shared by every encoder before any work starts
func checkRequest(req *EncodeRequest) error {
	if req == nil {
		return NewRenderError(ErrCodeInvalidHTML, "encode request is nil", nil)
	}
	if !req.PageSize.IsValid() {
		return NewRenderError(ErrCodeInvalidPageSize, "invalid page size: "+string(req.PageSize), nil)
	}
	if err := ValidateMarkup(req.HTML); err != nil {
		return err
	}
	return ValidateStylesheet(req.CSS)
}

// pageFooterTemplate is filled by the browser after layout, so Y is the final page count
const pageFooterTemplate = `<div style="width:100%;font-size:9pt;color:#64748B;text-align:right;padding-right:2cm;">` +
	`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
