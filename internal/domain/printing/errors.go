package printing

import (
	"fmt"
	"strings"

	"github.com/docforge/backend/internal/domain/shared"
)

// Error codes raised by the document generation pipeline
const (
	CodeTemplateNotFound       = "TEMPLATE_NOT_FOUND"
	CodeInvalidAssetType       = "INVALID_ASSET_TYPE"
	CodeMissingAssetFile       = "MISSING_ASSET_FILE"
	CodeUnresolvedVariable     = "UNRESOLVED_VARIABLE"
	CodeUnknownFilter          = "UNKNOWN_FILTER"
	CodeRenderError            = "RENDER_ERROR"
	CodeStorageWriteFailure    = "STORAGE_WRITE_FAILURE"
	CodeTemplateSyntax         = "TEMPLATE_SYNTAX"
	CodeInvalidTemplateVersion = "INVALID_TEMPLATE_VERSION"
	CodeInvalidBranding        = "INVALID_BRANDING"
	CodeInvalidPageSize        = "INVALID_PAGE_SIZE"
	CodeAssetNotFound          = "ASSET_NOT_FOUND"
)

// Sentinels for errors.Is; matching is by code.
var (
	ErrTemplateNotFound       = shared.NewDomainError(CodeTemplateNotFound, "template not found")
	ErrInvalidAssetType       = shared.NewDomainError(CodeInvalidAssetType, "invalid asset type")
	ErrMissingAssetFile       = shared.NewDomainError(CodeMissingAssetFile, "asset file missing")
	ErrUnresolvedVariable     = shared.NewDomainError(CodeUnresolvedVariable, "unresolved variable")
	ErrUnknownFilter          = shared.NewDomainError(CodeUnknownFilter, "unknown filter")
	ErrRender                 = shared.NewDomainError(CodeRenderError, "document could not be rendered")
	ErrStorageWriteFailure    = shared.NewDomainError(CodeStorageWriteFailure, "storage write failed")
	ErrTemplateSyntax         = shared.NewDomainError(CodeTemplateSyntax, "template syntax error")
	ErrInvalidTemplateVersion = shared.NewDomainError(CodeInvalidTemplateVersion, "invalid template version")
	ErrInvalidBranding        = shared.NewDomainError(CodeInvalidBranding, "invalid branding configuration")
	ErrAssetNotFound          = shared.NewDomainError(CodeAssetNotFound, "asset not found")
)

// NewTemplateNotFoundError reports a missing template or template version
func NewTemplateNotFoundError(ref string) *shared.DomainError {
	return shared.NewDomainError(CodeTemplateNotFound, fmt.Sprintf("template %s not found", ref))
}

// NewInvalidAssetTypeError reports a role or extension outside the allow-list
func NewInvalidAssetTypeError(value string, allowed []string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidAssetType,
		fmt.Sprintf("asset type %q not allowed, allowed: %s", value, strings.Join(allowed, ", ")))
}

// NewMissingAssetFileError reports an asset whose backing file is absent
func NewMissingAssetFileError(path string, cause error) *shared.DomainError {
	return shared.WrapDomainError(CodeMissingAssetFile, fmt.Sprintf("asset file %s is missing", path), cause)
}

// NewUnresolvedVariableError reports a context path that does not exist
func NewUnresolvedVariableError(path string) *shared.DomainError {
	return shared.NewDomainError(CodeUnresolvedVariable, fmt.Sprintf("variable %q is not defined", path))
}

// NewUnknownFilterError reports a filter name absent from the registry
func NewUnknownFilterError(name string, line int) *shared.DomainError {
	return shared.NewDomainError(CodeUnknownFilter, fmt.Sprintf("unknown filter %q at line %d", name, line))
}

// NewTemplateSyntaxError reports malformed template markup
func NewTemplateSyntaxError(line int, msg string) *shared.DomainError {
	return shared.NewDomainError(CodeTemplateSyntax, fmt.Sprintf("line %d: %s", line, msg))
}

// NewRenderError reports a markup or stylesheet that could not be laid out
func NewRenderError(msg string, cause error) *shared.DomainError {
	return shared.WrapDomainError(CodeRenderError, msg, cause)
}

// NewStorageWriteError reports a failed filesystem or object store write
func NewStorageWriteError(path string, cause error) *shared.DomainError {
	return shared.WrapDomainError(CodeStorageWriteFailure, fmt.Sprintf("failed to write %s", path), cause)
}

// ErrInvalidPageSize reports an unrecognised page size
func ErrInvalidPageSize(value string) *shared.DomainError {
	names := make([]string, 0, len(AllPageSizes()))
	for _, p := range AllPageSizes() {
		names = append(names, string(p))
	}
	return shared.NewDomainError(CodeInvalidPageSize,
		fmt.Sprintf("invalid page size %q, allowed: %s", value, strings.Join(names, ", ")))
}
