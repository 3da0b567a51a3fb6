// Package printing contains the document generation bounded context.
// It owns versioned document templates, their branding configuration and
// binary assets, and the request/result contract used when a template is
// rendered into a paginated PDF.
package printing
