package printing_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app "github.com/docforge/backend/internal/application/printing"
	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
	infra "github.com/docforge/backend/internal/infrastructure/printing"
)

func TestGenerationService_CreateTemplate(t *testing.T) {
	ctx := context.Background()

	validRequest := func() app.CreateTemplateRequest {
		return app.CreateTemplateRequest{
			Name:         "invoice-standard",
			Title:        "Standard Invoice",
			Description:  "Default invoice layout",
			DocumentType: "invoice",
			HTMLContent:  "<h1>Invoice {{ invoice.number }}</h1>",
			CSSContent:   "h1 { color: red; }",
			Variables: []app.VariableDTO{
				{Name: "invoice.number", DataType: "string", Required: true},
			},
			DefaultMetadata: map[string]any{"currency": "USD"},
			Branding:        &printing.BrandingConfig{FontFamily: "Georgia, serif"},
		}
	}

	t.Run("creates version one", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, "invoice-standard", (*uuid.UUID)(nil)).Return(false, nil)
		f.templates.On("Save", mock.Anything, mock.AnythingOfType("*printing.Template")).Return(nil)

		resp, err := f.service.CreateTemplate(ctx, validRequest())

		require.NoError(t, err)
		assert.Equal(t, 1, resp.Version)
		assert.Equal(t, resp.ID, resp.FamilyID)
		assert.Empty(t, resp.ParentID)
		assert.Equal(t, "Default invoice layout", resp.Description)
		assert.Equal(t, "invoice", resp.DocumentType)
		assert.Equal(t, "h1 { color: red; }", resp.CSSContent)
		assert.Equal(t, "Georgia, serif", resp.Branding.FontFamily)
		require.Len(t, resp.Variables, 1)
		assert.True(t, resp.Variables[0].Required)
		assert.True(t, resp.IsActive)
		f.templates.AssertExpectations(t)
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, "invoice-standard", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := f.service.CreateTemplate(ctx, validRequest())

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		f.templates.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown filter is rejected before saving", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		req := validRequest()
		req.HTMLContent = "<p>{{ total | money }}</p>"

		_, err := f.service.CreateTemplate(ctx, req)

		assert.ErrorIs(t, err, printing.ErrUnknownFilter)
		f.templates.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("syntax error", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		req := validRequest()
		req.HTMLContent = "{% if paid %}<p>Paid</p>"

		_, err := f.service.CreateTemplate(ctx, req)

		assert.ErrorIs(t, err, printing.ErrTemplateSyntax)
	})

	t.Run("request validation", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		req := validRequest()
		req.DocumentType = "memo"
		req.Name = ""

		_, err := f.service.CreateTemplate(ctx, req)

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Contains(t, err.Error(), "name")
		assert.Contains(t, err.Error(), "document_type")
		f.templates.AssertNotCalled(t, "ExistsByName", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid branding", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		req := validRequest()
		req.Branding = &printing.BrandingConfig{PrimaryColor: "blue"}

		_, err := f.service.CreateTemplate(ctx, req)

		assert.ErrorIs(t, err, printing.ErrInvalidBranding)
	})
}

func TestGenerationService_GetTemplate(t *testing.T) {
	t.Run("includes asset count", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		tmpl := newStoredTemplate(t, "<p>x</p>")
		f.templates.On("FindByID", mock.Anything, tmpl.ID).Return(tmpl, nil)
		f.assets.On("CountByTemplate", mock.Anything, tmpl.ID).Return(int64(3), nil)

		resp, err := f.service.GetTemplate(context.Background(), tmpl.ID)

		require.NoError(t, err)
		assert.Equal(t, "invoice-standard", resp.Name)
		require.NotNil(t, resp.AssetCount)
		assert.Equal(t, int64(3), *resp.AssetCount)
	})

	t.Run("count failure", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		tmpl := newStoredTemplate(t, "<p>x</p>")
		f.templates.On("FindByID", mock.Anything, tmpl.ID).Return(tmpl, nil)
		f.assets.On("CountByTemplate", mock.Anything, tmpl.ID).Return(int64(0), errors.New("database is locked"))

		_, err := f.service.GetTemplate(context.Background(), tmpl.ID)

		assert.ErrorContains(t, err, "failed to count assets")
	})
}

func TestGenerationService_ListTemplates(t *testing.T) {
	f := newFixture(t, app.Config{})
	tmpl := newStoredTemplate(t, "<p>x</p>")
	active := true
	docType := printing.DocTypeInvoice
	expected := printing.TemplateFilter{
		Filter:       shared.Filter{Page: 2, PageSize: 10, Search: "inv"},
		DocumentType: &docType,
		IsActive:     &active,
		LatestOnly:   true,
	}
	f.templates.On("FindAll", mock.Anything, expected).Return([]printing.Template{*tmpl}, nil)
	f.templates.On("Count", mock.Anything, expected).Return(int64(11), nil)

	resp, err := f.service.ListTemplates(context.Background(), app.ListTemplatesRequest{
		Page: 2, PageSize: 10, Search: "inv", DocumentType: "invoice", IsActive: &active, LatestOnly: true,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.Total)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, tmpl.ID.String(), resp.Items[0].ID)
}

func TestGenerationService_UpdateTemplate(t *testing.T) {
	f := newFixture(t, app.Config{})
	tmpl := newStoredTemplate(t, "<p>x</p>")
	f.templates.On("FindByID", mock.Anything, tmpl.ID).Return(tmpl, nil)
	f.templates.On("Save", mock.Anything, tmpl).Return(nil)
	desc := "Used for EU customers"

	resp, err := f.service.UpdateTemplate(context.Background(), tmpl.ID, app.UpdateTemplateRequest{Description: &desc})

	require.NoError(t, err)
	assert.Equal(t, "Standard Invoice", resp.Title)
	assert.Equal(t, desc, resp.Description)
}

func TestGenerationService_CreateVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("numbers above the latest stored version", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		parent := newStoredTemplate(t, "<p>v1</p>")
		f.templates.On("FindByID", mock.Anything, parent.ID).Return(parent, nil)
		f.templates.On("LatestVersion", mock.Anything, parent.FamilyID).Return(3, nil)
		f.templates.On("Save", mock.Anything, mock.AnythingOfType("*printing.Template")).Return(nil)
		html := "<p>v4 {{ customer.name | upper }}</p>"

		resp, err := f.service.CreateVersion(ctx, parent.ID, app.NewVersionRequest{HTMLContent: &html})

		require.NoError(t, err)
		assert.Equal(t, 4, resp.Version)
		assert.Equal(t, parent.ID.String(), resp.ParentID)
		assert.Equal(t, parent.FamilyID.String(), resp.FamilyID)
		assert.Equal(t, html, resp.HTMLContent)
		assert.Equal(t, parent.Name, resp.Name)
		assert.Equal(t, "<p>v1</p>", parent.HTMLContent, "parent is immutable")
	})

	t.Run("conflicting version", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		parent := newStoredTemplate(t, "<p>v1</p>")
		f.templates.On("FindByID", mock.Anything, parent.ID).Return(parent, nil)
		f.templates.On("LatestVersion", mock.Anything, parent.FamilyID).Return(1, nil)
		f.templates.On("Save", mock.Anything, mock.Anything).
			Return(shared.WrapDomainError(printing.CodeInvalidTemplateVersion, "version 2 already exists", errors.New("unique violation")))

		_, err := f.service.CreateVersion(ctx, parent.ID, app.NewVersionRequest{})

		assert.ErrorIs(t, err, printing.ErrInvalidTemplateVersion)
	})

	t.Run("invalid markup", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		parent := newStoredTemplate(t, "<p>v1</p>")
		f.templates.On("FindByID", mock.Anything, parent.ID).Return(parent, nil)
		f.templates.On("LatestVersion", mock.Anything, parent.FamilyID).Return(1, nil)
		html := "{% for item in items %}"

		_, err := f.service.CreateVersion(ctx, parent.ID, app.NewVersionRequest{HTMLContent: &html})

		assert.ErrorIs(t, err, printing.ErrTemplateSyntax)
		f.templates.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestGenerationService_ListVersions(t *testing.T) {
	f := newFixture(t, app.Config{})
	v1 := newStoredTemplate(t, "<p>v1</p>")
	v2, err := v1.NewVersion(1, printing.TemplateRevision{})
	require.NoError(t, err)
	f.templates.On("FindByID", mock.Anything, v2.ID).Return(v2, nil)
	f.templates.On("FindVersions", mock.Anything, v1.FamilyID).Return([]printing.Template{*v1, *v2}, nil)

	versions, err := f.service.ListVersions(context.Background(), v2.ID)

	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)
}

func TestGenerationService_DuplicateTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("copies into a new family", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		source := newStoredTemplate(t, "<p>x</p>")
		f.templates.On("FindByID", mock.Anything, source.ID).Return(source, nil)
		f.templates.On("ExistsByName", mock.Anything, "invoice-eu", (*uuid.UUID)(nil)).Return(false, nil)
		f.templates.On("Save", mock.Anything, mock.AnythingOfType("*printing.Template")).Return(nil)

		resp, err := f.service.DuplicateTemplate(ctx, source.ID, app.DuplicateTemplateRequest{Name: "invoice-eu"})

		require.NoError(t, err)
		assert.Equal(t, "invoice-eu", resp.Name)
		assert.Equal(t, "Standard Invoice (Copy)", resp.Title)
		assert.Equal(t, 1, resp.Version)
		assert.NotEqual(t, source.FamilyID.String(), resp.FamilyID)
	})

	t.Run("name taken", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		source := newStoredTemplate(t, "<p>x</p>")
		f.templates.On("FindByID", mock.Anything, source.ID).Return(source, nil)
		f.templates.On("ExistsByName", mock.Anything, "invoice-standard", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := f.service.DuplicateTemplate(ctx, source.ID, app.DuplicateTemplateRequest{Name: "invoice-standard"})

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGenerationService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Config{})
	tmpl := newStoredTemplate(t, "<p>x</p>")
	f.templates.On("FindByID", mock.Anything, tmpl.ID).Return(tmpl, nil)
	f.templates.On("Save", mock.Anything, tmpl).Return(nil)

	resp, err := f.service.DeactivateTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	_, err = f.service.DeactivateTemplate(ctx, tmpl.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_INACTIVE", domainErr.Code)

	resp, err = f.service.ActivateTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
	f.templates.AssertNumberOfCalls(t, "Save", 2)
}

func TestGenerationService_ImportTemplates(t *testing.T) {
	ctx := context.Background()

	manifest := `
name: invoice-standard
title: Standard Invoice
document_type: invoice
html_content: "<h1>{{ invoice.number }}</h1>"
variables:
  - name: invoice.number
    required: true
---
name: receipt-basic
document_type: receipt
html_content: "<p>Received {{ amount | format_currency }}</p>"
default_metadata:
  footer: Thank you
`

	t.Run("creates every document", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		f.templates.On("Save", mock.Anything, mock.Anything).Return(nil)

		created, err := f.service.ImportTemplates(ctx, strings.NewReader(manifest))

		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, "invoice-standard", created[0].Name)
		require.Len(t, created[0].Variables, 1)
		assert.Equal(t, "receipt", created[1].DocumentType)
		assert.Equal(t, "Thank you", created[1].DefaultMetadata["footer"])
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		f.templates.On("Save", mock.Anything, mock.Anything).Return(nil)
		broken := manifest + "---\nname: memo\ndocument_type: memo\nhtml_content: x\n---\nname: never-read\n"

		created, err := f.service.ImportTemplates(ctx, strings.NewReader(broken))

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Contains(t, err.Error(), "manifest document 3 (memo)")
		assert.Len(t, created, 2)
		f.templates.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("bundled starters", func(t *testing.T) {
		f := newFixture(t, app.Config{})
		f.templates.On("ExistsByName", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		f.templates.On("Save", mock.Anything, mock.Anything).Return(nil)
		manifest, err := infra.StarterManifest()
		require.NoError(t, err)

		created, err := f.service.ImportTemplates(ctx, bytes.NewReader(manifest))

		require.NoError(t, err)
		assert.Len(t, created, len(printing.AllDocTypes()))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		f := newFixture(t, app.Config{})

		created, err := f.service.ImportTemplates(ctx, strings.NewReader("name: [unterminated"))

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Empty(t, created)
	})
}
