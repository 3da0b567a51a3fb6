package printing

import (
	"errors"
	"testing"

	"github.com/docforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTemplate(t *testing.T) *Template {
	t.Helper()
	tpl, err := NewTemplate("standard-invoice", "Standard Invoice", DocTypeInvoice, "<h1>{{ title }}</h1>")
	require.NoError(t, err)
	return tpl
}

func TestNewTemplate(t *testing.T) {
	tests := []struct {
		name         string
		templateName string
		docType      DocType
		content      string
		errorCode    string
	}{
		{"valid", "invoice", DocTypeInvoice, "<p>x</p>", ""},
		{"empty name", "  ", DocTypeInvoice, "<p>x</p>", "INVALID_NAME"},
		{"invalid doc type", "invoice", DocType("memo"), "<p>x</p>", "INVALID_DOC_TYPE"},
		{"empty content", "invoice", DocTypeQuote, "   ", "INVALID_CONTENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := NewTemplate(tt.templateName, "", tt.docType, tt.content)
			if tt.errorCode != "" {
				require.Error(t, err)
				var de *shared.DomainError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, tt.errorCode, de.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, tpl.Version)
			assert.Equal(t, tpl.ID, tpl.FamilyID)
			assert.Nil(t, tpl.ParentID)
			assert.True(t, tpl.IsActive)
			assert.Equal(t, tt.templateName, tpl.Title)
			assert.NotNil(t, tpl.DefaultMetadata)
		})
	}
}

func TestTemplate_NewVersion(t *testing.T) {
	root := newTestTemplate(t)

	t.Run("inherits content and links to parent", func(t *testing.T) {
		v2, err := root.NewVersion(1, TemplateRevision{})
		require.NoError(t, err)
		assert.Equal(t, 2, v2.Version)
		require.NotNil(t, v2.ParentID)
		assert.Equal(t, root.ID, *v2.ParentID)
		assert.Equal(t, root.FamilyID, v2.FamilyID)
		assert.NotEqual(t, root.ID, v2.ID)
		assert.Equal(t, root.HTMLContent, v2.HTMLContent)
	})

	t.Run("branching from an old version numbers above latest", func(t *testing.T) {
		html := "<h2>{{ title }}</h2>"
		v4, err := root.NewVersion(3, TemplateRevision{HTMLContent: &html})
		require.NoError(t, err)
		assert.Equal(t, 4, v4.Version)
		assert.Equal(t, html, v4.HTMLContent)
		assert.Equal(t, root.HTMLContent, "<h1>{{ title }}</h1>")
	})

	t.Run("rejects invalid branding", func(t *testing.T) {
		_, err := root.NewVersion(1, TemplateRevision{Branding: &BrandingConfig{PrimaryColor: "nope"}})
		assert.ErrorIs(t, err, ErrInvalidBranding)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		empty := ""
		_, err := root.NewVersion(1, TemplateRevision{HTMLContent: &empty})
		assert.Error(t, err)
	})
}

func TestTemplate_ValidateParent(t *testing.T) {
	root := newTestTemplate(t)
	v2, err := root.NewVersion(1, TemplateRevision{})
	require.NoError(t, err)

	t.Run("valid chain", func(t *testing.T) {
		assert.NoError(t, v2.ValidateParent(root))
	})

	t.Run("self parent", func(t *testing.T) {
		assert.ErrorIs(t, v2.ValidateParent(v2), ErrInvalidTemplateVersion)
	})

	t.Run("descendant as parent", func(t *testing.T) {
		bad := *root
		id := v2.ID
		bad.ParentID = &id
		assert.ErrorIs(t, bad.ValidateParent(v2), ErrInvalidTemplateVersion)
	})

	t.Run("other family", func(t *testing.T) {
		other := newTestTemplate(t)
		bad := *v2
		id := other.ID
		bad.ParentID = &id
		assert.ErrorIs(t, bad.ValidateParent(other), ErrInvalidTemplateVersion)
	})

	t.Run("root without parent", func(t *testing.T) {
		assert.NoError(t, root.ValidateParent(nil))
		assert.ErrorIs(t, v2.ValidateParent(nil), ErrInvalidTemplateVersion)
	})
}

func TestTemplate_Duplicate(t *testing.T) {
	root := newTestTemplate(t)
	require.NoError(t, root.SetStyle("h1 { color: red; }", BrandingConfig{AccentColor: "#FF0000"}))
	root.SetDefaultMetadata(map[string]any{"terms": "net 30"})

	dup, err := root.Duplicate("standard-invoice-eu")
	require.NoError(t, err)
	assert.Equal(t, "Standard Invoice (Copy)", dup.Title)
	assert.Equal(t, "standard-invoice-eu", dup.Name)
	assert.Equal(t, 1, dup.Version)
	assert.Equal(t, dup.ID, dup.FamilyID)
	assert.NotEqual(t, root.FamilyID, dup.FamilyID)
	assert.Nil(t, dup.ParentID)
	assert.Equal(t, root.CSSContent, dup.CSSContent)
	assert.Equal(t, "#FF0000", dup.Branding.AccentColor)
	assert.Equal(t, "net 30", dup.DefaultMetadata["terms"])

	dup.DefaultMetadata["terms"] = "net 60"
	assert.Equal(t, "net 30", root.DefaultMetadata["terms"])
}

func TestTemplate_ActivateDeactivate(t *testing.T) {
	tpl := newTestTemplate(t)

	require.NoError(t, tpl.Deactivate())
	assert.False(t, tpl.IsActive)
	assert.Error(t, tpl.Deactivate())

	require.NoError(t, tpl.Activate())
	assert.True(t, tpl.IsActive)
	assert.Error(t, tpl.Activate())
}

func TestTemplate_UpdateDetails(t *testing.T) {
	tpl := newTestTemplate(t)
	require.NoError(t, tpl.UpdateDetails("  Invoice (EU)  ", " VAT aware "))
	assert.Equal(t, "Invoice (EU)", tpl.Title)
	assert.Equal(t, "VAT aware", tpl.Description)
	assert.Error(t, tpl.UpdateDetails("", ""))
}

func TestTemplate_SetVariables(t *testing.T) {
	tpl := newTestTemplate(t)

	err := tpl.SetVariables([]VariableSpec{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)

	err = tpl.SetVariables([]VariableSpec{{Name: "a", DataType: "money"}})
	assert.Error(t, err)

	require.NoError(t, tpl.SetVariables([]VariableSpec{
		{Name: "customer.name", DataType: VariableTypeString, Required: true},
		{Name: "total", DataType: VariableTypeNumber, Required: true},
		{Name: "notes", DataType: VariableTypeString},
	}))

	missing := tpl.MissingRequired(map[string]any{
		"customer": map[string]any{"email": "a@b.c"},
		"notes":    "hello",
	})
	assert.Equal(t, []string{"customer.name", "total"}, missing)

	missing = tpl.MissingRequired(map[string]any{
		"customer": map[string]any{"name": "Acme"},
		"total":    0,
	})
	assert.Empty(t, missing)
}

func TestTemplate_Reference(t *testing.T) {
	tpl := newTestTemplate(t)
	assert.Equal(t, "standard-invoice@v1", tpl.Reference())
	assert.NotEqual(t, uuid.Nil, tpl.ID)
}
