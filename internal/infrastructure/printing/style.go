package printing

import (
	_ "embed"
	"strings"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/infrastructure/templating"
)

//go:embed stylesheet.css.tmpl
var baseStylesheet string

const customCSSMarker = "\n\n/* Custom CSS */\n"

// StyleComposer derives the document stylesheet from a branding configuration
type StyleComposer struct {
	defaultFont string
	pageSize    printing.PageSize
	tmpl        *templating.Template
}

// NewStyleComposer compiles the base stylesheet. defaultFont is used for
// branding configurations without a font family.
func NewStyleComposer(defaultFont string, pageSize printing.PageSize) (*StyleComposer, error) {
	if !pageSize.IsValid() {
		return nil, printing.ErrInvalidPageSize(string(pageSize))
	}
	tmpl, err := templating.NewResolver().Compile("stylesheet", baseStylesheet)
	if err != nil {
		return nil, err
	}
	return &StyleComposer{defaultFont: defaultFont, pageSize: pageSize, tmpl: tmpl}, nil
}

// Branding returns the configuration with every unset field defaulted
func (c *StyleComposer) Branding(b printing.BrandingConfig) printing.BrandingConfig {
	return b.WithDefaults(c.defaultFont)
}

// Compose renders the stylesheet for branding and appends customCSS verbatim
// after the generated rules
func (c *StyleComposer) Compose(branding printing.BrandingConfig, customCSS string) (string, error) {
	b := c.Branding(branding)
	if err := b.Validate(); err != nil {
		return "", err
	}

	css, err := c.tmpl.Execute(map[string]any{
		"branding":       b.ContextMap(),
		"page_size":      string(c.pageSize),
		"logo_alignment": b.LogoPosition.Alignment(),
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(customCSS) != "" {
		css += customCSSMarker + customCSS
	}
	return css, nil
}
