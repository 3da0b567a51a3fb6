package printing

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/docforge/backend/internal/domain/shared"
)

// Branding defaults applied to every unset field
const (
	DefaultPrimaryColor   = "#1E40AF"
	DefaultSecondaryColor = "#64748B"
	DefaultAccentColor    = "#F59E0B"
	DefaultFontFamily     = "Inter, -apple-system, BlinkMacSystemFont, sans-serif"
	DefaultLogoPosition   = LogoPositionHeaderLeft
	DefaultLogoWidth      = 150
	DefaultWatermarkText  = "DRAFT"
	PreviewWatermarkText  = "PREVIEW"
)

// cssHexColor accepts the #RGB and #RRGGBB forms. The stylesheet appends an
// alpha byte to the accent color, so short forms are expanded by WithDefaults.
var cssHexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var colorRule = validation.Match(cssHexColor).Error("must be a #RGB or #RRGGBB color")

// BrandingConfig holds the visual defaults applied to a rendered document.
// Zero values mean "unset" and are replaced by WithDefaults.
type BrandingConfig struct {
	PrimaryColor   string       `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`
	SecondaryColor string       `json:"secondary_color,omitempty" yaml:"secondary_color,omitempty"`
	AccentColor    string       `json:"accent_color,omitempty" yaml:"accent_color,omitempty"`
	FontFamily     string       `json:"font_family,omitempty" yaml:"font_family,omitempty"`
	LogoPosition   LogoPosition `json:"logo_position,omitempty" yaml:"logo_position,omitempty"`
	LogoWidth      int          `json:"logo_width,omitempty" yaml:"logo_width,omitempty"`
	ShowWatermark  bool         `json:"show_watermark,omitempty" yaml:"show_watermark,omitempty"`
	WatermarkText  string       `json:"watermark_text,omitempty" yaml:"watermark_text,omitempty"`
}

// WithDefaults returns a copy with every unset field filled in.
// defaultFont is the process-wide font family; an empty value falls back to DefaultFontFamily.
func (b BrandingConfig) WithDefaults(defaultFont string) BrandingConfig {
	if b.PrimaryColor == "" {
		b.PrimaryColor = DefaultPrimaryColor
	}
	if b.SecondaryColor == "" {
		b.SecondaryColor = DefaultSecondaryColor
	}
	if b.AccentColor == "" {
		b.AccentColor = DefaultAccentColor
	}
	b.PrimaryColor = expandHexColor(b.PrimaryColor)
	b.SecondaryColor = expandHexColor(b.SecondaryColor)
	b.AccentColor = expandHexColor(b.AccentColor)
	if b.FontFamily == "" {
		b.FontFamily = defaultFont
		if b.FontFamily == "" {
			b.FontFamily = DefaultFontFamily
		}
	}
	if b.LogoPosition == "" {
		b.LogoPosition = DefaultLogoPosition
	}
	if b.LogoWidth == 0 {
		b.LogoWidth = DefaultLogoWidth
	}
	return b
}

// expandHexColor turns #RGB into #RRGGBB; anything else is returned unchanged
func expandHexColor(c string) string {
	if len(c) != 4 || !cssHexColor.MatchString(c) {
		return c
	}
	return string([]byte{'#', c[1], c[1], c[2], c[2], c[3], c[3]})
}

// Validate checks colors, logo position and logo width
func (b BrandingConfig) Validate() error {
	err := validation.ValidateStruct(&b,
		validation.Field(&b.PrimaryColor, colorRule),
		validation.Field(&b.SecondaryColor, colorRule),
		validation.Field(&b.AccentColor, colorRule),
		validation.Field(&b.FontFamily, validation.Length(0, 200)),
		validation.Field(&b.LogoPosition, validation.In(
			LogoPositionHeaderLeft, LogoPositionHeaderCenter, LogoPositionHeaderRight)),
		validation.Field(&b.LogoWidth, validation.Min(0), validation.Max(2000)),
		validation.Field(&b.WatermarkText, validation.Length(0, 100)),
	)
	if err != nil {
		return shared.WrapDomainError(CodeInvalidBranding, "invalid branding configuration", err)
	}
	return nil
}

// Watermark resolves the watermark label for a render.
// An explicit label always wins; otherwise the branding toggle yields the
// configured text or DefaultWatermarkText.
func (b BrandingConfig) Watermark(explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if !b.ShowWatermark {
		return "", false
	}
	if b.WatermarkText != "" {
		return b.WatermarkText, true
	}
	return DefaultWatermarkText, true
}

// ContextMap exposes the branding fields to templates under their wire names
func (b BrandingConfig) ContextMap() map[string]any {
	return map[string]any{
		"primary_color":   b.PrimaryColor,
		"secondary_color": b.SecondaryColor,
		"accent_color":    b.AccentColor,
		"font_family":     b.FontFamily,
		"logo_position":   string(b.LogoPosition),
		"logo_width":      b.LogoWidth,
	}
}
