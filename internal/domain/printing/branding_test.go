package printing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrandingConfig_WithDefaults(t *testing.T) {
	t.Run("empty config gets every default", func(t *testing.T) {
		b := BrandingConfig{}.WithDefaults("Roboto, sans-serif")
		assert.Equal(t, "#1E40AF", b.PrimaryColor)
		assert.Equal(t, "#64748B", b.SecondaryColor)
		assert.Equal(t, "#F59E0B", b.AccentColor)
		assert.Equal(t, "Roboto, sans-serif", b.FontFamily)
		assert.Equal(t, LogoPositionHeaderLeft, b.LogoPosition)
		assert.Equal(t, 150, b.LogoWidth)
		assert.False(t, b.ShowWatermark)
		assert.Empty(t, b.WatermarkText)
	})

	t.Run("caller values are kept", func(t *testing.T) {
		b := BrandingConfig{PrimaryColor: "#000000", LogoWidth: 90, LogoPosition: LogoPositionHeaderRight}.WithDefaults("")
		assert.Equal(t, "#000000", b.PrimaryColor)
		assert.Equal(t, "#64748B", b.SecondaryColor)
		assert.Equal(t, 90, b.LogoWidth)
		assert.Equal(t, LogoPositionHeaderRight, b.LogoPosition)
		assert.Equal(t, DefaultFontFamily, b.FontFamily)
	})

	t.Run("short colors are expanded", func(t *testing.T) {
		b := BrandingConfig{PrimaryColor: "#1a2", AccentColor: "#ABC"}.WithDefaults("")
		assert.Equal(t, "#11aa22", b.PrimaryColor)
		assert.Equal(t, "#AABBCC", b.AccentColor)
		assert.Equal(t, "#64748B", b.SecondaryColor)
	})
}

func TestBrandingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BrandingConfig
		wantErr bool
	}{
		{"empty is valid", BrandingConfig{}, false},
		{"full valid", BrandingConfig{PrimaryColor: "#123", SecondaryColor: "#abcdef", LogoPosition: LogoPositionHeaderCenter, LogoWidth: 200}, false},
		{"bad color", BrandingConfig{PrimaryColor: "blue"}, true},
		{"color without hash", BrandingConfig{PrimaryColor: "1E40AF"}, true},
		{"short color without hash", BrandingConfig{AccentColor: "abc"}, true},
		{"four digit color", BrandingConfig{SecondaryColor: "#abcd"}, true},
		{"color with alpha", BrandingConfig{AccentColor: "#1E40AF20"}, true},
		{"bad position", BrandingConfig{LogoPosition: "footer-left"}, true},
		{"negative width", BrandingConfig{LogoWidth: -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidBranding))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBrandingConfig_Watermark(t *testing.T) {
	t.Run("toggle without text falls back to DRAFT", func(t *testing.T) {
		text, ok := BrandingConfig{ShowWatermark: true}.Watermark("")
		assert.True(t, ok)
		assert.Equal(t, "DRAFT", text)
	})

	t.Run("toggle with configured text", func(t *testing.T) {
		text, ok := BrandingConfig{ShowWatermark: true, WatermarkText: "VOID"}.Watermark("")
		assert.True(t, ok)
		assert.Equal(t, "VOID", text)
	})

	t.Run("explicit text wins even when toggle is off", func(t *testing.T) {
		text, ok := BrandingConfig{}.Watermark(PreviewWatermarkText)
		assert.True(t, ok)
		assert.Equal(t, "PREVIEW", text)
	})

	t.Run("no watermark", func(t *testing.T) {
		_, ok := BrandingConfig{WatermarkText: "unused"}.Watermark("")
		assert.False(t, ok)
	})
}
