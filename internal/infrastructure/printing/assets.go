package printing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/docforge/backend/internal/domain/printing"
)

// AssetEmbedder inlines asset files as data URLs for the template context
type AssetEmbedder struct {
	strict   bool
	logger   *zap.Logger
	readFile func(string) ([]byte, error)
}

// NewAssetEmbedder creates an embedder. In strict mode a missing file fails
// the embed instead of being skipped.
func NewAssetEmbedder(strict bool, logger *zap.Logger) *AssetEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetEmbedder{strict: strict, logger: logger, readFile: os.ReadFile}
}

// Embed returns the value of the "assets" context key: "logo" holds the last
// logo-role or default asset, "images" every other asset in input order.
func (e *AssetEmbedder) Embed(ctx context.Context, assets []printing.AssetDescriptor) (map[string]any, error) {
	out := map[string]any{}
	images := []any{}

	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a.FilePath == "" {
			continue
		}
		data, err := e.readFile(a.FilePath)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, printing.NewRenderError(fmt.Sprintf("asset file %s could not be read", a.FilePath), err)
			}
			if e.strict {
				return nil, printing.NewMissingAssetFileError(a.FilePath, err)
			}
			e.logger.Warn("asset file missing, skipping",
				zap.String("role", string(a.Role)),
				zap.String("path", a.FilePath))
			continue
		}

		dataURL := EncodeDataURL(a.MimeType, data)
		if a.Role == printing.AssetRoleLogo || a.IsDefault {
			display := a.DisplayConfig
			if display == nil {
				display = map[string]any{}
			}
			out["logo"] = map[string]any{
				"data_url":       dataURL,
				"width":          optionalInt(a.Width),
				"height":         optionalInt(a.Height),
				"display_config": display,
			}
			continue
		}
		images = append(images, map[string]any{
			"data_url": dataURL,
			"name":     a.Name,
			"width":    optionalInt(a.Width),
			"height":   optionalInt(a.Height),
		})
	}

	out["images"] = images
	return out, nil
}

func optionalInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
