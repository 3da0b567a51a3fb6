package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
)

// DefaultJPEGQuality is the re-encode quality for JPEG uploads
const DefaultJPEGQuality = 85

func isRaster(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

// imageDimensions reads the pixel size of a raster image; SVG and undecodable input yield nil
func imageDimensions(ext string, data []byte) (width, height *int) {
	var (
		cfg image.Config
		err error
	)
	r := bytes.NewReader(data)
	switch ext {
	case ".png":
		cfg, err = png.DecodeConfig(r)
	case ".jpg", ".jpeg":
		cfg, err = jpeg.DecodeConfig(r)
	case ".gif":
		cfg, err = gif.DecodeConfig(r)
	case ".webp":
		cfg, err = webp.DecodeConfig(r)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, nil
	}
	w, h := cfg.Width, cfg.Height
	return &w, &h
}

// optimizeImage re-encodes PNG (best compression, alpha kept) and JPEG (quality 85).
// Other formats, and input that fails to decode, are left untouched.
func optimizeImage(ext string, data []byte) ([]byte, bool) {
	switch ext {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, false
		}
		out, err := encodePNG(img)
		if err != nil {
			return nil, false
		}
		return out, true
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, false
		}
		out, err := encodeJPEG(img, DefaultJPEGQuality)
		if err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// resizeImage scales an image down to fit the bounds.
// WebP has no encoder available and is written back as PNG.
func resizeImage(ext string, data []byte, maxWidth, maxHeight, quality int) ([]byte, string, int, int, error) {
	if maxWidth < 0 || maxHeight < 0 {
		return nil, "", 0, 0, shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("resize bounds must not be negative, got %dx%d", maxWidth, maxHeight))
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var (
		src image.Image
		err error
	)
	outExt := ext
	r := bytes.NewReader(data)
	switch ext {
	case ".png":
		src, err = png.Decode(r)
	case ".jpg", ".jpeg":
		src, err = jpeg.Decode(r)
	case ".webp":
		src, err = webp.Decode(r)
		outExt = ".png"
	default:
		return nil, "", 0, 0, printing.NewInvalidAssetTypeError(ext, []string{".png", ".jpg", ".jpeg", ".webp"})
	}
	if err != nil {
		return nil, "", 0, 0, printing.NewRenderError("asset image could not be decoded", err)
	}

	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxWidth, maxHeight)

	var dst draw.Image
	if outExt == ".png" {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var out []byte
	if outExt == ".png" {
		out, err = encodePNG(dst)
	} else {
		out, err = encodeJPEG(dst, quality)
	}
	if err != nil {
		return nil, "", 0, 0, printing.NewStorageWriteError("resized image", err)
	}
	return out, outExt, w, h, nil
}

// fitWithin shrinks w x h to fit the bounds keeping the aspect ratio; it never enlarges
func fitWithin(w, h, maxWidth, maxHeight int) (int, int) {
	if maxWidth == 0 {
		maxWidth = w
	}
	if maxHeight == 0 {
		maxHeight = h
	}
	if w <= maxWidth && h <= maxHeight {
		return w, h
	}
	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	return nw, nh
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
