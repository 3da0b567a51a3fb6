package printing

import (
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/docforge/backend/internal/domain/shared"
)

const DefaultQRModuleSize = 10

// QRCodeGenerator encodes payloads as PNG QR codes with error correction
// level Low and a 4-module quiet zone
type QRCodeGenerator struct {
	moduleSize int
}

// NewQRCodeGenerator creates a generator; moduleSize is the pixel size of one module
func NewQRCodeGenerator(moduleSize int) *QRCodeGenerator {
	if moduleSize <= 0 {
		moduleSize = DefaultQRModuleSize
	}
	return &QRCodeGenerator{moduleSize: moduleSize}
}

// PNG encodes payload using the smallest QR version that fits it
func (g *QRCodeGenerator) PNG(payload string) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "QR payload is empty")
	}
	q, err := qrcode.New(payload, qrcode.Low)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_INPUT", "QR payload cannot be encoded", err)
	}
	// a negative size means pixels per module
	return q.PNG(-g.moduleSize)
}

// DataURL encodes payload as a data:image/png URL
func (g *QRCodeGenerator) DataURL(payload string) (string, error) {
	png, err := g.PNG(payload)
	if err != nil {
		return "", err
	}
	return EncodeDataURL("image/png", png), nil
}
