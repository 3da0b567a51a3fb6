package printing

import (
	"encoding/base64"
	"errors"
	"strings"
)

const defaultAssetMime = "image/png"

// EncodeDataURL builds data:<mime>;base64,<payload>
func EncodeDataURL(mime string, data []byte) string {
	if mime == "" {
		mime = defaultAssetMime
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL back into its MIME type and bytes
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, errors.New("invalid data URL: missing data: scheme")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("invalid data URL: missing payload separator")
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, errors.New("invalid data URL: payload is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return mime, data, nil
}
