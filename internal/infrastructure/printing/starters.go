package printing

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
)

//go:embed starters/*.yaml
var starterFS embed.FS

// StarterManifest returns the bundled starter templates as a multi-document
// YAML stream in the template import format. With no arguments every document
// type is included, in AllDocTypes order.
func StarterManifest(docTypes ...printing.DocType) ([]byte, error) {
	if len(docTypes) == 0 {
		docTypes = printing.AllDocTypes()
	}

	var buf bytes.Buffer
	for i, dt := range docTypes {
		if !dt.IsValid() {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
				fmt.Sprintf("no starter template for document type %q", dt))
		}
		content, err := starterFS.ReadFile("starters/" + string(dt) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to read starter template %s: %w", dt, err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(content)
	}
	return buf.Bytes(), nil
}
