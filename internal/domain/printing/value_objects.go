package printing

import "github.com/docforge/backend/internal/domain/shared"

// Margins represents the page margins in millimeters
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// NewMargins creates a new Margins value object
func NewMargins(top, right, bottom, left float64) (Margins, error) {
	if top < 0 || right < 0 || bottom < 0 || left < 0 {
		return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot be negative")
	}
	if top > 100 || right > 100 || bottom > 100 || left > 100 {
		return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot exceed 100mm")
	}
	return Margins{Top: top, Right: right, Bottom: bottom, Left: left}, nil
}

// DefaultMargins returns the fixed 2cm page margins
func DefaultMargins() Margins {
	return Margins{Top: 20, Right: 20, Bottom: 20, Left: 20}
}

// IsZero returns true if all margins are zero
func (m Margins) IsZero() bool {
	return m.Top == 0 && m.Right == 0 && m.Bottom == 0 && m.Left == 0
}

// VariableSpec declares a variable a template expects in its context
type VariableSpec struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Example     string       `json:"example,omitempty" yaml:"example,omitempty"`
	DataType    VariableType `json:"data_type" yaml:"data_type"`
	Required    bool         `json:"required" yaml:"required"`
}
