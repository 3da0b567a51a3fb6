package printing

import "strings"

// DocType represents the type of business document a template produces
type DocType string

const (
	DocTypeInvoice       DocType = "invoice"
	DocTypeAgreement     DocType = "agreement"
	DocTypeQuote         DocType = "quote"
	DocTypeReceipt       DocType = "receipt"
	DocTypePurchaseOrder DocType = "purchase_order"
	DocTypeDeliveryNote  DocType = "delivery_note"
)

// IsValid checks if the DocType is a valid value
func (d DocType) IsValid() bool {
	switch d {
	case DocTypeInvoice, DocTypeAgreement, DocTypeQuote,
		DocTypeReceipt, DocTypePurchaseOrder, DocTypeDeliveryNote:
		return true
	}
	return false
}

// String returns the string representation of DocType
func (d DocType) String() string {
	return string(d)
}

// DisplayName returns a human readable name for DocType
func (d DocType) DisplayName() string {
	switch d {
	case DocTypeInvoice:
		return "Invoice"
	case DocTypeAgreement:
		return "Agreement"
	case DocTypeQuote:
		return "Quote"
	case DocTypeReceipt:
		return "Receipt"
	case DocTypePurchaseOrder:
		return "Purchase Order"
	case DocTypeDeliveryNote:
		return "Delivery Note"
	default:
		return string(d)
	}
}

// AllDocTypes returns all valid DocType values
func AllDocTypes() []DocType {
	return []DocType{
		DocTypeInvoice, DocTypeAgreement, DocTypeQuote,
		DocTypeReceipt, DocTypePurchaseOrder, DocTypeDeliveryNote,
	}
}

// AssetRole is the semantic role of an uploaded binary asset
type AssetRole string

const (
	AssetRoleLogo      AssetRole = "logo"
	AssetRoleImage     AssetRole = "image"
	AssetRoleSignature AssetRole = "signature"
	AssetRoleWatermark AssetRole = "watermark"
)

// IsValid checks if the AssetRole is a valid value
func (r AssetRole) IsValid() bool {
	switch r {
	case AssetRoleLogo, AssetRoleImage, AssetRoleSignature, AssetRoleWatermark:
		return true
	}
	return false
}

// String returns the string representation of AssetRole
func (r AssetRole) String() string {
	return string(r)
}

// AllAssetRoles returns all valid AssetRole values
func AllAssetRoles() []AssetRole {
	return []AssetRole{AssetRoleLogo, AssetRoleImage, AssetRoleSignature, AssetRoleWatermark}
}

// PageSize represents the output page size
type PageSize string

const (
	PageSizeA4     PageSize = "A4"     // 210mm x 297mm
	PageSizeLetter PageSize = "Letter" // 8.5in x 11in
	PageSizeLegal  PageSize = "Legal"  // 8.5in x 14in
)

// IsValid checks if the PageSize is a valid value
func (p PageSize) IsValid() bool {
	switch p {
	case PageSizeA4, PageSizeLetter, PageSizeLegal:
		return true
	}
	return false
}

// String returns the string representation of PageSize
func (p PageSize) String() string {
	return string(p)
}

// Dimensions returns the page dimensions in millimeters (width, height)
func (p PageSize) Dimensions() (width, height float64) {
	switch p {
	case PageSizeLetter:
		return 215.9, 279.4
	case PageSizeLegal:
		return 215.9, 355.6
	default:
		return 210, 297
	}
}

// ParsePageSize maps a configured value onto a PageSize, ignoring case.
// Unknown values are rejected rather than defaulted.
func ParsePageSize(s string) (PageSize, error) {
	for _, p := range AllPageSizes() {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", ErrInvalidPageSize(s)
}

// AllPageSizes returns all valid PageSize values
func AllPageSizes() []PageSize {
	return []PageSize{PageSizeA4, PageSizeLetter, PageSizeLegal}
}

// LogoPosition is where the logo is placed in the document header
type LogoPosition string

const (
	LogoPositionHeaderLeft   LogoPosition = "header-left"
	LogoPositionHeaderCenter LogoPosition = "header-center"
	LogoPositionHeaderRight  LogoPosition = "header-right"
)

// IsValid checks if the LogoPosition is a valid value
func (l LogoPosition) IsValid() bool {
	switch l {
	case LogoPositionHeaderLeft, LogoPositionHeaderCenter, LogoPositionHeaderRight:
		return true
	}
	return false
}

// String returns the string representation of LogoPosition
func (l LogoPosition) String() string {
	return string(l)
}

// Alignment returns the CSS text-align value for the position
func (l LogoPosition) Alignment() string {
	switch l {
	case LogoPositionHeaderCenter:
		return "center"
	case LogoPositionHeaderRight:
		return "right"
	default:
		return "left"
	}
}

// VariableType is the declared data type of a template variable
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeNumber  VariableType = "number"
	VariableTypeDate    VariableType = "date"
	VariableTypeBoolean VariableType = "boolean"
	VariableTypeList    VariableType = "list"
	VariableTypeObject  VariableType = "object"
)

// IsValid checks if the VariableType is a valid value
func (v VariableType) IsValid() bool {
	switch v {
	case VariableTypeString, VariableTypeNumber, VariableTypeDate,
		VariableTypeBoolean, VariableTypeList, VariableTypeObject:
		return true
	}
	return false
}
