// Package printing turns resolved templates into PDF documents.
//
// It holds the Encoder implementations (headless Chrome via chromedp, and the
// wkhtmltopdf binary), markup and stylesheet validation, the StyleComposer
// that derives CSS from branding, the AssetEmbedder that inlines asset files
// as data URLs, and the QR code generator.
package printing
