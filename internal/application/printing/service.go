// Package printing orchestrates document generation and the management of
// templates and their assets.
package printing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
	"github.com/docforge/backend/internal/infrastructure/logger"
	infra "github.com/docforge/backend/internal/infrastructure/printing"
	"github.com/docforge/backend/internal/infrastructure/storage"
	"github.com/docforge/backend/internal/infrastructure/telemetry"
	"github.com/docforge/backend/internal/infrastructure/templating"
)

const serviceName = "GenerationService"

// Result messages and fixed render labels
const (
	MessageGenerated     = "Document generated successfully"
	MessageRendered      = "Document rendered successfully"
	messageFailurePrefix = "Document generation failed: "
	PreviewWatermark     = "PREVIEW"
	pdfContentType       = "application/pdf"
	defaultTempAge       = 24 * time.Hour
	// adhocDocumentType labels metrics for markup rendered without a stored template
	adhocDocumentType = "adhoc"
)

// FileStore owns asset and document bytes on local disk
type FileStore interface {
	SaveAsset(ctx context.Context, role printing.AssetRole, filename string, data []byte) (*printing.StoredFile, error)
	SaveDocument(ctx context.Context, filename string, data []byte) (*storage.StoredDocument, error)
	ResizeAsset(ctx context.Context, rel string, maxWidth, maxHeight, quality int) (*printing.StoredFile, error)
	ResolveOrRaw(rel string) string
	Exists(rel string) bool
	Delete(ctx context.Context, rel string) error
	ListAssetFiles(ctx context.Context) ([]string, error)
	CleanupTemp(ctx context.Context, age time.Duration) (int, error)
	URL(rel string) string
}

// Config holds the pipeline settings taken from process configuration
type Config struct {
	// Strict turns unresolved variables, missing required variables and
	// missing asset files into errors
	Strict         bool
	PageSize       printing.PageSize
	Margins        printing.Margins
	EncodeTimeout  time.Duration
	TempCleanupAge time.Duration
	PresignExpiry  time.Duration
	QRModuleSize   int
	// Engine names the encoder backend on spans
	Engine    string
	CacheSize int
}

// GenerationService handles template, asset and generation operations
type GenerationService struct {
	templates printing.TemplateRepository
	assets    printing.AssetRepository
	files     FileStore
	styles    *infra.StyleComposer
	encoder   infra.Encoder
	resolver  *templating.Resolver
	embedder  *infra.AssetEmbedder
	qr        *infra.QRCodeGenerator
	mirror    storage.ObjectStore
	metrics   *telemetry.GenerationMetrics
	cache     *compiledCache
	config    Config
	logger    *zap.Logger
}

// Option configures optional collaborators of a GenerationService
type Option func(*GenerationService)

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *GenerationService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMirror uploads every stored document to an object store and returns presigned URLs
func WithMirror(m storage.ObjectStore) Option {
	return func(s *GenerationService) {
		s.mirror = m
	}
}

// WithMetrics records generation metrics
func WithMetrics(m *telemetry.GenerationMetrics) Option {
	return func(s *GenerationService) {
		s.metrics = m
	}
}

// NewGenerationService creates a new GenerationService
func NewGenerationService(
	templates printing.TemplateRepository,
	assets printing.AssetRepository,
	files FileStore,
	styles *infra.StyleComposer,
	encoder infra.Encoder,
	config Config,
	opts ...Option,
) *GenerationService {
	if !config.PageSize.IsValid() {
		config.PageSize = printing.PageSizeA4
	}
	if config.Margins.IsZero() {
		config.Margins = printing.DefaultMargins()
	}
	if config.TempCleanupAge <= 0 {
		config.TempCleanupAge = defaultTempAge
	}

	s := &GenerationService{
		templates: templates,
		assets:    assets,
		files:     files,
		styles:    styles,
		encoder:   encoder,
		resolver:  templating.NewResolver(templating.WithStrict(config.Strict)),
		qr:        infra.NewQRCodeGenerator(config.QRModuleSize),
		cache:     newCompiledCache(config.CacheSize),
		config:    config,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.embedder = infra.NewAssetEmbedder(config.Strict, s.logger)
	return s
}

// =============================================================================
// Generation
// =============================================================================

// renderInput is everything one pass through the pipeline needs
type renderInput struct {
	cacheKey  string
	name      string
	source    string
	title     string
	css       string
	branding  printing.BrandingConfig
	data      map[string]any
	metadata  map[string]any
	info      map[string]any
	assets    []printing.AssetDescriptor
	qrData    string
	watermark string
}

// Generate renders a stored template and persists the document.
// The result is never nil; on failure it carries the message and no payload.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*printing.GenerationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Generate",
		telemetry.WithAttribute(telemetry.SpanAttrTemplateID, req.TemplateID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrEngine, s.config.Engine))
	defer span.End()
	log := logger.WithTraceContext(ctx, s.logger)

	fail := func(docType string, err error) (*printing.GenerationResult, error) {
		telemetry.RecordError(span, err)
		s.metrics.ObserveDocument(docType, false, 0)
		log.Error("document generation failed",
			zap.String("template_id", req.TemplateID.String()),
			zap.Error(err))
		return printing.NewFailureResult(messageFailurePrefix + err.Error()), err
	}

	if err := validateRequest(req); err != nil {
		return fail("", err)
	}
	tmpl, err := s.usableTemplate(ctx, req.TemplateID)
	if err != nil {
		return fail("", err)
	}
	docType := string(tmpl.DocumentType)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTemplateName, tmpl.Name,
		telemetry.SpanAttrDocumentType, docType)

	in, err := s.templateInput(ctx, tmpl, req.Data, req.Metadata)
	if err != nil {
		return fail(docType, err)
	}
	in.qrData = req.QRData
	in.watermark = req.WatermarkText

	enc, err := s.render(ctx, in)
	if err != nil {
		return fail(docType, err)
	}

	filename := req.OutputFilename
	if strings.TrimSpace(filename) == "" {
		filename = tmpl.Name + "_" + docType
	}
	stored, err := s.store(ctx, filename, enc.PDFData)
	if err != nil {
		return fail(docType, err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStoragePath, stored.Path,
		telemetry.SpanAttrByteSize, len(enc.PDFData))
	telemetry.SetOK(span)
	s.metrics.ObserveDocument(docType, true, len(enc.PDFData))

	log.Info("document generated",
		zap.String("template", tmpl.Reference()),
		zap.String("path", stored.Path),
		zap.Int("size", len(enc.PDFData)),
		zap.Int("pages", enc.PageCount))

	return printing.NewSuccessResult(enc.PDFData, stored.Path, stored.URL, MessageGenerated, enc.PageCount), nil
}

// Preview renders a stored template with a PREVIEW watermark without persisting it
func (s *GenerationService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Preview",
		telemetry.WithAttribute(telemetry.SpanAttrTemplateID, req.TemplateID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPreview, true))
	defer span.End()

	if err := validateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	tmpl, err := s.findTemplate(ctx, req.TemplateID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	in, err := s.templateInput(ctx, tmpl, req.Data, req.Metadata)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	in.qrData = req.QRData
	in.watermark = PreviewWatermark

	enc, err := s.render(ctx, in)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	return &PreviewResponse{
		Filename: "preview_" + tmpl.Name + ".pdf",
		Data:     enc.PDFData,
		Size:     int64(len(enc.PDFData)),
		Pages:    enc.PageCount,
	}, nil
}

// Render runs ad-hoc markup through the same pipeline. The document is only
// stored when Persist is set.
func (s *GenerationService) Render(ctx context.Context, req RenderRequest) (*printing.GenerationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Render",
		telemetry.WithAttribute(telemetry.SpanAttrEngine, s.config.Engine))
	defer span.End()

	fail := func(err error) (*printing.GenerationResult, error) {
		telemetry.RecordError(span, err)
		s.metrics.ObserveDocument(adhocDocumentType, false, 0)
		return printing.NewFailureResult(messageFailurePrefix + err.Error()), err
	}

	if err := validateRequest(req); err != nil {
		return fail(err)
	}
	in := &renderInput{
		name:      "inline",
		source:    req.HTMLContent,
		title:     req.Title,
		css:       req.CSSContent,
		data:      req.Data,
		metadata:  req.Metadata,
		qrData:    req.QRData,
		watermark: req.WatermarkText,
	}
	if req.Branding != nil {
		in.branding = *req.Branding
	}

	enc, err := s.render(ctx, in)
	if err != nil {
		return fail(err)
	}
	s.metrics.ObserveDocument(adhocDocumentType, true, len(enc.PDFData))
	telemetry.SetOK(span)

	if !req.Persist {
		return printing.NewSuccessResult(enc.PDFData, "", "", MessageRendered, enc.PageCount), nil
	}
	filename := req.OutputFilename
	if strings.TrimSpace(filename) == "" {
		filename = req.Title
	}
	stored, err := s.store(ctx, filename, enc.PDFData)
	if err != nil {
		return fail(err)
	}
	return printing.NewSuccessResult(enc.PDFData, stored.Path, stored.URL, MessageGenerated, enc.PageCount), nil
}

// templateInput loads the assets of tmpl and checks its required variables
func (s *GenerationService) templateInput(ctx context.Context, tmpl *printing.Template, data, metadata map[string]any) (*renderInput, error) {
	if missing := tmpl.MissingRequired(data); len(missing) > 0 {
		if s.config.Strict {
			return nil, shared.NewDomainError(printing.CodeUnresolvedVariable,
				fmt.Sprintf("template %s is missing required variables: %s", tmpl.Reference(), strings.Join(missing, ", ")))
		}
		logger.WithTraceContext(ctx, s.logger).Warn("required variables missing",
			zap.String("template", tmpl.Reference()),
			zap.Strings("variables", missing))
	}

	assets, err := s.assets.FindByTemplate(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template assets: %w", err)
	}
	descriptors := make([]printing.AssetDescriptor, len(assets))
	missingFiles := 0
	for i := range assets {
		descriptors[i] = assets[i].Descriptor(s.files.ResolveOrRaw)
		if !s.files.Exists(assets[i].StoragePath) {
			missingFiles++
		}
	}
	s.metrics.AddAssets(len(assets)-missingFiles, missingFiles)

	return &renderInput{
		cacheKey: tmpl.ID.String(),
		name:     tmpl.Reference(),
		source:   tmpl.HTMLContent,
		title:    tmpl.Title,
		css:      tmpl.CSSContent,
		branding: tmpl.Branding,
		data:     data,
		metadata: printing.MergeMetadata(tmpl.DefaultMetadata, metadata),
		info: map[string]any{
			"name":          tmpl.Name,
			"title":         tmpl.Title,
			"document_type": string(tmpl.DocumentType),
			"version":       tmpl.Version,
		},
		assets: descriptors,
	}, nil
}

// render resolves the template against the enriched context and encodes the result
func (s *GenerationService) render(ctx context.Context, in *renderInput) (*infra.EncodeResult, error) {
	start := time.Now()

	vars, err := s.buildContext(ctx, in)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.compile(in)
	if err != nil {
		return nil, err
	}
	markup, err := tmpl.Execute(vars)
	if err != nil {
		return nil, err
	}
	css, err := s.styles.Compose(in.branding, in.css)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStage(telemetry.StageResolve, time.Since(start))

	start = time.Now()
	enc, err := s.encoder.Encode(ctx, &infra.EncodeRequest{
		HTML:     markup,
		CSS:      css,
		PageSize: s.config.PageSize,
		Margins:  s.config.Margins,
		Title:    in.title,
		Timeout:  s.config.EncodeTimeout,
	})
	s.metrics.ObserveStage(telemetry.StageEncode, time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(enc.PDFData) == 0 {
		return nil, printing.NewRenderError("encoder produced an empty document", nil)
	}
	return enc, nil
}

// buildContext layers the reserved keys over the caller's data
func (s *GenerationService) buildContext(ctx context.Context, in *renderInput) (map[string]any, error) {
	data := maps.Clone(in.data)
	if data == nil {
		data = map[string]any{}
	}

	embedded, err := s.embedder.Embed(ctx, in.assets)
	if err != nil {
		return nil, err
	}
	data[printing.ContextKeyAssets] = embedded

	if in.qrData != "" {
		qr, err := s.qr.DataURL(in.qrData)
		if err != nil {
			return nil, err
		}
		data[printing.ContextKeyQRCode] = qr
	}

	branding := s.styles.Branding(in.branding)
	data[printing.ContextKeyBranding] = branding.ContextMap()
	if text, ok := branding.Watermark(in.watermark); ok {
		data[printing.ContextKeyWatermark] = text
	}

	metadata := in.metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	data[printing.ContextKeyMetadata] = metadata
	if in.info != nil {
		data[printing.ContextKeyTemplate] = in.info
	}
	return data, nil
}

func (s *GenerationService) compile(in *renderInput) (*templating.Template, error) {
	if in.cacheKey == "" {
		return s.resolver.Compile(in.name, in.source)
	}
	return s.cache.get(in.cacheKey, func() (*templating.Template, error) {
		return s.resolver.Compile(in.name, in.source)
	})
}

// store writes the document locally and, when a mirror is configured, uploads it
// and swaps the URL for a presigned one. A failed upload keeps the local URL.
func (s *GenerationService) store(ctx context.Context, filename string, pdf []byte) (*storage.StoredDocument, error) {
	start := time.Now()
	stored, err := s.files.SaveDocument(ctx, filename, pdf)
	s.metrics.ObserveStage(telemetry.StageStore, time.Since(start))
	if err != nil {
		return nil, err
	}
	if s.mirror == nil {
		return stored, nil
	}

	start = time.Now()
	defer func() { s.metrics.ObserveStage(telemetry.StageMirror, time.Since(start)) }()
	log := logger.WithTraceContext(ctx, s.logger)

	if err := s.mirror.Put(ctx, stored.Path, pdf, pdfContentType); err != nil {
		log.Warn("document mirror upload failed",
			zap.String("bucket", s.mirror.Bucket()),
			zap.String("key", stored.Path),
			zap.Error(err))
		return stored, nil
	}
	url, err := s.mirror.PresignGet(ctx, stored.Path, s.config.PresignExpiry)
	if err != nil {
		log.Warn("document presign failed", zap.String("key", stored.Path), zap.Error(err))
		return stored, nil
	}
	stored.URL = url
	return stored, nil
}

// =============================================================================
// Maintenance and reference data
// =============================================================================

// CleanupTemp removes scratch files older than olderThan; zero uses the configured age
func (s *GenerationService) CleanupTemp(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = s.config.TempCleanupAge
	}
	return s.files.CleanupTemp(ctx, olderThan)
}

// CachedTemplates returns the number of compiled template versions held in memory
func (s *GenerationService) CachedTemplates() int {
	return s.cache.len()
}

// GetDocumentTypes returns all available document types
func (s *GenerationService) GetDocumentTypes() []DocumentTypeResponse {
	docTypes := printing.AllDocTypes()
	result := make([]DocumentTypeResponse, len(docTypes))
	for i, dt := range docTypes {
		result[i] = DocumentTypeResponse{Code: string(dt), DisplayName: dt.DisplayName()}
	}
	return result
}

// GetPageSizes returns all supported page sizes
func (s *GenerationService) GetPageSizes() []PageSizeResponse {
	sizes := printing.AllPageSizes()
	result := make([]PageSizeResponse, len(sizes))
	for i, ps := range sizes {
		w, h := ps.Dimensions()
		result[i] = PageSizeResponse{Code: string(ps), Width: w, Height: h}
	}
	return result
}

// =============================================================================
// Helper Functions
// =============================================================================

func (s *GenerationService) findTemplate(ctx context.Context, id uuid.UUID) (*printing.Template, error) {
	tmpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, printing.ErrTemplateNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tmpl, nil
}

// usableTemplate is findTemplate restricted to active templates
func (s *GenerationService) usableTemplate(ctx context.Context, id uuid.UUID) (*printing.Template, error) {
	tmpl, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("template %s is inactive", tmpl.Reference()))
	}
	return tmpl, nil
}
