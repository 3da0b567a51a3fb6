package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBinaryPath   = "wkhtmltopdf"
	defaultDPI          = 96
	defaultImageQuality = 94
)

// WkhtmltopdfConfig contains configuration for the wkhtmltopdf encoder
type WkhtmltopdfConfig struct {
	// BinaryPath is the path to the wkhtmltopdf binary; searched in PATH when relative
	BinaryPath string
	// DefaultTimeout for encoding operations
	DefaultTimeout time.Duration
	// TempDir for scratch files during encoding
	TempDir string
	// DPI for rendering (default: 96)
	DPI int
	// ImageQuality (0-100, default: 94)
	ImageQuality int
	Logger       *zap.Logger
}

// WkhtmltopdfEncoder lays out HTML with the wkhtmltopdf command-line tool
type WkhtmltopdfEncoder struct {
	config WkhtmltopdfConfig
	logger *zap.Logger
}

// NewWkhtmltopdfEncoder creates a wkhtmltopdf-based encoder. It fails when the
// binary cannot be found.
func NewWkhtmltopdfEncoder(config WkhtmltopdfConfig) (*WkhtmltopdfEncoder, error) {
	if config.BinaryPath == "" {
		config.BinaryPath = defaultBinaryPath
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = defaultEncodeTimeout
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.DPI == 0 {
		config.DPI = defaultDPI
	}
	if config.ImageQuality == 0 {
		config.ImageQuality = defaultImageQuality
	}

	binaryPath, err := resolveBinaryPath(config.BinaryPath)
	if err != nil {
		return nil, NewRenderError(ErrCodeBinaryNotFound,
			fmt.Sprintf("wkhtmltopdf binary not found: %s", config.BinaryPath), err)
	}
	config.BinaryPath = binaryPath

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WkhtmltopdfEncoder{config: config, logger: logger}, nil
}

func resolveBinaryPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

// Encode writes the document to a scratch file and converts it
func (e *WkhtmltopdfEncoder) Encode(ctx context.Context, req *EncodeRequest) (*EncodeResult, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.config.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	htmlFile, err := os.CreateTemp(e.config.TempDir, "docgen-*.html")
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to create scratch HTML file", err)
	}
	htmlPath := htmlFile.Name()
	defer os.Remove(htmlPath)

	_, err = htmlFile.WriteString(ComposeDocument(req.Title, req.CSS, req.HTML))
	htmlFile.Close()
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to write scratch HTML file", err)
	}

	pdfPath := htmlPath[:len(htmlPath)-len(".html")] + ".pdf"
	defer os.Remove(pdfPath)

	args := e.buildArgs(req, htmlPath, pdfPath)
	e.logger.Debug("executing wkhtmltopdf",
		zap.String("binary", e.config.BinaryPath),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, e.config.BinaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF encoding timed out after %v", timeout), err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF encoding was cancelled", err)
		}
		e.logger.Error("wkhtmltopdf failed",
			zap.Error(err),
			zap.String("stderr", stderr.String()))
		return nil, NewRenderError(ErrCodeRenderFailed, "wkhtmltopdf execution failed: "+stderr.String(), err)
	}

	pdfData, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to read generated PDF", err)
	}
	if len(pdfData) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	pages := countPages(pdfData)
	elapsed := time.Since(start)
	e.logger.Debug("PDF encoded",
		zap.String("engine", "wkhtmltopdf"),
		zap.Int("bytes", len(pdfData)),
		zap.Int("pages", pages),
		zap.Duration("duration", elapsed))

	return &EncodeResult{PDFData: pdfData, PageCount: pages, Duration: elapsed}, nil
}

// buildArgs constructs the command line. wkhtmltopdf substitutes [page] and
// [topage] after layout.
func (e *WkhtmltopdfEncoder) buildArgs(req *EncodeRequest, htmlPath, pdfPath string) []string {
	width, height := req.PageSize.Dimensions()
	args := []string{
		"--quiet",
		"--encoding", "UTF-8",
		"--dpi", strconv.Itoa(e.config.DPI),
		"--image-quality", strconv.Itoa(e.config.ImageQuality),
		"--page-width", formatMM(width),
		"--page-height", formatMM(height),
		"--margin-top", formatMM(req.Margins.Top),
		"--margin-right", formatMM(req.Margins.Right),
		"--margin-bottom", formatMM(req.Margins.Bottom),
		"--margin-left", formatMM(req.Margins.Left),
		"--disable-javascript",
		"--footer-right", "Page [page] of [topage]",
		"--footer-font-size", "9",
	}
	if req.Title != "" {
		args = append(args, "--title", req.Title)
	}
	return append(args, htmlPath, pdfPath)
}

// Close is a no-op; every call runs its own process
func (e *WkhtmltopdfEncoder) Close() error {
	return nil
}

func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}

// countPages counts page objects in the PDF. Every page carries "/Type /Page";
// the page tree root carries "/Type /Pages", which also matches the prefix.
func countPages(pdfData []byte) int {
	count := bytes.Count(pdfData, []byte("/Type /Page")) - bytes.Count(pdfData, []byte("/Type /Pages"))
	count += bytes.Count(pdfData, []byte("/Type/Page")) - bytes.Count(pdfData, []byte("/Type/Pages"))
	return max(count, 1)
}

var _ Encoder = (*WkhtmltopdfEncoder)(nil)
