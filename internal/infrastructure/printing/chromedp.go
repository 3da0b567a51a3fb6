package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultEncodeTimeout = 30 * time.Second
	defaultScale         = 1.0
)

// ChromedpConfig contains configuration for the chromedp encoder
type ChromedpConfig struct {
	// DefaultTimeout for encoding operations
	DefaultTimeout time.Duration
	// RemoteURL is the DevTools URL of a running Chrome instance (optional).
	// If empty, chromedp launches a headless browser.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Scale for rendering (default: 1.0)
	Scale  float64
	Logger *zap.Logger
}

// ChromedpEncoder lays out HTML with headless Chrome. The allocator is shared;
// each Encode call opens its own tab, so calls may run concurrently.
type ChromedpEncoder struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpEncoder creates a chromedp-based encoder
func NewChromedpEncoder(config ChromedpConfig) *ChromedpEncoder {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = defaultEncodeTimeout
	}
	if config.Scale == 0 {
		config.Scale = defaultScale
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &ChromedpEncoder{config: config, logger: logger}
	e.allocCtx, e.allocCancel = newAllocator(config)
	return e
}

func newAllocator(config ChromedpConfig) (context.Context, context.CancelFunc) {
	if config.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

// Encode renders the document and prints it with a "Page X of Y" footer.
// Chrome fills the page counters after layout, so the total is exact.
func (e *ChromedpEncoder) Encode(ctx context.Context, req *EncodeRequest) (*EncodeResult, error) {
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

	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			e.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()

	// tie the tab to the caller's deadline
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	document := ComposeDocument(req.Title, req.CSS, req.HTML)
	params := e.printParams(req)

	var pdfData []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, document).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := params.Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF encoding timed out after %v", timeout), err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF encoding was cancelled", err)
		}
		e.logger.Error("chromedp encoding failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdfData) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	pages := countPages(pdfData)
	elapsed := time.Since(start)
	e.logger.Debug("PDF encoded",
		zap.String("engine", "chromedp"),
		zap.Int("bytes", len(pdfData)),
		zap.Int("pages", pages),
		zap.Duration("duration", elapsed))

	return &EncodeResult{PDFData: pdfData, PageCount: pages, Duration: elapsed}, nil
}

func (e *ChromedpEncoder) printParams(req *EncodeRequest) *page.PrintToPDFParams {
	width, height := req.PageSize.Dimensions()
	margins := req.Margins

	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(width)).
		WithPaperHeight(mmToInches(height)).
		WithMarginTop(mmToInches(margins.Top)).
		WithMarginRight(mmToInches(margins.Right)).
		WithMarginBottom(mmToInches(margins.Bottom)).
		WithMarginLeft(mmToInches(margins.Left)).
		WithScale(e.config.Scale).
		WithPreferCSSPageSize(false).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate("<span></span>").
		WithFooterTemplate(pageFooterTemplate)
}

// Close releases the browser allocator
func (e *ChromedpEncoder) Close() error {
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}

var _ Encoder = (*ChromedpEncoder)(nil)
