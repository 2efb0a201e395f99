package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/jonathan/outreach-agent/internal/logging"
)

// DefaultBrowserTimeout bounds a single headless render.
const DefaultBrowserTimeout = 30 * time.Second

// BrowserFetcher renders pages in headless Chrome.
// Use it for JavaScript-rendered sites whose static HTML has no readable text.
type BrowserFetcher struct {
	Timeout time.Duration
	Logger  logging.Logger
}

// NewBrowserFetcher creates a BrowserFetcher with the default timeout.
func NewBrowserFetcher(logger logging.Logger) *BrowserFetcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BrowserFetcher{Timeout: DefaultBrowserTimeout, Logger: logger}
}

// Fetch implements Fetcher.
func (b *BrowserFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	html, err := WithBrowser(ctx, urlStr, b.Timeout, b.Logger)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: err}
	}
	return &Result{URL: urlStr, HTML: html, ContentType: "text/html", StatusCode: 200}, nil
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, logger logging.Logger) (string, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger.Debug("[Browser] Starting headless browser for: %s", url)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give client-side rendering a moment to fill the page
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug("[Browser] Rendered HTML: %d bytes", len(html))
	return html, nil
}
