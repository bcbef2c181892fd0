package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/maltedev/product-options-crawler/internal/browser"
	"github.com/playwright-community/playwright-go"
)

// BrowserLoader renders pages in a shared playwright context, one page per
// load. A failed load leaves a full-page screenshot behind when ScreenshotDir
// is set.
type BrowserLoader struct {
	browser *browser.Browser
	opts    Options
	logger  *slog.Logger
}

func NewBrowserLoader(b *browser.Browser, opts Options, logger *slog.Logger) *BrowserLoader {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	return &BrowserLoader{
		browser: b,
		opts:    opts,
		logger:  logger.With("component", "browser_loader"),
	}
}

func (l *BrowserLoader) Load(ctx context.Context, url string) (string, error) {
	page, err := l.browser.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := l.browser.NavigateWithRetry(ctx, page, url, l.opts.MaxRetries); err != nil {
		l.screenshot(page, "error_page_access")
		if errors.Is(err, browser.ErrChallenge) {
			return "", fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return "", fmt.Errorf("failed to navigate: %w", err)
	}

	html, err := page.Content()
	if err != nil {
		l.screenshot(page, "error_single_product")
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	return html, nil
}

func (l *BrowserLoader) screenshot(page playwright.Page, name string) {
	if l.opts.ScreenshotDir == "" {
		return
	}

	path := filepath.Join(l.opts.ScreenshotDir, fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405")))
	if err := browser.Screenshot(page, path); err != nil {
		l.logger.Warn("screenshot failed", "error", err)
		return
	}
	l.logger.Info("saved screenshot", "path", path)
}
