package scraper

import (
	"context"
	"errors"
)

var (
	ErrInvalidURL      = errors.New("invalid Olive Young product URL")
	ErrProductNotFound = errors.New("product not found")
	ErrBlocked         = errors.New("blocked by anti-bot challenge")
)

// PageLoader returns the rendered HTML of a page.
type PageLoader interface {
	Load(ctx context.Context, url string) (string, error)
}

type Options struct {
	MaxRetries    int
	ScreenshotDir string
}
