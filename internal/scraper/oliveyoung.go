package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/maltedev/product-options-crawler/internal/models"
	"github.com/maltedev/product-options-crawler/internal/parser"
	"github.com/maltedev/product-options-crawler/internal/ratelimit"
)

const detailPath = "/store/goods/getGoodsDetail.do"

// OliveYoung fetches and parses Olive Young product detail pages.
type OliveYoung struct {
	loader  PageLoader
	parser  parser.Parser
	limiter ratelimit.RateLimiter
	logger  *slog.Logger
}

func NewOliveYoung(loader PageLoader, limiter ratelimit.RateLimiter, logger *slog.Logger) *OliveYoung {
	return &OliveYoung{
		loader:  loader,
		parser:  parser.NewOliveYoungParser(),
		limiter: limiter,
		logger:  logger.With("component", "oliveyoung_scraper"),
	}
}

func (s *OliveYoung) FetchProduct(ctx context.Context, productURL string) (*models.ProductPage, error) {
	if err := ValidateURL(productURL); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	s.logger.Info("loading product page", "url", productURL)

	html, err := s.loader.Load(ctx, productURL)
	if err != nil {
		s.recordError()
		return nil, err
	}

	page, err := s.parser.ParseProductPage(html, productURL)
	if err != nil {
		s.recordError()
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}

	if page.Info.Name == "" && page.Info.Brand == "" {
		s.recordError()
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productURL)
	}

	s.recordSuccess()
	s.logger.Info("parsed product page",
		"goodsNo", page.GoodsNo,
		"name", page.Info.Name,
		"options", len(page.Options))

	return page, nil
}

// ValidateURL accepts oliveyoung.co.kr detail page URLs carrying a goodsNo.
func ValidateURL(productURL string) error {
	u, err := url.Parse(productURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host != "oliveyoung.co.kr" && !strings.HasSuffix(host, ".oliveyoung.co.kr") {
		return fmt.Errorf("%w: unexpected host %q", ErrInvalidURL, host)
	}

	if !strings.HasSuffix(u.Path, detailPath) {
		return fmt.Errorf("%w: not a product detail page", ErrInvalidURL)
	}

	if parser.GoodsNo(productURL) == "" {
		return fmt.Errorf("%w: missing goodsNo", ErrInvalidURL)
	}

	return nil
}

func (s *OliveYoung) recordSuccess() {
	if a, ok := s.limiter.(*ratelimit.AdaptiveRateLimiter); ok {
		a.RecordSuccess()
	}
}

func (s *OliveYoung) recordError() {
	if a, ok := s.limiter.(*ratelimit.AdaptiveRateLimiter); ok {
		a.RecordError()
	}
}
