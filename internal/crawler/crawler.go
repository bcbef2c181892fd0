// Package crawler runs one file transaction per product: it fetches the
// page, derives option rows and stages the merged batch files.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/maltedev/product-options-crawler/internal/brands"
	"github.com/maltedev/product-options-crawler/internal/events"
	"github.com/maltedev/product-options-crawler/internal/filetx"
	"github.com/maltedev/product-options-crawler/internal/models"
	"github.com/maltedev/product-options-crawler/internal/options"
	"github.com/maltedev/product-options-crawler/internal/registry"
	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
)

var (
	ErrDuplicateProduct   = errors.New("product already committed")
	ErrMissingProductData = errors.New("missing required product data")
	ErrFetch              = errors.New("failed to fetch product")
)

// Source produces the scraped content of a product detail page.
type Source interface {
	FetchProduct(ctx context.Context, url string) (*models.ProductPage, error)
}

// Files names the batch files a product transaction writes.
// Products and ProductInfo are optional.
type Files struct {
	Options     string
	Products    string
	ProductInfo string
}

type Outcome struct {
	CrawlID    string             `json:"crawl_id"`
	URL        string             `json:"url"`
	GoodsNo    string             `json:"goods_no,omitempty"`
	ProductID  int64              `json:"product_id"`
	Options    int                `json:"options"`
	Rejections []models.Rejection `json:"rejections,omitempty"`
	Files      []string           `json:"files,omitempty"`
}

type Option func(*Orchestrator)

func WithBrands(l brands.Lookup) Option {
	return func(o *Orchestrator) { o.brands = l }
}

func WithRegistry(r registry.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithStartProductID sets the id given to the first product of an empty products batch.
func WithStartProductID(id int64) Option {
	return func(o *Orchestrator) { o.startID = id }
}

// Orchestrator serializes product transactions; the batch files assume a single writer.
type Orchestrator struct {
	mu        sync.Mutex
	source    Source
	txm       *filetx.Manager
	deriver   *options.Deriver
	files     Files
	brands    brands.Lookup
	registry  registry.Registry
	publisher events.Publisher
	logger    *slog.Logger
	startID   int64
	nextID    int64
}

func New(source Source, txm *filetx.Manager, deriver *options.Deriver, files Files, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		txm:       txm,
		deriver:   deriver,
		files:     files,
		registry:  registry.NewMemoryRegistry(),
		publisher: events.NopPublisher{},
		logger:    slog.Default(),
		startID:   1,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "crawler")
	return o
}

// CrawlProduct fetches url and commits its rows. The returned outcome is
// non-nil whenever the page was fetched, including on rollback.
func (o *Orchestrator) CrawlProduct(ctx context.Context, url string) (*Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	crawlID := uuid.New().String()
	o.logger.Info("crawling product", "crawl_id", crawlID, "url", url)

	page, err := o.source.FetchProduct(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if page.URL == "" {
		page.URL = url
	}

	return o.store(ctx, crawlID, page)
}

// Store commits an already scraped page.
func (o *Orchestrator) Store(ctx context.Context, page *models.ProductPage) (*Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.store(ctx, uuid.New().String(), page)
}

func (o *Orchestrator) store(ctx context.Context, crawlID string, page *models.ProductPage) (*Outcome, error) {
	logger := o.logger.With("crawl_id", crawlID, "goods_no", page.GoodsNo)

	out := &Outcome{CrawlID: crawlID, URL: page.URL, GoodsNo: page.GoodsNo}

	seen, err := o.registry.Seen(ctx, page.Key())
	if err != nil {
		return out, err
	}
	if seen {
		logger.Warn("duplicate product skipped", "key", page.Key())
		return out, fmt.Errorf("%w: %s", ErrDuplicateProduct, page.Key())
	}

	productID, err := o.nextProductID()
	if err != nil {
		return out, err
	}
	out.ProductID = productID

	res := o.txm.Run(ctx, func(ctx context.Context, tx *filetx.Tx) error {
		if problems := page.Info.Validate(); len(problems) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingProductData, strings.Join(problems, ", "))
		}

		rows, rejections, err := o.deriver.DeriveAll(productID, page.Options)
		out.Rejections = rejections
		if err != nil {
			return err
		}

		if o.files.Products != "" {
			product, err := o.productRow(ctx, productID, page.Info)
			if err != nil {
				return err
			}
			if err := stage(tx, o.files.Products, func(existing string) (string, error) {
				return sqlbatch.MergeProducts(existing, []models.ProductRow{product})
			}); err != nil {
				return err
			}
		}

		if err := stage(tx, o.files.Options, func(existing string) (string, error) {
			return sqlbatch.MergeOptions(existing, rows)
		}); err != nil {
			return err
		}
		out.Options = len(rows)
		logger.Info("options staged", "product_id", productID, "count", len(rows), "file", o.files.Options)

		if o.files.ProductInfo != "" {
			if err := tx.WriteFile(o.files.ProductInfo, FormatInfo(page.Info)); err != nil {
				return err
			}
		}

		return nil
	})

	if !res.Committed() {
		if errors.Is(res.Err(), filetx.ErrCommit) {
			// Some batch files may already hold this product; renumber from disk.
			o.nextID = 0
		}
		out.Files = res.Paths
		logger.Warn("product not saved", "product_id", productID, "state", res.State.String(), "written", res.Paths, "error", res.Err())
		return out, res.Err()
	}

	o.nextID++
	out.Files = res.Paths
	logger.Info("product committed", "product_id", productID, "options", out.Options, "rejected", len(out.Rejections))

	if err := o.registry.Mark(ctx, page.Key()); err != nil {
		logger.Error("failed to mark product in registry", "error", err)
	}

	event := &events.OptionsCommitted{
		CrawlID:   crawlID,
		ProductID: productID,
		GoodsNo:   page.GoodsNo,
		URL:       page.URL,
		Options:   out.Options,
		Rejected:  len(out.Rejections),
		Files:     out.Files,
	}
	if err := o.publisher.PublishOptionsCommitted(ctx, event); err != nil {
		logger.Error("failed to publish commit event", "error", err)
	}

	return out, nil
}

func (o *Orchestrator) productRow(ctx context.Context, productID int64, info models.ProductInfo) (models.ProductRow, error) {
	row := models.ProductRow{
		ProductID:    productID,
		CategoryName: info.Category,
		ProductName:  info.Name,
	}
	if o.brands == nil {
		return row, nil
	}

	id, ok, err := o.brands.BrandID(ctx, info.Brand)
	if err != nil {
		return row, fmt.Errorf("failed to look up brand %q: %w", info.Brand, err)
	}
	if !ok {
		o.logger.Warn("unknown brand, brand_id left NULL", "brand", info.Brand)
		return row, nil
	}
	row.BrandID = &id
	return row, nil
}

// nextProductID continues numbering after the products already in the batch.
func (o *Orchestrator) nextProductID() (int64, error) {
	if o.nextID > 0 {
		return o.nextID, nil
	}

	o.nextID = o.startID
	if o.files.Products == "" {
		return o.nextID, nil
	}

	content, ok, err := o.txm.ReadFile(o.files.Products)
	if err != nil {
		o.nextID = 0
		return 0, err
	}
	if ok {
		o.nextID += int64(sqlbatch.Inspect(content, sqlbatch.Products).Tuples)
	}
	return o.nextID, nil
}

// stage reads path through the transaction, merges and stages the result.
func stage(tx *filetx.Tx, path string, merge func(existing string) (string, error)) error {
	existing, _, err := tx.ReadFile(path)
	if err != nil {
		return err
	}

	content, err := merge(existing)
	if err != nil {
		return err
	}

	return tx.WriteFile(path, content)
}

// FormatInfo renders the product info text file.
func FormatInfo(info models.ProductInfo) string {
	orNone := func(s string) string {
		if s == "" {
			return "정보 없음"
		}
		return s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "카테고리: %s\n", orNone(info.Category))
	fmt.Fprintf(&b, "브랜드: %s\n", orNone(info.Brand))
	fmt.Fprintf(&b, "상품명: %s\n", orNone(info.Name))
	return b.String()
}

// IsValidation reports whether err is a business-rule rejection rather
// than an infrastructure failure.
func IsValidation(err error) bool {
	return errors.Is(err, options.ErrNoValidOptions) ||
		errors.Is(err, options.ErrNoData) ||
		errors.Is(err, ErrDuplicateProduct) ||
		errors.Is(err, ErrMissingProductData)
}
