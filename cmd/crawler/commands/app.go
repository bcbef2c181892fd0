package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/maltedev/product-options-crawler/internal/api"
	"github.com/maltedev/product-options-crawler/internal/brands"
	"github.com/maltedev/product-options-crawler/internal/browser"
	"github.com/maltedev/product-options-crawler/internal/config"
	"github.com/maltedev/product-options-crawler/internal/crawler"
	"github.com/maltedev/product-options-crawler/internal/database"
	"github.com/maltedev/product-options-crawler/internal/events"
	"github.com/maltedev/product-options-crawler/internal/filetx"
	"github.com/maltedev/product-options-crawler/internal/logger"
	"github.com/maltedev/product-options-crawler/internal/options"
	"github.com/maltedev/product-options-crawler/internal/ratelimit"
	"github.com/maltedev/product-options-crawler/internal/registry"
	"github.com/maltedev/product-options-crawler/internal/scraper"
	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// app holds the wiring shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	fs      afero.Fs
	txm     *filetx.Manager
	db      *database.DB
	redis   *redis.Client
	closers []func()
}

func newApp() (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(log)

	fs := afero.NewOsFs()
	return &app{
		cfg:    cfg,
		logger: log,
		fs:     fs,
		txm:    filetx.NewManager(fs, log),
	}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) path(name string) string {
	return a.cfg.Output.Path(name)
}

func (a *app) files() crawler.Files {
	return crawler.Files{
		Options:     a.path(a.cfg.Output.OptionsFile),
		Products:    a.path(a.cfg.Output.ProductsFile),
		ProductInfo: a.path(a.cfg.Output.InfoFile),
	}
}

// batches lists the batch files by kind. Kinds without a configured file
// are left out.
func (a *app) batches() map[string]api.Batch {
	out := map[string]api.Batch{
		"options": {Path: a.path(a.cfg.Output.OptionsFile), Table: sqlbatch.ProductOptions},
	}
	if a.cfg.Output.ProductsFile != "" {
		out["products"] = api.Batch{Path: a.path(a.cfg.Output.ProductsFile), Table: sqlbatch.Products}
	}
	if a.cfg.Output.BrandSQLFile != "" {
		out["brands"] = api.Batch{Path: a.path(a.cfg.Output.BrandSQLFile), Table: brands.Table}
	}
	return out
}

func (a *app) database(ctx context.Context) (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.cfg.Database.URL == "" {
		return nil, errors.New("database.url is not configured (set DATABASE_URL)")
	}

	db, err := database.New(ctx, database.Config{URL: a.cfg.Database.URL, MaxConns: 4})
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil || a.cfg.Redis.Addr == "" {
		return a.redis, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	a.redis = client
	a.closers = append(a.closers, func() { client.Close() })
	return client, nil
}

// brandLookup prefers the brands table and falls back to brand_data.json.
func (a *app) brandLookup(ctx context.Context) (brands.Lookup, error) {
	if a.cfg.Database.URL != "" {
		db, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	path := a.path(a.cfg.Output.BrandsFile)
	if path == "" {
		return nil, nil
	}
	if ok, _ := afero.Exists(a.fs, path); !ok {
		a.logger.Warn("no brand source, brand_id will be NULL", "brands_file", path)
		return nil, nil
	}
	l, err := brands.LoadFile(a.fs, path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (a *app) orchestrator(ctx context.Context, source crawler.Source) (*crawler.Orchestrator, error) {
	policy, err := options.ParsePolicy(a.cfg.Crawl.Policy)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if seed := a.cfg.Crawl.Seed; seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	}

	opts := []crawler.Option{
		crawler.WithLogger(a.logger),
		crawler.WithStartProductID(a.cfg.Crawl.StartProductID),
	}

	lookup, err := a.brandLookup(ctx)
	if err != nil {
		return nil, err
	}
	if lookup != nil {
		opts = append(opts, crawler.WithBrands(lookup))
	}

	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	if client != nil {
		opts = append(opts,
			crawler.WithRegistry(registry.NewRedisRegistry(client, a.cfg.Redis.SetKey)),
			crawler.WithPublisher(events.NewRedisPublisher(client, a.cfg.Redis.StreamKey, a.logger)),
		)
	}

	deriver := options.NewDeriver(policy, rng, a.logger)
	return crawler.New(source, a.txm, deriver, a.files(), opts...), nil
}

// source launches the browser behind the Olive Young scraper.
func (a *app) source() (*scraper.OliveYoung, error) {
	bc := a.cfg.Browser
	opts := browser.DefaultOptions()
	opts.Headless = bc.Headless
	opts.Timeout = bc.Timeout
	opts.SettleDelay = bc.SettleDelay
	opts.ChallengeWait = bc.ChallengeWait
	opts.ViewportWidth = bc.ViewportWidth
	opts.ViewportHeight = bc.ViewportHeight
	opts.Locale = bc.Locale
	opts.TimezoneID = bc.TimezoneID
	opts.ProxyServer = bc.ProxyServer

	b, err := browser.New(opts)
	if err != nil {
		return nil, err
	}
	b.WithLogger(a.logger)
	a.closers = append(a.closers, func() {
		if err := b.Close(); err != nil {
			a.logger.Warn("failed to close browser", "error", err)
		}
	})

	screenshots := a.path(a.cfg.Output.ScreenshotDir)
	if screenshots != "" {
		if err := os.MkdirAll(screenshots, 0755); err != nil {
			return nil, fmt.Errorf("failed to create screenshot dir: %w", err)
		}
	}

	loader := scraper.NewBrowserLoader(b, scraper.Options{
		MaxRetries:    a.cfg.Crawl.MaxRetries,
		ScreenshotDir: screenshots,
	}, a.logger)
	limiter := ratelimit.NewAdaptiveRateLimiter(a.cfg.Crawl.RateLimitMin, a.cfg.Crawl.RateLimitMax)

	return scraper.NewOliveYoung(loader, limiter, a.logger), nil
}
