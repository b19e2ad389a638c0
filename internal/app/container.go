package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duapune-scraper/internal/config"
	"duapune-scraper/internal/database"
	"duapune-scraper/internal/database/migration"
	dbpostgres "duapune-scraper/internal/database/postgres"
	"duapune-scraper/internal/export"
	"duapune-scraper/internal/scraper"

	"go.uber.org/zap"
)

const (
	connectTimeout   = 10 * time.Second
	migrationTimeout = 2 * time.Minute
)

// Container owns every long-lived resource of one crawl process.
type Container struct {
	Config config.Config
	Logger *zap.Logger

	Browser  *scraper.ChromeBrowser
	Renderer *scraper.RenderedFetcher
	Fetcher  *scraper.HTTPFetcher
	Crawler  *scraper.Crawler

	CSV  *export.CSVWriter
	DB   database.DB
	Sink *export.PostgresSink
}

// RetryPolicy turns the scraper settings into the fetchers' retry policy.
func RetryPolicy(cfg config.ScraperConfig) scraper.RetryPolicy {
	p := scraper.DefaultRetryPolicy()
	p.Robust = cfg.Robust
	p.MaxRetries = uint64(cfg.MaxFetchRetries)
	return p
}

// NewContainer connects the optional database, launches the browser and wires
// the crawler. The browser stays open until Close.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}

	if cfg.Output.CSV {
		c.CSV = export.NewCSVWriter(cfg.Output.Dir, cfg.Output.IncludeHTML, logger.Named("csv"))
	}

	if cfg.Database.Enabled() {
		if err := c.openDatabase(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	browser, err := scraper.NewChromeBrowser(ctx, scraper.ChromeOptions{
		ExecPath:  cfg.Scraper.BrowserPath,
		Headless:  cfg.Scraper.Headless,
		UserAgent: cfg.Scraper.UserAgent,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Browser = browser

	policy := RetryPolicy(cfg.Scraper)
	c.Renderer = scraper.NewRenderedFetcher(browser, scraper.RenderedFetcherConfig{
		PageLoadTimeout: cfg.Scraper.PageLoadTimeout,
		SettleDelay:     cfg.Scraper.SettleDelay,
		Retry:           policy,
	}, logger.Named("render"))
	c.Fetcher = scraper.NewHTTPFetcher(scraper.HTTPFetcherConfig{
		Verify:    cfg.Scraper.VerifyTLS,
		Timeout:   cfg.Scraper.RequestTimeout,
		UserAgent: cfg.Scraper.UserAgent,
		Retry:     policy,
	}, logger.Named("http"))
	c.Crawler = scraper.NewCrawler(scraper.CrawlerConfig{
		BaseURL:            cfg.Scraper.BaseURL,
		MaxDiscoveryCycles: cfg.Scraper.MaxDiscoveryCycles,
	}, c.Renderer, c.Fetcher, logger.Named("crawl"))

	return c, nil
}

func (c *Container) openDatabase(ctx context.Context) error {
	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	db, err := dbpostgres.Connect(connCtx, c.Config.Database, c.Logger.Named("db"))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	c.DB = db

	migCtx, migCancel := context.WithTimeout(ctx, migrationTimeout)
	defer migCancel()
	if err := (migration.Runner{Logger: c.Logger.Named("migration")}).Run(migCtx, db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	c.Sink = export.NewPostgresSink(db, c.Config.Output.IncludeHTML, c.Logger.Named("postgres"))
	return nil
}

// Close releases the browser and the database pool.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Browser != nil {
		errs = append(errs, c.Browser.Close())
		c.Browser = nil
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
		c.DB = nil
	}
	return errors.Join(errs...)
}

// Pipeline returns the run pipeline over the container's components.
func (c *Container) Pipeline() *Pipeline {
	p := &Pipeline{
		BaseURL: c.Config.Scraper.BaseURL,
		Crawler: c.Crawler,
		Logger:  c.Logger,
	}
	if c.CSV != nil {
		p.CSV = c.CSV
	}
	if c.Sink != nil {
		p.Store = c.Sink
	}
	return p
}
