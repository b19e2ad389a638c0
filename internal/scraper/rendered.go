package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPageLoadTimeout = 60 * time.Second
	defaultSettleDelay     = 5 * time.Second
	defaultRevealPauseMin  = 5 * time.Second
	defaultRevealPauseMax  = 7 * time.Second

	// RevealSelector matches the "show more" control under the landing listings.
	RevealSelector = "section#listing-home div.col-md-6.customlistinghome > a"
)

type RenderedFetcherConfig struct {
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration
	RevealSelector  string
	Retry           RetryPolicy
}

// RenderedFetcher reads pages through a Browser. It also exposes the
// disclosure capability of the landing page to the Crawler.
type RenderedFetcher struct {
	browser Browser
	cfg     RenderedFetcherConfig
	retrier *Retrier
	logger  *zap.Logger

	sleep          SleepFunc
	jitter         JitterFunc
	revealPauseMin time.Duration
	revealPauseMax time.Duration
}

func NewRenderedFetcher(browser Browser, cfg RenderedFetcherConfig, logger *zap.Logger) *RenderedFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = defaultPageLoadTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.RevealSelector == "" {
		cfg.RevealSelector = RevealSelector
	}
	return &RenderedFetcher{
		browser:        browser,
		cfg:            cfg,
		retrier:        NewRetrier(cfg.Retry, logger),
		logger:         logger,
		sleep:          sleepCtx,
		jitter:         randomJitter,
		revealPauseMin: defaultRevealPauseMin,
		revealPauseMax: defaultRevealPauseMax,
	}
}

// Render opens pageURL, lets asynchronous content settle and returns the
// rendered markup.
func (f *RenderedFetcher) Render(ctx context.Context, pageURL string) (string, error) {
	var markup string
	err := f.retrier.Do(ctx, pageURL, func(ctx context.Context) error {
		if err := f.open(ctx, pageURL); err != nil {
			return err
		}
		if err := f.sleep(ctx, f.cfg.SettleDelay); err != nil {
			return err
		}
		html, err := f.browser.OuterHTML(ctx)
		if err != nil {
			return &RenderError{Op: "read markup", URL: pageURL, Err: err}
		}
		markup = html
		return nil
	}, ClassifyRender)
	if err != nil {
		return "", err
	}
	return markup, nil
}

// Open navigates to pageURL without reading it.
func (f *RenderedFetcher) Open(ctx context.Context, pageURL string) error {
	return f.retrier.Do(ctx, pageURL, func(ctx context.Context) error {
		return f.open(ctx, pageURL)
	}, ClassifyRender)
}

func (f *RenderedFetcher) open(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, f.cfg.PageLoadTimeout)
	defer cancel()
	if err := f.browser.Navigate(navCtx, pageURL); err != nil {
		return &RenderError{Op: "navigate", URL: pageURL, Err: err}
	}
	if err := f.browser.Maximize(ctx); err != nil {
		return &RenderError{Op: "maximize", URL: pageURL, Err: err}
	}
	return nil
}

// RevealNextBatch clicks the disclosure control once. It returns false when
// the control is gone, which means every batch has been revealed.
func (f *RenderedFetcher) RevealNextBatch(ctx context.Context) (bool, error) {
	if err := f.sleep(ctx, f.jitter(f.revealPauseMin, f.revealPauseMax)); err != nil {
		return false, err
	}
	clicked, err := f.browser.ClickIfVisible(ctx, f.cfg.RevealSelector)
	if err != nil {
		return false, &RenderError{Op: "reveal", Err: err}
	}
	return clicked, nil
}

func (f *RenderedFetcher) CurrentMarkup(ctx context.Context) (string, error) {
	html, err := f.browser.OuterHTML(ctx)
	if err != nil {
		return "", &RenderError{Op: "read markup", Err: err}
	}
	return html, nil
}

func (f *RenderedFetcher) CurrentURL(ctx context.Context) (string, error) {
	loc, err := f.browser.Location(ctx)
	if err != nil {
		return "", &RenderError{Op: "read location", Err: err}
	}
	return loc, nil
}

func (f *RenderedFetcher) Close() error {
	return f.browser.Close()
}
