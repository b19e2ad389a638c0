package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duapune-scraper/internal/domain/listing"

	"go.uber.org/zap"
)

// State is a phase of a crawl run.
type State int

const (
	StateDisclosing State = iota
	StateDiscovering
	StateValidating
	StateExtracting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateDisclosing:
		return "disclosing"
	case StateDiscovering:
		return "discovering"
	case StateValidating:
		return "validating"
	case StateExtracting:
		return "extracting"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PageFetcher returns the raw markup of a listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Renderer is the browser-side capability the crawl needs: rendered page
// reads plus the progressive disclosure of the landing page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	Open(ctx context.Context, url string) error
	RevealNextBatch(ctx context.Context) (bool, error)
	CurrentMarkup(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
}

type CrawlerConfig struct {
	BaseURL         string
	PageURLTemplate string
	// MaxDiscoveryCycles bounds how often discovery restarts after finding no
	// links. 0 means no bound.
	MaxDiscoveryCycles int
}

// Stats summarizes a run.
type Stats struct {
	Cycles  int
	Pages   int
	Links   int
	Skipped int
	Records int
}

const (
	defaultNavigationPause = time.Second
	defaultItemPauseMin    = time.Second
	defaultItemPauseMax    = 2 * time.Second
	defaultItemSettle      = 500 * time.Millisecond
	defaultSkipPauseMin    = 2 * time.Second
	defaultSkipPauseMax    = 5 * time.Second
)

// Crawler sequences discovery and extraction for one site.
type Crawler struct {
	cfg      CrawlerConfig
	renderer Renderer
	fetcher  PageFetcher
	logger   *zap.Logger

	sleep        SleepFunc
	jitter       JitterFunc
	now          func() time.Time
	onTransition func(from, to State)

	navigationPause time.Duration
	itemPauseMin    time.Duration
	itemPauseMax    time.Duration
	itemSettle      time.Duration
	skipPauseMin    time.Duration
	skipPauseMax    time.Duration

	state State
	stats Stats
}

func NewCrawler(cfg CrawlerConfig, renderer Renderer, fetcher PageFetcher, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageURLTemplate == "" {
		cfg.PageURLTemplate = PageURLTemplate(cfg.BaseURL)
	}
	return &Crawler{
		cfg:             cfg,
		renderer:        renderer,
		fetcher:         fetcher,
		logger:          logger,
		sleep:           sleepCtx,
		jitter:          randomJitter,
		now:             time.Now,
		navigationPause: defaultNavigationPause,
		itemPauseMin:    defaultItemPauseMin,
		itemPauseMax:    defaultItemPauseMax,
		itemSettle:      defaultItemSettle,
		skipPauseMin:    defaultSkipPauseMin,
		skipPauseMax:    defaultSkipPauseMax,
	}
}

// OnTransition registers a callback invoked on every state change.
func (c *Crawler) OnTransition(fn func(from, to State)) {
	c.onTransition = fn
}

func (c *Crawler) Stats() Stats {
	return c.stats
}

func (c *Crawler) transition(to State) {
	from := c.state
	c.state = to
	c.logger.Debug("crawl state", zap.Stringer("from", from), zap.Stringer("to", to))
	if c.onTransition != nil {
		c.onTransition(from, to)
	}
}

// Run discovers every listing link and extracts one record per link. A listing
// that cannot be fetched is skipped. When ctx ends during extraction, the
// records gathered so far are returned with the context error.
func (c *Crawler) Run(ctx context.Context) (*listing.RecordSet, error) {
	c.state = StateDisclosing
	c.stats = Stats{}

	refs, err := c.discover(ctx)
	if err != nil {
		return listing.NewRecordSet(), err
	}

	c.transition(StateExtracting)
	records, err := c.extract(ctx, refs)

	set := listing.NewRecordSet(records...)
	c.stats.Records = set.Len()
	c.transition(StateDone)
	c.logger.Info("crawl finished",
		zap.Int("links", c.stats.Links),
		zap.Int("records", c.stats.Records),
		zap.Int("skipped", c.stats.Skipped),
		zap.Int("duplicates", len(records)-set.Len()),
	)
	return set, err
}

// discover runs Disclosing → Discovering → Validating until the page set
// yields at least one link.
func (c *Crawler) discover(ctx context.Context) ([]listing.Reference, error) {
	var pages []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch c.state {
		case StateDisclosing:
			c.stats.Cycles++
			if limit := c.cfg.MaxDiscoveryCycles; limit > 0 && c.stats.Cycles > limit {
				return nil, fmt.Errorf("%w: no listing links after %d discovery cycles", ErrExhaustedRetries, limit)
			}
			c.logger.Info("revealing listings", zap.Int("cycle", c.stats.Cycles), zap.String("url", c.cfg.BaseURL))
			if err := c.disclose(ctx); err != nil {
				if c.restartable(ctx, err) {
					c.logger.Warn("disclosure failed, restarting discovery", zap.Error(err))
					continue
				}
				return nil, err
			}
			c.transition(StateDiscovering)

		case StateDiscovering:
			p, err := c.pageSet(ctx)
			if err != nil {
				if c.restartable(ctx, err) {
					c.logger.Warn("page discovery failed, restarting discovery", zap.Error(err))
					c.transition(StateDisclosing)
					continue
				}
				return nil, err
			}
			pages = p
			c.stats.Pages = len(pages)
			c.transition(StateValidating)

		case StateValidating:
			refs, err := c.collectLinks(ctx, pages)
			if err != nil {
				if c.restartable(ctx, err) {
					c.logger.Warn("link collection failed, restarting discovery", zap.Error(err))
					c.transition(StateDisclosing)
					continue
				}
				return nil, err
			}
			if len(refs) == 0 {
				c.logger.Warn("no listing links extracted, repeating discovery", zap.Int("pages", len(pages)))
				c.transition(StateDisclosing)
				continue
			}
			c.stats.Links = len(refs)
			c.logger.Info("retrieved listing links", zap.Int("links", len(refs)), zap.Int("pages", len(pages)))
			return refs, nil

		default:
			return nil, fmt.Errorf("unexpected crawl state %s", c.state)
		}
	}
}

// restartable reports whether a discovery-phase failure should send the crawl
// back to Disclosing rather than end it. Only the caller's context decides
// cancellation; a page-load deadline inside a RenderError is transient.
func (c *Crawler) restartable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrPaginationStructure) || errors.Is(err, ErrExhaustedRetries) {
		return false
	}
	return IsTransient(err)
}

func (c *Crawler) disclose(ctx context.Context) error {
	if err := c.sleep(ctx, c.navigationPause); err != nil {
		return err
	}
	if err := c.renderer.Open(ctx, c.cfg.BaseURL); err != nil {
		return err
	}
	batches := 0
	for {
		more, err := c.renderer.RevealNextBatch(ctx)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		batches++
	}
	c.logger.Debug("all listings revealed", zap.Int("batches", batches))
	return nil
}

func (c *Crawler) pageSet(ctx context.Context) ([]string, error) {
	markup, err := c.renderer.CurrentMarkup(ctx)
	if err != nil {
		return nil, err
	}
	current, err := c.renderer.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	rest, err := DiscoverPages(markup, c.cfg.PageURLTemplate)
	if err != nil {
		return nil, err
	}
	return append([]string{current}, rest...), nil
}

func (c *Crawler) collectLinks(ctx context.Context, pages []string) ([]listing.Reference, error) {
	var refs []listing.Reference
	for _, page := range pages {
		if err := c.sleep(ctx, c.navigationPause); err != nil {
			return nil, err
		}
		markup, err := c.renderer.Render(ctx, page)
		if err != nil {
			return nil, err
		}
		found := ExtractLinks(markup, page)
		c.logger.Debug("page links", zap.String("page", page), zap.Int("links", len(found)))
		refs = append(refs, found...)
	}
	return refs, nil
}

func (c *Crawler) extract(ctx context.Context, refs []listing.Reference) ([]listing.Record, error) {
	records := make([]listing.Record, 0, len(refs))
	for i, ref := range refs {
		if err := c.sleep(ctx, c.jitter(c.itemPauseMin, c.itemPauseMax)); err != nil {
			return records, err
		}

		log := c.logger.With(zap.String("url", ref.URL), zap.Int("item", i+1), zap.Int("of", len(refs)))
		log.Info("parsing listing")
		capturedAt := c.now()

		markup, err := c.fetcher.Fetch(ctx, ref.URL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			c.stats.Skipped++
			log.Warn("listing unavailable, skipping", zap.Bool("transient", IsTransient(err)), zap.Error(err))
			if err := c.sleep(ctx, c.jitter(c.skipPauseMin, c.skipPauseMax)); err != nil {
				return records, err
			}
			continue
		}

		rec, missing := extractRecord(markup, ref.URL, capturedAt)
		for field, ferr := range missing {
			log.Debug("field unavailable", zap.String("field", field), zap.Error(ferr))
		}
		records = append(records, rec)

		if err := c.sleep(ctx, c.itemSettle); err != nil {
			return records, err
		}
	}
	return records, nil
}
