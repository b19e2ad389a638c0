package app

import (
	"context"
	"errors"
	"time"

	"duapune-scraper/internal/domain/listing"
	"duapune-scraper/internal/export"
	"duapune-scraper/internal/scraper"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Crawler interface {
	Run(ctx context.Context) (*listing.RecordSet, error)
	Stats() scraper.Stats
}

type FileExporter interface {
	Write(set *listing.RecordSet, startedAt time.Time) (string, error)
}

type RunStore interface {
	StartRun(ctx context.Context, runID uuid.UUID, baseURL string) error
	Save(ctx context.Context, runID uuid.UUID, set *listing.RecordSet) (int, error)
	FinishRun(ctx context.Context, runID uuid.UUID, stats export.RunStats, runErr error) error
}

// Result describes one finished run.
type Result struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Records   *listing.RecordSet
	Stats     scraper.Stats
	CSVPath   string
	Saved     int
	Elapsed   time.Duration
	// CrawlErr is the crawl's own failure; Records may still hold data.
	CrawlErr error
}

// Pipeline runs one crawl and hands whatever it collected to the sinks.
type Pipeline struct {
	BaseURL string
	Crawler Crawler
	CSV     FileExporter
	Store   RunStore
	Logger  *zap.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// Run crawls, then exports even a partial record set. The returned error joins
// the crawl failure with any sink failure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := p.now
	if now == nil {
		now = time.Now
	}
	newID := p.newID
	if newID == nil {
		newID = uuid.New
	}

	res := &Result{RunID: newID()}
	logger = logger.With(zap.Stringer("run_id", res.RunID))
	start := now()
	res.StartedAt = start

	if p.Store != nil {
		if err := p.Store.StartRun(ctx, res.RunID, p.BaseURL); err != nil {
			return res, err
		}
	}

	logger.Info("crawl started", zap.String("base_url", p.BaseURL))
	set, crawlErr := p.Crawler.Run(ctx)
	res.Records = set
	res.Stats = p.Crawler.Stats()
	res.CrawlErr = crawlErr
	if crawlErr != nil {
		logger.Error("crawl ended with error", zap.Error(crawlErr), zap.Int("records", set.Len()))
	}

	// Sinks still run after cancellation so collected data is not lost.
	sinkCtx := context.WithoutCancel(ctx)
	errs := []error{crawlErr}

	if p.CSV != nil && set.Len() > 0 {
		path, err := p.CSV.Write(set, start)
		if err != nil {
			logger.Error("csv export failed", zap.Error(err))
		}
		res.CSVPath = path
		errs = append(errs, err)
	}

	if p.Store != nil {
		n, err := p.Store.Save(sinkCtx, res.RunID, set)
		if err != nil {
			logger.Error("database save failed", zap.Error(err))
		}
		res.Saved = n
		errs = append(errs, err)

		stats := export.RunStats{Links: res.Stats.Links, Records: set.Len(), Skipped: res.Stats.Skipped}
		if err := p.Store.FinishRun(sinkCtx, res.RunID, stats, crawlErr); err != nil {
			logger.Error("finish run failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	res.Elapsed = now().Sub(start)
	logger.Info("run finished",
		zap.Int("records", set.Len()),
		zap.String("csv", res.CSVPath),
		zap.Int("saved", res.Saved),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, errors.Join(errs...)
}
