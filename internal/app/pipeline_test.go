package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"duapune-scraper/internal/config"
	"duapune-scraper/internal/domain/listing"
	"duapune-scraper/internal/export"
	"duapune-scraper/internal/scraper"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCrawler struct {
	set   *listing.RecordSet
	err   error
	stats scraper.Stats
}

func (c *fakeCrawler) Run(context.Context) (*listing.RecordSet, error) { return c.set, c.err }
func (c *fakeCrawler) Stats() scraper.Stats                            { return c.stats }

type fakeCSV struct {
	written   *listing.RecordSet
	startedAt time.Time
	err       error
}

func (f *fakeCSV) Write(set *listing.RecordSet, startedAt time.Time) (string, error) {
	f.written = set
	f.startedAt = startedAt
	if f.err != nil {
		return "", f.err
	}
	return "data/20240501_093000_duapune.csv", nil
}

type fakeStore struct {
	started   uuid.UUID
	saved     *listing.RecordSet
	finished  export.RunStats
	finishErr error
	saveErr   error
	saveCtx   context.Context
}

func (s *fakeStore) StartRun(_ context.Context, runID uuid.UUID, _ string) error {
	s.started = runID
	return nil
}

func (s *fakeStore) Save(ctx context.Context, _ uuid.UUID, set *listing.RecordSet) (int, error) {
	s.saved = set
	s.saveCtx = ctx
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	return set.Len(), nil
}

func (s *fakeStore) FinishRun(_ context.Context, _ uuid.UUID, stats export.RunStats, runErr error) error {
	s.finished = stats
	s.finishErr = runErr
	return nil
}

var fixedRunID = uuid.MustParse("7d3c4a0e-2f1b-4c55-9a7e-0b1f2c3d4e5f")

func testPipeline(c Crawler, csv FileExporter, store RunStore) *Pipeline {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	return &Pipeline{
		BaseURL: "https://www.duapune.com/",
		Crawler: c,
		CSV:     csv,
		Store:   store,
		now: func() time.Time {
			calls++
			return start.Add(time.Duration(calls-1) * time.Minute)
		},
		newID: func() uuid.UUID { return fixedRunID },
	}
}

func twoRecords() *listing.RecordSet {
	return listing.NewRecordSet(
		listing.Record{ObjectLink: "https://www.duapune.com/job/a"},
		listing.Record{ObjectLink: "https://www.duapune.com/job/b"},
	)
}

func TestPipeline_Run(t *testing.T) {
	crawler := &fakeCrawler{set: twoRecords(), stats: scraper.Stats{Links: 3, Skipped: 1, Records: 2}}
	csv, store := &fakeCSV{}, &fakeStore{}

	res, err := testPipeline(crawler, csv, store).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fixedRunID, res.RunID)
	assert.Equal(t, fixedRunID, store.started)
	assert.Same(t, crawler.set, csv.written)
	assert.Same(t, crawler.set, store.saved)
	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, "data/20240501_093000_duapune.csv", res.CSVPath)
	assert.Equal(t, export.RunStats{Links: 3, Records: 2, Skipped: 1}, store.finished)
	assert.Equal(t, time.Minute, res.Elapsed)
}

func TestPipeline_CSVIsNamedAfterRunStart(t *testing.T) {
	crawler := &fakeCrawler{set: twoRecords()}
	csv := &fakeCSV{}

	res, err := testPipeline(crawler, csv, nil).Run(context.Background())

	require.NoError(t, err)
	want := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, res.StartedAt)
	assert.Equal(t, want, csv.startedAt)
}

func TestPipeline_PartialResultsAreStillExported(t *testing.T) {
	crawlErr := errors.New("fetch listing: broken pipe")
	crawler := &fakeCrawler{set: twoRecords(), err: crawlErr}
	csv, store := &fakeCSV{}, &fakeStore{}

	res, err := testPipeline(crawler, csv, store).Run(context.Background())

	require.ErrorIs(t, err, crawlErr)
	assert.Same(t, crawlErr, res.CrawlErr)
	assert.Equal(t, 2, res.Records.Len())
	assert.NotNil(t, csv.written)
	assert.Equal(t, 2, res.Saved)
	assert.Same(t, crawlErr, store.finishErr)
}

func TestPipeline_SinksOutliveCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	crawler := &fakeCrawler{set: twoRecords(), err: context.Canceled}
	store := &fakeStore{}

	_, err := testPipeline(crawler, nil, store).Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, store.saveCtx)
	assert.NoError(t, store.saveCtx.Err())
}

func TestPipeline_EmptySetSkipsCSV(t *testing.T) {
	crawler := &fakeCrawler{set: listing.NewRecordSet(), err: scraper.ErrPaginationStructure}
	csv := &fakeCSV{}

	res, err := testPipeline(crawler, csv, nil).Run(context.Background())

	require.ErrorIs(t, err, scraper.ErrPaginationStructure)
	assert.Nil(t, csv.written)
	assert.Empty(t, res.CSVPath)
}

func TestPipeline_SinkFailuresAreReported(t *testing.T) {
	saveErr := errors.New("db down")
	csvErr := errors.New("disk full")
	crawler := &fakeCrawler{set: twoRecords()}

	_, err := testPipeline(crawler, &fakeCSV{err: csvErr}, &fakeStore{saveErr: saveErr}).Run(context.Background())

	assert.ErrorIs(t, err, saveErr)
	assert.ErrorIs(t, err, csvErr)
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy(config.ScraperConfig{Robust: false, MaxFetchRetries: 4})
	assert.False(t, p.Robust)
	assert.Equal(t, uint64(4), p.MaxRetries)
	assert.Equal(t, scraper.DefaultRetryPolicy().TimeoutWait, p.TimeoutWait)
}

func TestContainer_PipelineWithoutSinks(t *testing.T) {
	c := &Container{Config: config.Config{Scraper: config.ScraperConfig{BaseURL: "https://www.duapune.com/"}}}
	p := c.Pipeline()
	assert.Nil(t, p.CSV)
	assert.Nil(t, p.Store)
	assert.Equal(t, "https://www.duapune.com/", p.BaseURL)
	assert.NoError(t, c.Close())
}
