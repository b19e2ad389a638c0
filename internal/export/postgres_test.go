package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"duapune-scraper/internal/database/dbtest"
	"duapune-scraper/internal/domain/listing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(includeHTML bool) (*PostgresSink, *dbtest.FakeDB) {
	db := dbtest.New()
	s := NewPostgresSink(db, includeHTML, nil)
	s.now = func() time.Time { return testTime }
	return s, db
}

func TestPostgresSink_RunLifecycle(t *testing.T) {
	s, db := newTestSink(true)
	ctx := context.Background()
	runID := uuid.New()

	require.NoError(t, s.StartRun(ctx, runID, " https://www.duapune.com/ "))
	n, err := s.Save(ctx, runID, testSet())
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, runID, RunStats{Links: 3, Records: 2, Skipped: 1}, nil))

	assert.Equal(t, 2, n)

	starts := db.Matching("insert into crawl_runs")
	require.Len(t, starts, 1)
	assert.Equal(t, runID, starts[0].Args[0])
	assert.Equal(t, "https://www.duapune.com/", starts[0].Args[1])
	assert.Equal(t, RunStatusRunning, starts[0].Args[2])

	upserts := db.Matching("insert into listings")
	require.Len(t, upserts, 2)
	for _, u := range upserts {
		assert.True(t, u.InTx)
		assert.Contains(t, dbtest.Normalize(u.Query), "on conflict (object_link) do update")
	}
	assert.Equal(t, "https://www.duapune.test/job/a", upserts[0].Args[0])
	assert.Equal(t, runID, upserts[0].Args[1])
	assert.Equal(t, `Zhvillues "Senior"; Go`, upserts[0].Args[3])
	assert.Equal(t, "<html></html>", upserts[0].Args[15])
	assert.Equal(t, 1, db.Commits)

	finishes := db.Matching("update crawl_runs")
	require.Len(t, finishes, 1)
	assert.Equal(t, RunStatusCompleted, finishes[0].Args[2])
	assert.Equal(t, 2, finishes[0].Args[4])
	assert.Nil(t, finishes[0].Args[6])
}

func TestPostgresSink_SaveWithoutHTML(t *testing.T) {
	s, db := newTestSink(false)

	_, err := s.Save(context.Background(), uuid.New(), testSet())

	require.NoError(t, err)
	upserts := db.Matching("insert into listings")
	require.Len(t, upserts, 2)
	assert.Equal(t, "", upserts[0].Args[15])
}

func TestPostgresSink_SaveFailureRollsBack(t *testing.T) {
	s, db := newTestSink(true)
	db.Errs["insert into listings"] = errors.New("connection reset")

	n, err := s.Save(context.Background(), uuid.New(), testSet())

	require.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, db.Commits)
	assert.Equal(t, 1, db.Rollbacks)
}

func TestPostgresSink_SaveEmptySetIsNoop(t *testing.T) {
	s, db := newTestSink(true)

	n, err := s.Save(context.Background(), uuid.New(), listing.NewRecordSet())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, db.Calls)
}

func TestPostgresSink_FinishRunRecordsError(t *testing.T) {
	s, db := newTestSink(true)
	runID := uuid.New()

	require.NoError(t, s.FinishRun(context.Background(), runID, RunStats{Records: 4}, errors.New("boom")))

	finishes := db.Matching("update crawl_runs")
	require.Len(t, finishes, 1)
	assert.Equal(t, RunStatusPartial, finishes[0].Args[2])
	assert.Equal(t, "boom", finishes[0].Args[6])
}

func TestRunStatus(t *testing.T) {
	assert.Equal(t, RunStatusCompleted, RunStatus(RunStats{}, nil))
	assert.Equal(t, RunStatusPartial, RunStatus(RunStats{Records: 1}, errors.New("x")))
	assert.Equal(t, RunStatusFailed, RunStatus(RunStats{}, errors.New("x")))
}

func TestPostgresSink_StartRunRejectsNilID(t *testing.T) {
	s, _ := newTestSink(true)
	assert.Error(t, s.StartRun(context.Background(), uuid.Nil, "https://www.duapune.com/"))
}
