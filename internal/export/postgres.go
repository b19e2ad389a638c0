package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duapune-scraper/internal/database"
	"duapune-scraper/internal/domain/listing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// RunStats is what a finished crawl reports to crawl_runs.
type RunStats struct {
	Links   int
	Records int
	Skipped int
}

// PostgresSink keeps the latest snapshot of every listing, keyed by
// object_link, plus one crawl_runs row per run.
type PostgresSink struct {
	db          database.DB
	includeHTML bool
	logger      *zap.Logger
	now         func() time.Time
}

func NewPostgresSink(db database.DB, includeHTML bool, logger *zap.Logger) *PostgresSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSink{db: db, includeHTML: includeHTML, logger: logger, now: time.Now}
}

func (s *PostgresSink) StartRun(ctx context.Context, runID uuid.UUID, baseURL string) error {
	if s == nil || s.db == nil {
		return database.ErrNilDB
	}
	if runID == uuid.Nil {
		return errors.New("nil run id")
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO crawl_runs (id, base_url, status, started_at) VALUES ($1,$2,$3,$4)`,
		runID, strings.TrimSpace(baseURL), RunStatusRunning, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("start crawl run: %w", err)
	}
	return nil
}

// Save upserts every record of set in one transaction and returns the number
// of rows written.
func (s *PostgresSink) Save(ctx context.Context, runID uuid.UUID, set *listing.RecordSet) (int, error) {
	if s == nil || s.db == nil {
		return 0, database.ErrNilDB
	}
	records := set.Records()
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	written := 0
	for _, r := range records {
		html := ""
		if s.includeHTML {
			html = r.PageHTML
		}
		n, err := tx.Exec(ctx,
			`INSERT INTO listings (
				object_link, run_id, scraping_time, job_title, company_name, object_id, job_city,
				expiration_date, job_description, job_category, contract_type,
				experience_requirement, monthly_salary, cl_requirement, photo_requirement,
				page_html, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			ON CONFLICT (object_link) DO UPDATE SET
				run_id = EXCLUDED.run_id,
				scraping_time = EXCLUDED.scraping_time,
				job_title = EXCLUDED.job_title,
				company_name = EXCLUDED.company_name,
				object_id = EXCLUDED.object_id,
				job_city = EXCLUDED.job_city,
				expiration_date = EXCLUDED.expiration_date,
				job_description = EXCLUDED.job_description,
				job_category = EXCLUDED.job_category,
				contract_type = EXCLUDED.contract_type,
				experience_requirement = EXCLUDED.experience_requirement,
				monthly_salary = EXCLUDED.monthly_salary,
				cl_requirement = EXCLUDED.cl_requirement,
				photo_requirement = EXCLUDED.photo_requirement,
				page_html = EXCLUDED.page_html,
				updated_at = EXCLUDED.updated_at`,
			r.ObjectLink,
			runID,
			r.ScrapingTime.UTC(),
			r.JobTitle,
			r.CompanyName,
			r.ObjectID,
			r.JobCity,
			r.ExpirationDate,
			r.JobDescription,
			r.JobCategory,
			r.ContractType,
			r.ExperienceRequirement,
			r.MonthlySalary,
			r.CLRequirement,
			r.PhotoRequirement,
			html,
			s.now().UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert listing %s: %w", r.ObjectLink, err)
		}
		written += int(n)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	s.logger.Info("listings saved", zap.Stringer("run_id", runID), zap.Int("rows", written))
	return written, nil
}

// FinishRun closes the crawl_runs row. runErr decides between the completed,
// partial and failed statuses.
func (s *PostgresSink) FinishRun(ctx context.Context, runID uuid.UUID, stats RunStats, runErr error) error {
	if s == nil || s.db == nil {
		return database.ErrNilDB
	}
	if runID == uuid.Nil {
		return nil
	}
	var msg any
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.db.Exec(ctx,
		`UPDATE crawl_runs SET finished_at = $2, status = $3, links = $4, records = $5, skipped = $6, error = $7 WHERE id = $1`,
		runID, s.now().UTC(), RunStatus(stats, runErr), stats.Links, stats.Records, stats.Skipped, msg,
	)
	if err != nil {
		return fmt.Errorf("finish crawl run: %w", err)
	}
	return nil
}

func RunStatus(stats RunStats, runErr error) string {
	switch {
	case runErr == nil:
		return RunStatusCompleted
	case stats.Records > 0:
		return RunStatusPartial
	default:
		return RunStatusFailed
	}
}
