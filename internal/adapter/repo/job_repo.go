package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"videomorph/internal/domain"
)

const uniqueViolation = "23505"

const jobColumns = `id, source_url, source_name, style, intensity, duration,
enhance_quality, stabilize, resolution, status, result_url, failure_reason,
dispatch_id, created_at, updated_at, completed_at`

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. The
// terminal transition is a single conditional UPDATE guarded on the row
// still being non-terminal, which is the compare-and-set the reconciler
// relies on across service instances. All timestamps come from the
// application clock, matching the created_at written at insert.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the jobs table and its indexes if they do not exist.
func (r *JobRepositoryPG) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	source_url      TEXT NOT NULL,
	source_name     TEXT NOT NULL DEFAULT '',
	style           TEXT NOT NULL,
	intensity       INT NOT NULL,
	duration        INT NOT NULL,
	enhance_quality BOOLEAN NOT NULL DEFAULT FALSE,
	stabilize       BOOLEAN NOT NULL DEFAULT FALSE,
	resolution      TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	result_url      TEXT NOT NULL DEFAULT '',
	failure_reason  TEXT NOT NULL DEFAULT '',
	dispatch_id     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_jobs_status       ON jobs (status);
CREATE INDEX IF NOT EXISTS idx_jobs_completed_at ON jobs (completed_at DESC);
`)
	if err != nil {
		return fmt.Errorf("migrate jobs: %w", err)
	}
	return nil
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.JobRecord) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO jobs (id, source_url, source_name, style, intensity, duration,
	enhance_quality, stabilize, resolution, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11);
`,
		job.ID,
		job.SourceURL,
		job.SourceName,
		job.Params.Style,
		job.Params.Intensity,
		job.Params.Duration,
		job.Params.EnhanceQuality,
		job.Params.Stabilize,
		job.Params.Resolution,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("job %s: %w", job.ID, domain.ErrDuplicateID)
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get fetches a job by its identifier.
func (r *JobRepositoryPG) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// MarkProcessing transitions a pending record to processing.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, id, dispatchID string) (*domain.JobRecord, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE jobs
SET status = $2, dispatch_id = $3, updated_at = $4
WHERE id = $1 AND status = $5
RETURNING `+jobColumns+`;`,
		id, domain.StatusProcessing, dispatchID, r.now(), domain.StatusPending,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.conflictOrMissing(ctx, id)
		}
		return nil, fmt.Errorf("mark processing %s: %w", id, err)
	}
	return job, nil
}

// CommitTerminal conditionally applies the outcome. The guard on
// non-terminal status is what makes exactly one terminal transition win.
func (r *JobRepositoryPG) CommitTerminal(ctx context.Context, id string, out domain.Outcome) (*domain.JobRecord, error) {
	status := out.TerminalStatus()
	// A result url belongs to completed records only, a failure reason to
	// failed ones; mismatched outcome fields are dropped.
	resultURL, failureReason := out.ResultURL, out.Reason
	if status == domain.StatusCompleted {
		failureReason = ""
	} else {
		resultURL = ""
	}
	row := r.pool.QueryRow(ctx, `
UPDATE jobs
SET status = $2,
    result_url = $3,
    failure_reason = $4,
    updated_at = $5,
    completed_at = CASE WHEN $2 = $6 THEN $5 ELSE completed_at END
WHERE id = $1 AND status IN ($7, $8)
RETURNING `+jobColumns+`;`,
		id, status, resultURL, failureReason, r.now(),
		domain.StatusCompleted, domain.StatusPending, domain.StatusProcessing,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.conflictOrMissing(ctx, id)
		}
		return nil, fmt.Errorf("commit terminal %s: %w", id, err)
	}
	return job, nil
}

// conflictOrMissing distinguishes a lost conditional write from an
// unknown id after a zero-row UPDATE.
func (r *JobRepositoryPG) conflictOrMissing(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("job %s: %w", id, domain.ErrStaleWrite)
}

// List returns history records, completed-first by completion time.
func (r *JobRepositoryPG) List(ctx context.Context, f domain.ListFilter) ([]domain.JobRecord, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, normalizeLimit(f.Limit))
	query += fmt.Sprintf(" ORDER BY completed_at DESC NULLS LAST, created_at DESC LIMIT $%d;", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListNonTerminal returns jobs still awaiting an outcome, oldest first.
func (r *JobRepositoryPG) ListNonTerminal(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status IN ($1, $2)
ORDER BY created_at ASC
LIMIT $3;`,
		domain.StatusPending, domain.StatusProcessing, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list non-terminal jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListStale returns non-terminal jobs untouched for longer than age.
func (r *JobRepositoryPG) ListStale(ctx context.Context, age time.Duration, limit int) ([]domain.JobRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status IN ($1, $2) AND updated_at < $3
ORDER BY updated_at ASC
LIMIT $4;`,
		domain.StatusPending, domain.StatusProcessing, r.now().Add(-age), normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 10
	}
	return limit
}

func scanJob(row pgx.Row) (*domain.JobRecord, error) {
	var job domain.JobRecord
	if err := row.Scan(
		&job.ID,
		&job.SourceURL,
		&job.SourceName,
		&job.Params.Style,
		&job.Params.Intensity,
		&job.Params.Duration,
		&job.Params.EnhanceQuality,
		&job.Params.Stabilize,
		&job.Params.Resolution,
		&job.Status,
		&job.ResultURL,
		&job.FailureReason,
		&job.DispatchID,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.JobRecord, error) {
	var jobs []domain.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
