package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Run is one completed import window, kept for audit and for choosing the
// next window after an outage.
type Run struct {
	ID          string
	OrgID       string
	WindowStart time.Time
	WindowEnd   time.Time
	Imported    int
	Updated     int
	Skipped     int
	Failed      int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// PgxPool is the subset of pgxpool.Pool the run store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRunStore persists import runs.
type PostgresRunStore struct {
	pool PgxPool
}

func NewPostgresRunStore(pool PgxPool) *PostgresRunStore {
	if pool == nil {
		panic("importer: pgx pool required")
	}
	return &PostgresRunStore{pool: pool}
}

func (s *PostgresRunStore) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_runs
			(id, org_id, window_start, window_end,
			 imported, updated, skipped, failed, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.OrgID, run.WindowStart, run.WindowEnd,
		run.Imported, run.Updated, run.Skipped, run.Failed,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("importer: save run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently finished run for the org, or nil when
// the org has never been imported.
func (s *PostgresRunStore) LatestRun(ctx context.Context, orgID string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, org_id, window_start, window_end,
		       imported, updated, skipped, failed, started_at, finished_at
		FROM import_runs
		WHERE org_id = $1
		ORDER BY finished_at DESC
		LIMIT 1`, orgID)
	var run Run
	err := row.Scan(&run.ID, &run.OrgID, &run.WindowStart, &run.WindowEnd,
		&run.Imported, &run.Updated, &run.Skipped, &run.Failed,
		&run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("importer: latest run: %w", err)
	}
	return &run, nil
}
