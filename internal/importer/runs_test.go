package importer

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestSaveRunInserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewPostgresRunStore(mock)

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	mock.ExpectExec("INSERT INTO import_runs").
		WithArgs(pgxmock.AnyArg(), "org-1", start, end, 120, 14, 3, 1,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.SaveRun(context.Background(), Run{
		OrgID:       "org-1",
		WindowStart: start,
		WindowEnd:   end,
		Imported:    120,
		Updated:     14,
		Skipped:     3,
		Failed:      1,
		StartedAt:   time.Now(),
		FinishedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestRunNoHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewPostgresRunStore(mock)

	mock.ExpectQuery("SELECT (.+) FROM import_runs").
		WithArgs("org-1").
		WillReturnError(pgx.ErrNoRows)

	run, err := store.LatestRun(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil run for an org with no history, got %+v", run)
	}
}
