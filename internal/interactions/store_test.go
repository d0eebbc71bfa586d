package interactions

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func upsertRows(id string, inserted bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "lead_id", "customer_id", "duration_seconds", "recording_url",
		"transcription", "answered", "created_at", "updated_at", "inserted",
	}).AddRow(id, "lead-1", "", 184, "https://example.com/rec.mp3", "", true, now, now, inserted)
}

func TestUpsertInsertsNewRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("INSERT INTO call_interactions").
		WithArgs(pgxmock.AnyArg(), "org-1", "CA123", "lead-1", "", TypePhoneCall,
			184, "https://example.com/rec.mp3", "", true, "+15551234567", "+15550001111", pgxmock.AnyArg()).
		WillReturnRows(upsertRows("int-1", true))

	rec, inserted, err := store.Upsert(context.Background(), Record{
		OrgID:           "org-1",
		CallID:          "CA123",
		LeadID:          "lead-1",
		DurationSeconds: 184,
		RecordingURL:    "https://example.com/rec.mp3",
		Answered:        true,
		CallerNumber:    "+15551234567",
		TrackingNumber:  "+15550001111",
		OccurredAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !inserted {
		t.Error("expected inserted=true for a new call id")
	}
	if rec.ID != "int-1" || rec.EntityType() != "lead" {
		t.Errorf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertStubWithoutEnrichments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "lead_id", "customer_id", "duration_seconds", "recording_url",
		"transcription", "answered", "created_at", "updated_at", "inserted",
	}).AddRow("int-2", "", "", 0, "", "", false, now, now, true)

	// A ring-time stub carries no duration, recording, or transcription;
	// those bind as empty strings and the statement's NULLIF stores NULL.
	mock.ExpectQuery("INSERT INTO call_interactions").
		WithArgs(pgxmock.AnyArg(), "org-1", "CA123", "", "", TypePhoneCall,
			0, "", "", false, "+15551234567", "", pgxmock.AnyArg()).
		WillReturnRows(rows)

	rec, inserted, err := store.Upsert(context.Background(), Record{
		OrgID:        "org-1",
		CallID:       "CA123",
		CallerNumber: "+15551234567",
		OccurredAt:   now,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !inserted {
		t.Error("expected inserted=true for a new call id")
	}
	if rec.RecordingURL != "" || rec.Transcription != "" {
		t.Errorf("expected empty enrichments on a stub, got %+v", rec)
	}
}

func TestUpsertSecondDeliveryIsUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("INSERT INTO call_interactions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnRows(upsertRows("int-1", false))

	_, inserted, err := store.Upsert(context.Background(), Record{OrgID: "org-1", CallID: "CA789"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if inserted {
		t.Error("duplicate delivery must report inserted=false, not an error")
	}
}

func TestUpsertWrapsErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	boom := errors.New("broken pipe")
	mock.ExpectQuery("INSERT INTO call_interactions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnError(boom)

	_, _, err = store.Upsert(context.Background(), Record{CallID: "CA1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestGetByCallIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT (.+) FROM call_interactions").
		WithArgs("CA404").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := store.GetByCallID(context.Background(), "CA404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEntityTypeAndID(t *testing.T) {
	cases := []struct {
		rec      Record
		wantType string
		wantID   string
	}{
		{Record{LeadID: "lead-1"}, "lead", "lead-1"},
		{Record{CustomerID: "cust-1"}, "customer", "cust-1"},
		{Record{LeadID: "lead-1", CustomerID: "cust-1"}, "customer", "cust-1"},
		{Record{}, "", ""},
	}
	for _, tc := range cases {
		if got := tc.rec.EntityType(); got != tc.wantType {
			t.Errorf("EntityType(%+v) = %q, want %q", tc.rec, got, tc.wantType)
		}
		if got := tc.rec.EntityID(); got != tc.wantID {
			t.Errorf("EntityID(%+v) = %q, want %q", tc.rec, got, tc.wantID)
		}
	}
}
