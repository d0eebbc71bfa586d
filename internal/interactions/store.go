package interactions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists interaction records in Postgres. The unique constraint on
// call_id is the source of truth for idempotence: two concurrent deliveries
// for the same call identifier collapse into one row inside the database,
// with no application-level locking.
type Store struct {
	pool   PgxPool
	tracer trace.Tracer
}

// NewStore creates a Store over the given pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("interactions: pgx pool required")
	}
	return &Store{
		pool:   pool,
		tracer: otel.Tracer("callbridge.internal.interactions"),
	}
}

// Upsert inserts or updates the record for its call identifier in a single
// atomic statement. Later events merge in fields that only become available
// after the call completes: duration, recording, transcription. Fields the
// stub row already carries are never blanked by a sparser later event.
// The bool result reports whether a new row was inserted.
func (s *Store) Upsert(ctx context.Context, rec Record) (*Record, bool, error) {
	ctx, span := s.tracer.Start(ctx, "interactions.upsert")
	defer span.End()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.InteractionType == "" {
		rec.InteractionType = TypePhoneCall
	}
	query := `
		INSERT INTO call_interactions
			(id, org_id, call_id, lead_id, customer_id, interaction_type,
			 duration_seconds, recording_url, transcription, answered,
			 caller_number, tracking_number, occurred_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6, $7,
			NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12, $13)
		ON CONFLICT (call_id) DO UPDATE SET
			duration_seconds = GREATEST(call_interactions.duration_seconds, EXCLUDED.duration_seconds),
			recording_url = COALESCE(EXCLUDED.recording_url, call_interactions.recording_url),
			transcription = COALESCE(EXCLUDED.transcription, call_interactions.transcription),
			answered = call_interactions.answered OR EXCLUDED.answered,
			lead_id = COALESCE(call_interactions.lead_id, EXCLUDED.lead_id),
			customer_id = COALESCE(call_interactions.customer_id, EXCLUDED.customer_id),
			updated_at = now()
		RETURNING id, COALESCE(lead_id::text, ''), COALESCE(customer_id::text, ''),
			duration_seconds, COALESCE(recording_url, ''), COALESCE(transcription, ''),
			answered, created_at, updated_at, (xmax = 0) AS inserted
	`
	var (
		out      = rec
		inserted bool
	)
	err := s.pool.QueryRow(ctx, query,
		rec.ID,
		rec.OrgID,
		rec.CallID,
		rec.LeadID,
		rec.CustomerID,
		rec.InteractionType,
		rec.DurationSeconds,
		rec.RecordingURL,
		rec.Transcription,
		rec.Answered,
		rec.CallerNumber,
		rec.TrackingNumber,
		rec.OccurredAt,
	).Scan(
		&out.ID,
		&out.LeadID,
		&out.CustomerID,
		&out.DurationSeconds,
		&out.RecordingURL,
		&out.Transcription,
		&out.Answered,
		&out.CreatedAt,
		&out.UpdatedAt,
		&inserted,
	)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("interactions: upsert call %s: %w", rec.CallID, err)
	}
	return &out, inserted, nil
}

// GetByCallID fetches the record for a provider call identifier.
func (s *Store) GetByCallID(ctx context.Context, callID string) (*Record, error) {
	ctx, span := s.tracer.Start(ctx, "interactions.get_by_call_id")
	defer span.End()

	query := `
		SELECT id, org_id, call_id, COALESCE(lead_id::text, ''), COALESCE(customer_id::text, ''),
			interaction_type, duration_seconds, COALESCE(recording_url, ''),
			COALESCE(transcription, ''), answered, caller_number, tracking_number,
			occurred_at, created_at, updated_at
		FROM call_interactions
		WHERE call_id = $1
	`
	var rec Record
	err := s.pool.QueryRow(ctx, query, callID).Scan(
		&rec.ID,
		&rec.OrgID,
		&rec.CallID,
		&rec.LeadID,
		&rec.CustomerID,
		&rec.InteractionType,
		&rec.DurationSeconds,
		&rec.RecordingURL,
		&rec.Transcription,
		&rec.Answered,
		&rec.CallerNumber,
		&rec.TrackingNumber,
		&rec.OccurredAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("interactions: select by call id: %w", err)
	}
	return &rec, nil
}
