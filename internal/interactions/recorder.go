package interactions

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oakline/callbridge/pkg/logging"
)

// ErrNotFound is returned when no interaction exists for a call identifier.
var ErrNotFound = errors.New("interactions: record not found")

type upserter interface {
	Upsert(ctx context.Context, rec Record) (*Record, bool, error)
}

// Recorder wraps the store's upsert with bounded retries for transient
// persistence failures. A missing interaction record is a data-loss bug, so
// timeouts and connection errors are retried; anything the database calls a
// permanent error surfaces immediately with full context.
type Recorder struct {
	store       upserter
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
}

// NewRecorder builds a Recorder with three attempts and a 100ms base delay.
func NewRecorder(store upserter, logger *logging.Logger) *Recorder {
	if store == nil {
		panic("interactions: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{
		store:       store,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
	}
}

// WithMaxAttempts overrides the retry budget.
func (r *Recorder) WithMaxAttempts(n int) *Recorder {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

// WithBaseDelay overrides the first backoff delay.
func (r *Recorder) WithBaseDelay(d time.Duration) *Recorder {
	if d > 0 {
		r.baseDelay = d
	}
	return r
}

// Record upserts rec, retrying transient failures with exponential backoff.
// The bool result reports whether a new row was inserted.
func (r *Recorder) Record(ctx context.Context, rec Record) (*Record, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		out, inserted, err := r.store.Upsert(ctx, rec)
		if err == nil {
			return out, inserted, nil
		}
		if !isTransient(err) {
			r.logger.Error("interaction upsert failed permanently",
				"error", err,
				"call_id", rec.CallID,
				"org_id", rec.OrgID,
				"lead_id", rec.LeadID,
				"customer_id", rec.CustomerID,
			)
			return nil, false, err
		}
		lastErr = err
		if attempt == r.maxAttempts {
			break
		}
		delay := r.baseDelay * time.Duration(1<<(attempt-1))
		r.logger.Warn("interaction upsert retrying",
			"error", err,
			"call_id", rec.CallID,
			"attempt", attempt,
			"delay", delay.String(),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, false, fmt.Errorf("interactions: upsert exhausted %d attempts: %w", r.maxAttempts, lastErr)
}

// isTransient classifies persistence failures. Connection-class and
// serialization errors are worth retrying; constraint and data errors are
// not, because replaying the same statement cannot fix them.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001" || pgErr.Code == "40P01": // serialization, deadlock
			return true
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08": // connection exceptions
			return true
		case pgErr.Code == "57P03" || pgErr.Code == "53300": // cannot connect now, too many connections
			return true
		default:
			return false
		}
	}
	// Unclassified driver errors (closed pools, dial failures) are retried.
	return true
}
