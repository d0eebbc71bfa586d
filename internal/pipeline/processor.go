// Package pipeline runs a parsed call event through matching, recording,
// and fan-out. The webhook router and the historical importer share it so
// both paths produce identical records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oakline/callbridge/internal/callrail"
	"github.com/oakline/callbridge/internal/crm"
	"github.com/oakline/callbridge/internal/interactions"
	"github.com/oakline/callbridge/internal/matching"
	observemetrics "github.com/oakline/callbridge/internal/observability/metrics"
	"github.com/oakline/callbridge/internal/phone"
	"github.com/oakline/callbridge/internal/realtime"
	"github.com/oakline/callbridge/pkg/logging"
)

const dispatchTimeout = 3 * time.Second

type matcher interface {
	Match(ctx context.Context, orgID string, key phone.Normalized) (matching.Result, error)
}

type leadCreator interface {
	CreateLead(ctx context.Context, req *crm.CreateLeadRequest) (*crm.Lead, error)
}

type recorder interface {
	Record(ctx context.Context, rec interactions.Record) (*interactions.Record, bool, error)
}

type dispatcher interface {
	PublishInteraction(ctx context.Context, evt realtime.InteractionEvent) error
}

type leadNotifier interface {
	NotifyLeadCreated(ctx context.Context, lead *crm.Lead)
}

// Processor orchestrates one event end to end. All stages run synchronously
// in the caller's goroutine; concurrency exists only across events, and the
// interaction store's unique constraint arbitrates races on a call id.
type Processor struct {
	orgID      string
	matcher    matcher
	leads      leadCreator
	recorder   recorder
	dispatcher dispatcher
	notifier   leadNotifier
	logger     *logging.Logger
	metrics    *observemetrics.WebhookMetrics
}

// Config wires a Processor. Dispatcher, Notifier and Metrics are optional.
type Config struct {
	OrgID      string
	Matcher    matcher
	Leads      leadCreator
	Recorder   recorder
	Dispatcher dispatcher
	Notifier   leadNotifier
	Logger     *logging.Logger
	Metrics    *observemetrics.WebhookMetrics
}

// NewProcessor validates required collaborators and builds a Processor.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.OrgID == "" {
		return nil, errors.New("pipeline: org id required")
	}
	if cfg.Matcher == nil || cfg.Leads == nil || cfg.Recorder == nil {
		return nil, errors.New("pipeline: matcher, leads and recorder are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Processor{
		orgID:      cfg.OrgID,
		matcher:    cfg.Matcher,
		leads:      cfg.Leads,
		recorder:   cfg.Recorder,
		dispatcher: cfg.Dispatcher,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Outcome reports what processing one event did.
type Outcome struct {
	Skipped     bool
	Inserted    bool
	LeadCreated bool
	Match       matching.Result
	Record      *interactions.Record
}

type processOptions struct {
	dispatch bool
}

// Option adjusts processing for one event.
type Option func(*processOptions)

// WithoutDispatch suppresses real-time fan-out; the historical importer uses
// it so backfills don't flood live subscribers with stale events.
func WithoutDispatch() Option {
	return func(o *processOptions) {
		o.dispatch = false
	}
}

// Process matches, records, and dispatches one call event. A persistence
// failure escalates so the caller can signal the provider to retry;
// dispatch failures never do.
func (p *Processor) Process(ctx context.Context, evt callrail.CallEvent, opts ...Option) (*Outcome, error) {
	options := processOptions{dispatch: true}
	for _, opt := range opts {
		opt(&options)
	}

	key, keyErr := phone.Normalize(evt.CallerNumber)
	match := matching.Result{Kind: matching.NoMatch}
	if keyErr == nil {
		var err error
		match, err = p.matcher.Match(ctx, p.orgID, key)
		if err != nil {
			return nil, err
		}
	} else {
		p.logger.Warn("caller number not normalizable",
			"call_id", evt.CallID,
			"event_type", string(evt.Type),
		)
	}

	outcome := &Outcome{Match: match}
	rec := interactions.Record{
		OrgID:           p.orgID,
		CallID:          evt.CallID,
		InteractionType: interactions.TypePhoneCall,
		DurationSeconds: evt.DurationSeconds,
		RecordingURL:    evt.RecordingURL,
		Transcription:   evt.Transcription,
		Answered:        evt.Answered,
		CallerNumber:    evt.CallerNumber,
		TrackingNumber:  evt.TrackingNumber,
		OccurredAt:      evt.StartedAt,
	}
	if keyErr == nil {
		rec.CallerNumber = key.E164()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	var createdLead *crm.Lead
	switch match.Kind {
	case matching.MatchedCustomer:
		rec.CustomerID = match.CustomerID
	case matching.MatchedLead:
		rec.LeadID = match.LeadID
	case matching.NoMatch:
		if !evt.InboundOutcome() {
			// Routing diagnostics and unanswered calls from unknown numbers
			// warrant neither a lead nor an interaction record.
			outcome.Skipped = true
			return outcome, nil
		}
		if keyErr == nil {
			lead, err := p.leads.CreateLead(ctx, &crm.CreateLeadRequest{
				OrgID:  p.orgID,
				Name:   "Phone lead " + key.E164(),
				Phone:  key.E164(),
				Source: "phone_call",
			})
			if err != nil {
				return nil, fmt.Errorf("pipeline: create fallback lead: %w", err)
			}
			createdLead = lead
			rec.LeadID = lead.ID
			outcome.LeadCreated = true
		}
	}

	stored, inserted, err := p.recorder.Record(ctx, rec)
	if err != nil {
		return nil, err
	}
	outcome.Record = stored
	outcome.Inserted = inserted

	if options.dispatch && p.dispatcher != nil {
		// Decoupled from the request context: recording already succeeded
		// and the provider must not retry over a fan-out hiccup.
		dispatchCtx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		if err := p.dispatcher.PublishInteraction(dispatchCtx, realtime.InteractionEvent{
			InteractionID:   stored.ID,
			CallID:          stored.CallID,
			OrgID:           stored.OrgID,
			EntityType:      stored.EntityType(),
			EntityID:        stored.EntityID(),
			CallerNumber:    stored.CallerNumber,
			DurationSeconds: stored.DurationSeconds,
			Answered:        stored.Answered,
			RecordingURL:    stored.RecordingURL,
			OccurredAt:      stored.OccurredAt,
		}); err != nil {
			p.logger.Error("interaction fan-out failed", "error", err, "call_id", stored.CallID)
			p.metrics.ObserveDispatchFailure()
		}
		cancel()
	}

	if createdLead != nil && p.notifier != nil {
		p.notifier.NotifyLeadCreated(ctx, createdLead)
	}
	return outcome, nil
}
