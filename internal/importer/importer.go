// Package importer backfills historical calls from the CallRail API through
// the same pipeline the live webhooks use, so imported records are
// indistinguishable from ones recorded in real time.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oakline/callbridge/internal/callrail"
	observemetrics "github.com/oakline/callbridge/internal/observability/metrics"
	"github.com/oakline/callbridge/internal/pipeline"
	"github.com/oakline/callbridge/pkg/logging"
)

type callLister interface {
	ListCalls(ctx context.Context, req callrail.ListCallsRequest) (*callrail.CallsPage, error)
}

type eventProcessor interface {
	Process(ctx context.Context, evt callrail.CallEvent, opts ...pipeline.Option) (*pipeline.Outcome, error)
}

// RunStore persists per-run bookkeeping. Optional; a nil store skips it.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error
}

// Importer pages through the provider's call history and replays each call
// as a synthesized post-call event.
type Importer struct {
	client       callLister
	processor    eventProcessor
	runs         RunStore
	logger       *logging.Logger
	metrics      *observemetrics.WebhookMetrics
	orgID        string
	pageSize     int
	pageDelay    time.Duration
	maxPages     int
	skipDispatch bool
}

type Config struct {
	Client    callLister
	Processor eventProcessor
	Runs      RunStore
	Logger    *logging.Logger
	Metrics   *observemetrics.WebhookMetrics
	OrgID     string

	PageSize  int           // calls per page, default 100
	PageDelay time.Duration // pause between pages, default 500ms
	MaxPages  int           // hard stop, default 200

	// SkipDispatch keeps backfilled history off the live channels.
	SkipDispatch bool
}

func New(cfg Config) (*Importer, error) {
	if cfg.Client == nil {
		return nil, errors.New("importer: client required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("importer: processor required")
	}
	if cfg.OrgID == "" {
		return nil, errors.New("importer: org id required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 500 * time.Millisecond
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	return &Importer{
		client:       cfg.Client,
		processor:    cfg.Processor,
		runs:         cfg.Runs,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		orgID:        cfg.OrgID,
		pageSize:     cfg.PageSize,
		pageDelay:    cfg.PageDelay,
		maxPages:     cfg.MaxPages,
		skipDispatch: cfg.SkipDispatch,
	}, nil
}

// Summary reports what one import run did. Updated counts calls whose
// records already existed; re-running a window is safe and mostly lands
// there.
type Summary struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Pages       int       `json:"pages"`
	Imported    int       `json:"imported"`
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	LeadsNew    int       `json:"leads_created"`
}

// Run imports all calls in [start, end]. A failed page or call is logged
// and counted but never aborts the run; only an unreachable first page or a
// cancelled context does.
func (i *Importer) Run(ctx context.Context, start, end time.Time) (*Summary, error) {
	startedAt := time.Now().UTC()
	summary := &Summary{WindowStart: start, WindowEnd: end}

	totalPages := 1
	for page := 1; page <= totalPages && page <= i.maxPages; page++ {
		if page > 1 {
			if err := i.pause(ctx); err != nil {
				return summary, err
			}
		}
		resp, err := i.client.ListCalls(ctx, callrail.ListCallsRequest{
			StartDate: start,
			EndDate:   end,
			Page:      page,
			PerPage:   i.pageSize,
		})
		if err != nil {
			if page == 1 {
				return summary, fmt.Errorf("importer: list calls: %w", err)
			}
			i.logger.Error("page fetch failed, continuing", "error", err, "page", page)
			summary.Failed++
			i.metrics.ObserveImportCall("page_failed")
			continue
		}
		summary.Pages++
		totalPages = resp.TotalPages
		for _, call := range resp.Calls {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			i.processCall(ctx, call, summary)
		}
	}
	if totalPages > i.maxPages {
		i.logger.Warn("import stopped at page cap",
			"max_pages", i.maxPages,
			"total_pages", totalPages,
		)
	}

	if i.runs != nil {
		run := Run{
			OrgID:       i.orgID,
			WindowStart: start,
			WindowEnd:   end,
			Imported:    summary.Imported,
			Updated:     summary.Updated,
			Skipped:     summary.Skipped,
			Failed:      summary.Failed,
			StartedAt:   startedAt,
			FinishedAt:  time.Now().UTC(),
		}
		if err := i.runs.SaveRun(ctx, run); err != nil {
			i.logger.Error("failed to save import run", "error", err)
		}
	}

	i.logger.Info("import complete",
		"pages", summary.Pages,
		"imported", summary.Imported,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (i *Importer) processCall(ctx context.Context, call callrail.Call, summary *Summary) {
	opts := []pipeline.Option{}
	if i.skipDispatch {
		opts = append(opts, pipeline.WithoutDispatch())
	}
	outcome, err := i.processor.Process(ctx, call.Event(), opts...)
	if err != nil {
		i.logger.Error("historical call failed", "error", err, "call_id", call.ID)
		summary.Failed++
		i.metrics.ObserveImportCall("failed")
		return
	}
	switch {
	case outcome.Skipped:
		summary.Skipped++
		i.metrics.ObserveImportCall("skipped")
	case outcome.Inserted:
		summary.Imported++
		i.metrics.ObserveImportCall("imported")
	default:
		summary.Updated++
		i.metrics.ObserveImportCall("updated")
	}
	if outcome.LeadCreated {
		summary.LeadsNew++
	}
}

func (i *Importer) pause(ctx context.Context) error {
	timer := time.NewTimer(i.pageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
