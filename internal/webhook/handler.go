// Package webhook exposes the HTTP surface CallRail delivers call lifecycle
// events to. One route per event type; all four funnel into the shared
// processing pipeline.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/oakline/callbridge/internal/callrail"
	observemetrics "github.com/oakline/callbridge/internal/observability/metrics"
	"github.com/oakline/callbridge/internal/pipeline"
	"github.com/oakline/callbridge/pkg/logging"
)

// maxBodyBytes caps webhook payload reads. CallRail payloads are a few KB;
// anything near the cap is not a call event.
const maxBodyBytes = 1 << 20

type eventProcessor interface {
	Process(ctx context.Context, evt callrail.CallEvent, opts ...pipeline.Option) (*pipeline.Outcome, error)
}

type signatureVerifier interface {
	Verify(body []byte, signature string) bool
}

// Handler terminates CallRail webhook deliveries.
type Handler struct {
	verifier  signatureVerifier
	processor eventProcessor
	logger    *logging.Logger
	metrics   *observemetrics.WebhookMetrics
}

type Config struct {
	Verifier  signatureVerifier
	Processor eventProcessor
	Logger    *logging.Logger
	Metrics   *observemetrics.WebhookMetrics
}

func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("webhook: verifier required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("webhook: processor required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		verifier:  cfg.Verifier,
		processor: cfg.Processor,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// HandlePreCall receives the event CallRail sends when a call starts ringing.
func (h *Handler) HandlePreCall(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, callrail.EventPreCall)
}

// HandlePostCall receives the event sent after a call completes.
func (h *Handler) HandlePostCall(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, callrail.EventPostCall)
}

// HandleCallModified receives late enrichments such as transcriptions.
func (h *Handler) HandleCallModified(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, callrail.EventCallModified)
}

// HandleRoutingComplete receives call flow routing diagnostics.
func (h *Handler) HandleRoutingComplete(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, callrail.EventRoutingComplete)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, eventType callrail.EventType) {
	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !h.verifier.Verify(body, r.Header.Get(callrail.SignatureHeader)) {
		h.logger.Warn("rejected webhook with invalid signature",
			"event_type", string(eventType),
			"remote_addr", r.RemoteAddr,
		)
		h.metrics.ObserveReceived(string(eventType), "rejected")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	evt, err := callrail.ParseEvent(eventType, body)
	if err != nil {
		h.logger.Warn("unparseable webhook payload", "error", err, "event_type", string(eventType))
		h.metrics.ObserveReceived(string(eventType), "invalid")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	outcome, err := h.processor.Process(r.Context(), evt)
	if err != nil {
		// 500 tells CallRail to retry the delivery; the upsert keeps the
		// retry harmless.
		h.logger.Error("webhook processing failed", "error", err, "call_id", evt.CallID, "event_type", string(eventType))
		h.metrics.ObserveReceived(string(eventType), "error")
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}
	if outcome.LeadCreated {
		h.metrics.ObserveLeadCreated()
	}
	h.metrics.ObserveReceived(string(eventType), "ok")
	h.metrics.ObserveLatency(string(eventType), time.Since(start).Seconds())
	w.WriteHeader(http.StatusOK)
}
