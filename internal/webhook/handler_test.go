package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oakline/callbridge/internal/callrail"
	"github.com/oakline/callbridge/internal/pipeline"
)

const testSecret = "webhook-secret"

type stubProcessor struct {
	events  []callrail.CallEvent
	outcome *pipeline.Outcome
	err     error
}

func (p *stubProcessor) Process(_ context.Context, evt callrail.CallEvent, _ ...pipeline.Option) (*pipeline.Outcome, error) {
	p.events = append(p.events, evt)
	if p.err != nil {
		return nil, p.err
	}
	if p.outcome != nil {
		return p.outcome, nil
	}
	return &pipeline.Outcome{}, nil
}

func newTestHandler(t *testing.T, proc *stubProcessor) *Handler {
	t.Helper()
	h, err := NewHandler(Config{
		Verifier:  callrail.NewVerifier(testSecret),
		Processor: proc,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func deliver(h http.HandlerFunc, payload []byte, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/callrail/post-call", bytes.NewReader(payload))
	if sign {
		req.Header.Set(callrail.SignatureHeader, callrail.Sign(testSecret, payload))
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHandlerAcceptsSignedEvent(t *testing.T) {
	proc := &stubProcessor{}
	h := newTestHandler(t, proc)

	payload := []byte(`{"call_id":"CA123","caller_number":"5551234567","duration":"42","answered":true}`)
	w := deliver(h.HandlePostCall, payload, true)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(proc.events) != 1 {
		t.Fatalf("expected 1 processed event, got %d", len(proc.events))
	}
	evt := proc.events[0]
	if evt.Type != callrail.EventPostCall {
		t.Fatalf("expected post_call, got %s", evt.Type)
	}
	if evt.CallID != "CA123" || evt.DurationSeconds != 42 || !evt.Answered {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestHandlerRejectsMissingSignature(t *testing.T) {
	proc := &stubProcessor{}
	h := newTestHandler(t, proc)

	payload := []byte(`{"call_id":"CA123"}`)
	w := deliver(h.HandlePreCall, payload, false)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(proc.events) != 0 {
		t.Fatal("unverified payload must never reach the pipeline")
	}
}

func TestHandlerRejectsTamperedBody(t *testing.T) {
	proc := &stubProcessor{}
	h := newTestHandler(t, proc)

	signedBody := []byte(`{"call_id":"CA123"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/callrail/pre-call", bytes.NewReader([]byte(`{"call_id":"CA999"}`)))
	req.Header.Set(callrail.SignatureHeader, callrail.Sign(testSecret, signedBody))
	w := httptest.NewRecorder()
	h.HandlePreCall(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(proc.events) != 0 {
		t.Fatal("tampered payload must never reach the pipeline")
	}
}

func TestHandlerRejectsPayloadWithoutCallID(t *testing.T) {
	proc := &stubProcessor{}
	h := newTestHandler(t, proc)

	payload := []byte(`{"caller_number":"5551234567"}`)
	w := deliver(h.HandlePostCall, payload, true)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(proc.events) != 0 {
		t.Fatal("payload without a call id must not be processed")
	}
}

func TestHandlerRejectsMalformedJSON(t *testing.T) {
	h := newTestHandler(t, &stubProcessor{})

	payload := []byte(`{"call_id":`)
	w := deliver(h.HandleCallModified, payload, true)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlerReturns500OnProcessingFailure(t *testing.T) {
	proc := &stubProcessor{err: errors.New("db unavailable")}
	h := newTestHandler(t, proc)

	payload := []byte(`{"call_id":"CA123","caller_number":"5551234567"}`)
	w := deliver(h.HandlePostCall, payload, true)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the provider retries, got %d", w.Code)
	}
}

func TestHandlerRoutesEventTypePerEndpoint(t *testing.T) {
	payload := []byte(`{"call_id":"CA123","caller_number":"5551234567"}`)
	cases := []struct {
		name string
		call func(h *Handler) http.HandlerFunc
		want callrail.EventType
	}{
		{"pre-call", func(h *Handler) http.HandlerFunc { return h.HandlePreCall }, callrail.EventPreCall},
		{"post-call", func(h *Handler) http.HandlerFunc { return h.HandlePostCall }, callrail.EventPostCall},
		{"call-modified", func(h *Handler) http.HandlerFunc { return h.HandleCallModified }, callrail.EventCallModified},
		{"routing-complete", func(h *Handler) http.HandlerFunc { return h.HandleRoutingComplete }, callrail.EventRoutingComplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc := &stubProcessor{}
			h := newTestHandler(t, proc)
			w := deliver(tc.call(h), payload, true)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if proc.events[0].Type != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, proc.events[0].Type)
			}
		})
	}
}
