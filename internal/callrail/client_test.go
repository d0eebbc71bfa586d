package callrail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, srv *httptest.Server, maxRetries int) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		AccountID:  "ACC1",
		MaxRetries: maxRetries,
		Backoff:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return client
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{AccountID: "ACC1"}); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Error("expected error without account id")
	}
}

func TestListCallsPagination(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"calls": [
				{"id": "CAL1", "answered": true, "customer_phone_number": "+15551234567",
				 "tracking_phone_number": "+15550001111", "duration": "92",
				 "start_time": "2025-05-01T10:00:00Z"}
			],
			"page": 2, "total_pages": 3, "total_records": 250
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0)
	page, err := client.ListCalls(context.Background(), ListCallsRequest{
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		Page:      2,
		PerPage:   100,
	})
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if gotAuth != `Token token="test-key"` {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPath != "/a/ACC1/calls.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "end_date=2025-05-31&page=2&per_page=100&start_date=2025-05-01" {
		t.Errorf("query = %q", gotQuery)
	}
	if page.TotalPages != 3 || len(page.Calls) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Calls[0].ID != "CAL1" || int(page.Calls[0].DurationSeconds) != 92 {
		t.Errorf("unexpected call %+v", page.Calls[0])
	}
}

func TestListCallsRetriesOnRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"calls": [], "page": 1, "total_pages": 1}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 3)
	if _, err := client.ListCalls(context.Background(), ListCallsRequest{}); err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestListCallsDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "unauthorized"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 3)
	_, err := client.ListCalls(context.Background(), ListCallsRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if hits.Load() != 1 {
		t.Errorf("401 must not be retried, got %d attempts", hits.Load())
	}
}

func TestGetCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a/ACC1/calls/CAL77.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id": "CAL77", "answered": false, "voicemail": true, "duration": 31}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0)
	call, err := client.GetCall(context.Background(), "CAL77")
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if call.ID != "CAL77" || !call.Voicemail {
		t.Errorf("unexpected call %+v", call)
	}

	evt := call.Event()
	if evt.Type != EventPostCall {
		t.Errorf("synthesized event type = %q, want post_call", evt.Type)
	}
	if evt.CallID != "CAL77" || evt.DurationSeconds != 31 || !evt.Voicemail {
		t.Errorf("synthesized event %+v", evt)
	}
}

func TestGetCallRequiresID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	client := newTestClient(t, srv, 0)
	if _, err := client.GetCall(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank call id")
	}
}
