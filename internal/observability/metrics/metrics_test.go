package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWebhookMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.ObserveReceived("post_call", "ok")
	m.ObserveLatency("post_call", 0.02)
	m.ObserveLeadCreated()
	m.ObserveDispatchFailure()
	m.ObserveImportCall("imported")
}

func TestWebhookMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.ObserveReceived("pre_call", "rejected")
	m.ObserveLatency("pre_call", 0.1)
	m.ObserveLeadCreated()
	m.ObserveDispatchFailure()
	m.ObserveImportCall("failed")
}
