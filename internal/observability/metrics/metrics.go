package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for call event processing.
type WebhookMetrics struct {
	receivedTotal    *prometheus.CounterVec
	webhookLatency   *prometheus.HistogramVec
	leadsCreated     prometheus.Counter
	dispatchFailures prometheus.Counter
	importCalls      *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		receivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callbridge",
			Subsystem: "webhooks",
			Name:      "received_total",
			Help:      "Total CallRail webhooks received",
		}, []string{"event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "callbridge",
			Subsystem: "webhooks",
			Name:      "latency_seconds",
			Help:      "Latency of CallRail webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		leadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callbridge",
			Subsystem: "webhooks",
			Name:      "leads_created_total",
			Help:      "Leads created for unmatched inbound callers",
		}),
		dispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callbridge",
			Subsystem: "realtime",
			Name:      "dispatch_failures_total",
			Help:      "Interaction events that failed to publish",
		}),
		importCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callbridge",
			Subsystem: "importer",
			Name:      "calls_total",
			Help:      "Historical calls processed by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.receivedTotal, m.webhookLatency, m.leadsCreated, m.dispatchFailures, m.importCalls)
	return m
}

func (m *WebhookMetrics) ObserveReceived(eventType, status string) {
	if m == nil {
		return
	}
	m.receivedTotal.WithLabelValues(eventType, status).Inc()
}

func (m *WebhookMetrics) ObserveLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *WebhookMetrics) ObserveLeadCreated() {
	if m == nil {
		return
	}
	m.leadsCreated.Inc()
}

func (m *WebhookMetrics) ObserveDispatchFailure() {
	if m == nil {
		return
	}
	m.dispatchFailures.Inc()
}

func (m *WebhookMetrics) ObserveImportCall(result string) {
	if m == nil {
		return
	}
	m.importCalls.WithLabelValues(result).Inc()
}
