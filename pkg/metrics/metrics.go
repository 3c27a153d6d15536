// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MatchingRunsTotal counts matching runs by outcome.
	MatchingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerlunch_matching_runs_total",
			Help: "Total matching runs by outcome",
		},
		[]string{"outcome"},
	)

	// MatchingRunDuration tracks end-to-end matching run duration.
	MatchingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powerlunch_matching_run_duration_seconds",
			Help:    "Matching run duration in seconds",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"outcome"},
	)

	// GroupsCreatedTotal counts committed groups.
	GroupsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powerlunch_groups_created_total",
			Help: "Total lunch groups committed",
		},
	)

	// RegistrationsMatchedTotal counts registrations by matching outcome.
	RegistrationsMatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerlunch_registrations_total",
			Help: "Registrations processed by matching runs",
		},
		[]string{"result"},
	)

	// OracleDuration tracks matching oracle latency.
	OracleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM tool invocation duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// NotificationsTotal counts push notifications by kind and result.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerlunch_notifications_total",
			Help: "Push notifications by kind and result",
		},
		[]string{"kind", "result"},
	)

	// EventsPublishedTotal counts domain events published to NATS.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerlunch_events_published_total",
			Help: "Domain events published",
		},
		[]string{"type", "status"},
	)

	// NetworkingSuggestions observes how many suggestions each request returned.
	NetworkingSuggestions = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "powerlunch_networking_suggestions",
			Help:    "Networking suggestions returned per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	// NATSStreamMessages tracks messages in NATS stream.
	NATSStreamMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_messages",
			Help: "Number of messages in NATS stream",
		},
		[]string{"stream"},
	)

	// NATSStreamBytes tracks bytes in NATS stream.
	NATSStreamBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nats_stream_bytes",
			Help: "Bytes in NATS stream",
		},
		[]string{"stream"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordOracle records metrics for a matching oracle call.
func RecordOracle(model, status string, duration float64, tokensIn, tokensOut int) {
	OracleDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordMatchingRun records the outcome of a matching run.
func RecordMatchingRun(outcome string, duration float64, groups, matched, unmatched int) {
	MatchingRunsTotal.WithLabelValues(outcome).Inc()
	MatchingRunDuration.WithLabelValues(outcome).Observe(duration)
	GroupsCreatedTotal.Add(float64(groups))
	RegistrationsMatchedTotal.WithLabelValues("matched").Add(float64(matched))
	RegistrationsMatchedTotal.WithLabelValues("unmatched").Add(float64(unmatched))
}

// RecordNotifications records push delivery counts.
func RecordNotifications(kind string, sent, failed int) {
	NotificationsTotal.WithLabelValues(kind, "sent").Add(float64(sent))
	NotificationsTotal.WithLabelValues(kind, "failed").Add(float64(failed))
}
