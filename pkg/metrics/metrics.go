package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Escalation sweep duration in seconds.
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "escalation_sweep_duration_seconds",
			Help:    "Escalation sweep duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"trigger"}, // trigger: scheduled, manual
	)

	// Escalations created, by level.
	EscalationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_created_total",
			Help: "Total number of escalations created",
		},
		[]string{"level"},
	)

	// Escalations advanced past the wait threshold.
	EscalationsAdvanced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_advanced_total",
			Help: "Total number of escalations advanced to the next level",
		},
		[]string{"outcome"}, // outcome: advanced, no_recipient, max_level
	)

	// Escalations resolved by a human actor.
	EscalationsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escalations_resolved_total",
			Help: "Total number of escalations resolved",
		},
	)

	// Fund tranches frozen at maximum escalation.
	TranchesFrozen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tranches_frozen_total",
			Help: "Total number of fund tranches frozen",
		},
	)

	// Notification dispatch outcomes.
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"status"}, // status: queued, sent, failed
	)

	// WhatsApp provider call latency in milliseconds.
	WhatsAppCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whatsapp_call_latency_ms",
			Help:    "WhatsApp provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"endpoint", "status"},
	)

	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveSweep records one sweep execution.
func ObserveSweep(trigger string, duration time.Duration) {
	SweepDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// IncEscalationCreated increments the created counter for a level.
func IncEscalationCreated(level string) {
	EscalationsCreated.WithLabelValues(level).Inc()
}

// IncEscalationAdvanced increments the advanced counter for an outcome.
func IncEscalationAdvanced(outcome string) {
	EscalationsAdvanced.WithLabelValues(outcome).Inc()
}

// RecordWhatsAppCall records one provider call.
func RecordWhatsAppCall(endpoint, status string, duration time.Duration) {
	WhatsAppCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration records one HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
