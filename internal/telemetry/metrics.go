package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. Each instance
// carries its own registry so repeated construction (tests) never
// collides on registration.
type Metrics struct {
	Registry *prometheus.Registry

	WebhookEvents      *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec
	RetryItems         *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assabil_webhook_events_total",
				Help: "Total inbound webhook events by event type and outcome",
			},
			[]string{"event", "outcome"},
		),
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assabil_submissions_total",
				Help: "Total shipment submissions by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		SubmissionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assabil_submission_duration_seconds",
				Help:    "Shipment submission duration in seconds by trigger",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		RetryItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assabil_retry_items_total",
				Help: "Total retried orders by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordWebhook records an inbound webhook event metric.
func (m *Metrics) RecordWebhook(event, outcome string) {
	m.WebhookEvents.WithLabelValues(event, outcome).Inc()
}

// RecordSubmission records a submission metric.
func (m *Metrics) RecordSubmission(trigger, result string, duration float64) {
	m.Submissions.WithLabelValues(trigger, result).Inc()
	m.SubmissionDuration.WithLabelValues(trigger).Observe(duration)
}

// RecordRetry records a single retried order outcome.
func (m *Metrics) RecordRetry(outcome string) {
	m.RetryItems.WithLabelValues(outcome).Inc()
}
