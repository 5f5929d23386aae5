// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ivr_voice_bridge"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Webhook metrics
	WebhooksTotal *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec

	// Session metrics
	SessionsCreated   prometheus.Counter
	SessionsReclaimed prometheus.Counter
	SessionsByState   *prometheus.GaugeVec

	// Cycle metrics
	CyclesStarted   prometheus.Counter
	CyclesActive    prometheus.Gauge
	CyclesCompleted prometheus.Counter
	CyclesRetried   prometheus.Counter
	CyclesFailed    *prometheus.CounterVec
	CyclesDeferred  prometheus.Counter
	CycleDuration   prometheus.Histogram

	// Adapter metrics
	AdapterLatency *prometheus.HistogramVec
	AdapterErrors  *prometheus.CounterVec

	// Audio metrics
	RecordingBytes    prometheus.Counter
	AnswerAudioLength prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Keepalive metrics
	KeepaliveTotal *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates metrics registered with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhooksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Total number of IVR webhook events received",
		}, []string{"outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		}, []string{"route", "code"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"route"}),

		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of caller sessions created",
		}),
		SessionsReclaimed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reclaimed_total",
			Help:      "Total number of idle caller sessions reclaimed",
		}),
		SessionsByState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of caller sessions by state",
		}, []string{"state"}),

		CyclesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_started_total",
			Help:      "Total number of processing cycles started",
		}),
		CyclesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cycles_active",
			Help:      "Number of processing cycles in flight",
		}),
		CyclesCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_completed_total",
			Help:      "Total number of fully successful cycles",
		}),
		CyclesRetried: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_retried_total",
			Help:      "Total number of cycles that found no recording yet",
		}),
		CyclesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_failed_total",
			Help:      "Total number of abandoned cycles",
		}, []string{"step"}),
		CyclesDeferred: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_deferred_total",
			Help:      "Total number of due sessions deferred for lack of a concurrency slot",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of processing cycles in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		AdapterLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_latency_seconds",
			Help:      "External adapter call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"adapter"}),
		AdapterErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_errors_total",
			Help:      "Total number of external adapter errors",
		}, []string{"adapter", "error_type"}),

		RecordingBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recording_bytes_total",
			Help:      "Total bytes of caller recordings downloaded",
		}),
		AnswerAudioLength: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_audio_seconds",
			Help:      "Playback length of synthesized answers in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		KeepaliveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keepalive_pings_total",
			Help:      "Total number of self-ping attempts",
		}, []string{"outcome"}),
	}
}

// RecordWebhook records a webhook outcome (accepted, ignored).
func (m *Metrics) RecordWebhook(outcome string) {
	m.WebhooksTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, code string, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(route, code).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(latencySeconds)
}

// RecordSessionCreated records a new caller session.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionsReclaimed records reclaimed idle sessions.
func (m *Metrics) RecordSessionsReclaimed(n int) {
	m.SessionsReclaimed.Add(float64(n))
}

// SetSessionStates replaces the per-state session gauge values.
func (m *Metrics) SetSessionStates(counts map[string]int) {
	m.SessionsByState.Reset()
	for state, n := range counts {
		m.SessionsByState.WithLabelValues(state).Set(float64(n))
	}
}

// RecordCycleStart records a cycle being dispatched.
func (m *Metrics) RecordCycleStart() {
	m.CyclesStarted.Inc()
	m.CyclesActive.Inc()
}

// RecordCycleEnd records a cycle ending with the given outcome.
// step is empty unless the outcome is "failed".
func (m *Metrics) RecordCycleEnd(outcome, step string, durationSeconds float64) {
	m.CyclesActive.Dec()
	m.CycleDuration.Observe(durationSeconds)
	switch outcome {
	case "completed":
		m.CyclesCompleted.Inc()
	case "retry":
		m.CyclesRetried.Inc()
	case "failed":
		m.CyclesFailed.WithLabelValues(step).Inc()
	}
}

// RecordCyclesDeferred records due sessions left for the next tick.
func (m *Metrics) RecordCyclesDeferred(n int) {
	m.CyclesDeferred.Add(float64(n))
}

// RecordAdapterCall records an external adapter call.
func (m *Metrics) RecordAdapterCall(adapter, errorType string, latencySeconds float64) {
	m.AdapterLatency.WithLabelValues(adapter).Observe(latencySeconds)
	if errorType != "" {
		m.AdapterErrors.WithLabelValues(adapter, errorType).Inc()
	}
}

// RecordRecording records a downloaded recording.
func (m *Metrics) RecordRecording(bytes int) {
	m.RecordingBytes.Add(float64(bytes))
}

// RecordAnswerAudio records the playback length of a synthesized answer.
func (m *Metrics) RecordAnswerAudio(seconds float64) {
	m.AnswerAudioLength.Observe(seconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordKeepalive records a self-ping outcome (ok, error).
func (m *Metrics) RecordKeepalive(outcome string) {
	m.KeepaliveTotal.WithLabelValues(outcome).Inc()
}
