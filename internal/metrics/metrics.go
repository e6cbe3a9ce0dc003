// Package metrics exposes Prometheus collectors for the kiosk
// orchestration core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "kiosk"

var (
	pipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each conversation pipeline stage in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_turns_total",
			Help:      "Total number of conversation turns processed.",
		},
		[]string{"status"}, // ok, degraded, tts_error
	)

	ttsCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_cache_lookups_total",
			Help:      "Total TTS cache lookups by outcome.",
		},
		[]string{"outcome"}, // hit, miss, miss_error
	)

	ttsSynthDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_synthesis_duration_seconds",
			Help:      "Duration of TTS synthesis calls in seconds.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"tier", "status"},
	)

	llmRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM adapter calls in seconds.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"status"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of currently active kiosk sessions.",
		},
	)

	sessionsEndedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total sessions ended, by reason.",
		},
		[]string{"reason"}, // manual, timeout, duration_expired, operator_terminated
	)

	datachannelMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datachannel_messages_total",
			Help:      "Total datachannel control messages dispatched, by tag and outcome.",
		},
		[]string{"tag", "outcome"}, // outcome: sent, room_gone
	)

	imageResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_resolutions_total",
			Help:      "Total image resolver lookups, by outcome.",
		},
		[]string{"outcome"}, // matched, fallback
	)

	allMetrics = []prometheus.Collector{
		pipelineStageDuration,
		turnsTotal,
		ttsCacheLookups,
		ttsSynthDuration,
		llmRequestDuration,
		activeSessions,
		sessionsEndedTotal,
		datachannelMessagesTotal,
		imageResolutionsTotal,
	}
)

// MustRegister registers every collector with reg. Call once at startup.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(allMetrics...)
}

// RecordStageDuration records a pipeline stage's wall-clock duration.
func RecordStageDuration(stage string, seconds float64) {
	pipelineStageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordTurn records a completed (or failed) conversation turn.
func RecordTurn(status string) {
	turnsTotal.WithLabelValues(status).Inc()
}

// RecordTTSCacheLookup records the outcome of a TTS cache lookup.
func RecordTTSCacheLookup(outcome string) {
	ttsCacheLookups.WithLabelValues(outcome).Inc()
}

// RecordTTSSynthesis records a synthesis attempt by tier and outcome.
func RecordTTSSynthesis(tier, status string, seconds float64) {
	ttsSynthDuration.WithLabelValues(tier, status).Observe(seconds)
}

// RecordLLMRequest records an LLM adapter call.
func RecordLLMRequest(status string, seconds float64) {
	llmRequestDuration.WithLabelValues(status).Observe(seconds)
}

// SetActiveSessions sets the active session gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordSessionEnded records a session ending, by reason.
func RecordSessionEnded(reason string) {
	sessionsEndedTotal.WithLabelValues(reason).Inc()
}

// RecordDatachannelMessage records a dispatched (or dropped) control message.
func RecordDatachannelMessage(tag, outcome string) {
	datachannelMessagesTotal.WithLabelValues(tag, outcome).Inc()
}

// RecordImageResolution records whether an image resolution matched or fell
// back to a random catalogue sample.
func RecordImageResolution(outcome string) {
	imageResolutionsTotal.WithLabelValues(outcome).Inc()
}
