// Package metrics provides Prometheus metrics for the resolution engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal tracks resolutions by outcome and match confidence
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of source record resolutions by outcome and confidence",
		},
		[]string{"outcome", "confidence"},
	)

	// ResolutionDuration tracks resolution duration in seconds
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "resolver",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of source record resolutions in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// TimelineBuildsTotal tracks timeline builds
	TimelineBuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "timeline",
			Name:      "builds_total",
			Help:      "Total number of attribution timelines built",
		},
	)

	// TimelineDefectsTotal tracks events excluded for unparseable timestamps
	TimelineDefectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "timeline",
			Name:      "defects_total",
			Help:      "Total number of events excluded from timelines due to unparseable timestamps",
		},
	)

	// StatsPassesTotal tracks statistics passes by result
	StatsPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "attribution",
			Name:      "stats_passes_total",
			Help:      "Total number of attribution statistics passes by result",
		},
		[]string{"result"},
	)

	// KafkaMessagesConsumed tracks consumed collector messages
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of collector messages consumed",
		},
		[]string{"topic", "status"},
	)
)

// Recorder satisfies the resolver's metrics hook.
type Recorder struct{}

// RecordResolution records one resolution outcome
func (Recorder) RecordResolution(outcome string, confidence string) {
	ResolutionsTotal.WithLabelValues(outcome, confidence).Inc()
}

// RecordResolutionDuration records one resolution duration in seconds
func (Recorder) RecordResolutionDuration(seconds float64) {
	ResolutionDuration.Observe(seconds)
}

// RecordTimelineBuild records one timeline build and its defect count
func RecordTimelineBuild(defects int) {
	TimelineBuildsTotal.Inc()
	TimelineDefectsTotal.Add(float64(defects))
}

// RecordStatsPass records one statistics pass result
func RecordStatsPass(partial bool) {
	result := "complete"
	if partial {
		result = "partial"
	}
	StatsPassesTotal.WithLabelValues(result).Inc()
}

// RecordKafkaConsume records one consumed message
func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}
