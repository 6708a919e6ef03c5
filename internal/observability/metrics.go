package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trainload/internal/analysis"
)

var (
	pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainload",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Pipeline computations by outcome.",
	}, []string{"outcome"})
	pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trainload",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "Wall time of one pipeline computation.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
	substitutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainload",
		Subsystem: "analysis",
		Name:      "substitutions_total",
		Help:      "Invalid or missing settings replaced by defaults, by field.",
	}, []string{"field"})
	skippedActivities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainload",
		Subsystem: "analysis",
		Name:      "skipped_activities_total",
		Help:      "Activities excluded from stream-based calculations, by reason.",
	}, []string{"reason"})
	simulatedWellnessDays = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainload",
		Subsystem: "readiness",
		Name:      "simulated_days",
		Help:      "Days in the last readiness series scored from simulated wellness.",
	})
	peakCacheEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trainload",
		Subsystem: "peaks",
		Name:      "cache",
		Help:      "Peak cache counters as of the last pipeline run.",
	}, []string{"kind"})
	syncedActivities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainload",
		Subsystem: "sync",
		Name:      "activities_total",
		Help:      "Activities and streams stored by provider syncs and file imports.",
	}, []string{"kind"})
	lastSync = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainload",
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed sync.",
	})
)

func init() {
	prometheus.MustRegister(
		pipelineRuns, pipelineDuration, substitutions, skippedActivities,
		simulatedWellnessDays, peakCacheEntries, syncedActivities, lastSync,
	)
}

// RecordPipelineRun counts one computation and its duration
func RecordPipelineRun(elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	pipelineRuns.WithLabelValues(outcome).Inc()
	pipelineDuration.Observe(elapsed.Seconds())
}

// RecordSubstitutions counts defaults applied for invalid configuration
func RecordSubstitutions(subs []analysis.Substitution) {
	for _, s := range subs {
		substitutions.WithLabelValues(s.Field).Inc()
	}
}

// RecordSkipped counts activities excluded for degenerate streams
func RecordSkipped(skipped []analysis.SkippedActivity) {
	for _, s := range skipped {
		skippedActivities.WithLabelValues(SkipReason(s.Reason)).Inc()
	}
}

// SkipReason maps a stream validation error onto a bounded label value
func SkipReason(err error) string {
	switch {
	case errors.Is(err, analysis.ErrNoStreams):
		return "no_streams"
	case errors.Is(err, analysis.ErrStreamMisaligned):
		return "misaligned"
	case errors.Is(err, analysis.ErrTimeNotMonotonic):
		return "time_not_monotonic"
	default:
		return "other"
	}
}

// RecordSimulatedDays sets the simulated share of the readiness series
func RecordSimulatedDays(n int) {
	simulatedWellnessDays.Set(float64(n))
}

// RecordPeakCache publishes peak cache counters
func RecordPeakCache(hits, misses, size int) {
	peakCacheEntries.WithLabelValues("hits").Set(float64(hits))
	peakCacheEntries.WithLabelValues("misses").Set(float64(misses))
	peakCacheEntries.WithLabelValues("size").Set(float64(size))
}

// RecordSynced counts stored activities and stream sets
func RecordSynced(activities, streams int) {
	syncedActivities.WithLabelValues("activities").Add(float64(activities))
	syncedActivities.WithLabelValues("streams").Add(float64(streams))
}

// RecordSyncCompleted updates the sync watermark gauge
func RecordSyncCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSync.Set(float64(ts.Unix()))
}
