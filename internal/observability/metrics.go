package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// resolutions counts answered questions by the path that produced them
	// (canned, completion, fallback).
	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_resolutions_total",
			Help: "Total number of resolved questions by source.",
		},
		[]string{"source"},
	)

	// resolutionLatency records end-to-end resolution time in seconds.
	resolutionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_resolution_duration_seconds",
			Help:    "Duration of question resolution in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	completionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_completion_failures_total",
			Help: "Total number of failed completion calls.",
		},
	)

	feedbackEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_feedback_total",
			Help: "Total number of feedback events by helpfulness.",
		},
		[]string{"helpful"},
	)
)

func init() {
	prometheus.MustRegister(resolutions, resolutionLatency, completionFailures, feedbackEvents)
}

// ObserveResolution records one answered question.
func ObserveResolution(source string, latencyMs float64) {
	resolutions.WithLabelValues(source).Inc()
	resolutionLatency.WithLabelValues(source).Observe(latencyMs / 1000)
}

// ObserveCompletionFailure records a failed completion call.
func ObserveCompletionFailure() { completionFailures.Inc() }

// ObserveFeedback records one rating.
func ObserveFeedback(helpful bool) {
	feedbackEvents.WithLabelValues(strconv.FormatBool(helpful)).Inc()
}
