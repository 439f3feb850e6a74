// Package metrics exposes pipeline counters on the shared Prometheus
// registry, served at /metrics by the HTTP server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_questions_total",
			Help: "Total number of questions processed, by outcome.",
		},
		[]string{"outcome"},
	)
	questionAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_question_attempts",
			Help:    "Translation attempts spent per question.",
			Buckets: []float64{1, 2, 3},
		},
	)
	questionDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_question_duration_ms",
			Help:    "End-to-end question latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
	)
	attemptFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_attempt_failures_total",
			Help: "Total number of failed pipeline attempts, by reason.",
		},
		[]string{"reason"},
	)
	queryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_query_duration_ms",
			Help:    "Read-only query execution latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		questionAttempts,
		questionDurationMs,
		attemptFailuresTotal,
		queryDurationMs,
	)
}

// ObserveQuestion records one completed question.
func ObserveQuestion(outcome string, attempts int, elapsed time.Duration) {
	questionsTotal.WithLabelValues(outcome).Inc()
	questionAttempts.Observe(float64(attempts))
	questionDurationMs.Observe(float64(elapsed.Milliseconds()))
}

// IncrementAttemptFailure records one failed pipeline attempt.
func IncrementAttemptFailure(reason string) {
	attemptFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveQueryDuration records one executed query.
func ObserveQueryDuration(elapsed time.Duration) {
	queryDurationMs.Observe(float64(elapsed.Milliseconds()))
}
