package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Rounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedarchive_rounds_total",
		Help: "Completed pull/backfill rounds",
	}, []string{"job"})
	RoundErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedarchive_round_errors_total",
		Help: "Rounds that failed at the job-gating level",
	}, []string{"job"})
	ItemFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedarchive_item_failures_total",
		Help: "Per-item processor failures inside a round",
	}, []string{"job"})
	RoundDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedarchive_round_duration_seconds",
		Help:    "Round duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	RetryAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedarchive_upstream_retries_total",
		Help: "Upstream call retry attempts",
	})
)

func init() {
	prometheus.MustRegister(Rounds, RoundErrors, ItemFailures, RoundDuration, RetryAttempts)
}

// ObserveRound records a round duration under its job label.
func ObserveRound(job string, start time.Time) {
	RoundDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}
