package clicks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clicksEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_emitted_total",
			Help: "Click events appended to the click log",
		},
	)

	clicksEmitFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_emit_failed_total",
			Help: "Click events that could not be appended within budget",
		},
	)

	clicksDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clicks_dropped_total",
			Help: "Click events dropped before append",
		},
		[]string{"reason"},
	)

	aggregatorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_aggregator_runs_total",
			Help: "Aggregation runs by result",
		},
		[]string{"result"},
	)

	aggregatorDrainedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_aggregator_drained_events_total",
			Help: "Click events drained from the click log",
		},
	)

	aggregatorUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_aggregator_updates_total",
			Help: "Per-link counter increments by result",
		},
		[]string{"result"},
	)

	aggregatorRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "click_aggregator_run_duration_seconds",
			Help:    "Aggregation run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	clickLogLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "click_log_approx_length",
			Help: "Approximate number of undrained click events",
		},
	)

	clickLogOldestAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "click_log_oldest_entry_age_seconds",
			Help: "Age of the oldest undrained click event",
		},
	)
)
