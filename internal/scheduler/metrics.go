package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal tracks completed cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutch_filler_scheduler_cycles_total",
			Help: "Total number of polling cycles by outcome",
		},
		[]string{"outcome"},
	)

	// CycleDurationSeconds tracks how long a cycle takes end to end.
	CycleDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dutch_filler_scheduler_cycle_duration_seconds",
			Help:    "Duration of polling cycles",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// CyclesSkippedTotal tracks ticks dropped because a cycle overran the interval.
	CyclesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dutch_filler_scheduler_ticks_skipped_total",
			Help: "Total number of ticks dropped while a cycle was running",
		},
	)

	// EvaluationsTotal tracks evaluation verdicts by reason.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutch_filler_evaluations_total",
			Help: "Total number of order evaluations by reason",
		},
		[]string{"reason"},
	)

	// ImpliedPrice tracks the implied price of the last evaluated order per pair.
	ImpliedPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dutch_filler_implied_price",
			Help: "Implied price of the last evaluated order",
		},
		[]string{"pair"},
	)
)
