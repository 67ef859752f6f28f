package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FillsTotal tracks fill attempts by mode and outcome.
	FillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutch_filler_execution_fills_total",
			Help: "Total number of fill attempts",
		},
		[]string{"mode", "outcome"},
	)

	// FillDurationSeconds tracks fill latency including confirmation.
	FillDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dutch_filler_execution_fill_duration_seconds",
		Help:    "Duration of fill execution",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"mode"})
)
