package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// TransactionsTotal tracks transaction outcomes.
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutch_filler_settlement_transactions_total",
		Help: "Total number of settlement transactions by outcome",
	}, []string{"outcome"})

	// ConfirmationDurationSeconds tracks time from nonce lookup to receipt.
	ConfirmationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dutch_filler_settlement_confirmation_duration_seconds",
		Help:    "Time from submission to confirmed receipt",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)
