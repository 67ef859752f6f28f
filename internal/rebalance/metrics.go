package rebalance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RebalancesTotal tracks post-fill swaps by outcome.
	RebalancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutch_filler_rebalance_swaps_total",
		Help: "Total number of post-fill swaps back to the output token by outcome",
	}, []string{"outcome"})
)
