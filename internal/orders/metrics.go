package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersFetchedTotal tracks orders returned by the order source.
	OrdersFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutch_filler_orders_fetched_total",
		Help: "Total number of orders returned by the order source",
	})

	// FetchDurationSeconds tracks order source request latency.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dutch_filler_orders_fetch_duration_seconds",
		Help:    "Duration of order source requests",
		Buckets: prometheus.DefBuckets,
	})

	// FetchErrorsTotal tracks order source failures.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutch_filler_orders_fetch_errors_total",
		Help: "Total number of failed order source requests",
	})
)
