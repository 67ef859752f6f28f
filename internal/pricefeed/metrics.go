package pricefeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReferencePrice tracks the last top-of-book bid per pair.
	ReferencePrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dutch_filler_reference_price",
		Help: "Last observed top-of-book bid price per pair",
	}, []string{"pair"})

	// RequestDurationSeconds tracks price feed request latency.
	RequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dutch_filler_price_feed_duration_seconds",
		Help:    "Duration of price feed requests",
		Buckets: prometheus.DefBuckets,
	})

	// RequestErrorsTotal tracks price feed failures per pair.
	RequestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutch_filler_price_feed_errors_total",
		Help: "Total number of failed price feed requests",
	}, []string{"pair"})
)
