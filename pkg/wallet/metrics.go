package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NativeBalance tracks the native gas token balance.
	NativeBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dutch_filler_wallet_native_balance",
		Help: "Current native gas token balance in wallet (whole units)",
	})

	// TokenBalance tracks the balance of each output token.
	TokenBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dutch_filler_wallet_token_balance",
		Help: "Current output token balance in wallet (whole units)",
	}, []string{"token"})

	// TokenAllowance tracks the allowance granted to the settlement contract.
	TokenAllowance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dutch_filler_wallet_token_allowance",
		Help: "Output token allowance approved to the settlement contract (whole units)",
	}, []string{"token"})

	// UpdateErrorsTotal tracks the number of failed update attempts.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutch_filler_wallet_update_errors_total",
		Help: "Total number of failed wallet update attempts",
	})

	// UpdateDuration tracks the time taken to fetch wallet data.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dutch_filler_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet data (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last successful update.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dutch_filler_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet update",
	})
)
