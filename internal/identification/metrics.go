package identification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RejectionsTotal tracks identification rejections by reason.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutch_filler_identification_rejections_total",
		Help: "Total number of orders rejected during identification",
	}, []string{"reason"})
)
