package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SentTotal tracks delivered notifications.
	SentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutch_filler_notifications_sent_total",
		Help: "Total number of delivered notifications",
	}, []string{"sender", "event"})

	// SendErrorsTotal tracks failed deliveries.
	SendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutch_filler_notification_errors_total",
		Help: "Total number of failed notification deliveries",
	}, []string{"sender"})

	// DroppedTotal tracks notifications dropped on a full queue.
	DroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutch_filler_notifications_dropped_total",
		Help: "Total number of notifications dropped because the queue was full",
	})
)
