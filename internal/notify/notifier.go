// Package notify delivers operator notifications without blocking the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 10 * time.Second
)

// Event classifies a notification.
type Event string

const (
	EventOrderAccepted       Event = "order-accepted"
	EventInsufficientBalance Event = "insufficient-balance"
	EventFillSucceeded       Event = "fill-succeeded"
	EventFillFailed          Event = "fill-failed"
	EventRebalanced          Event = "rebalanced"
	EventRebalanceFailed     Event = "rebalance-failed"
)

// Sender is a notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

type message struct {
	event Event
	title string
	body  string
}

// Config holds notifier configuration.
type Config struct {
	Senders     []Sender
	QueueSize   int
	SendTimeout time.Duration
	Logger      *zap.Logger
}

// Notifier queues notifications and delivers them from a background worker.
// Delivery failures are logged and never reported to the caller.
type Notifier struct {
	senders []Sender
	queue   chan message
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New creates a notifier and starts its delivery worker.
func New(cfg *Config) *Notifier {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	n := &Notifier{
		senders: cfg.Senders,
		queue:   make(chan message, queueSize),
		timeout: timeout,
		logger:  cfg.Logger,
		done:    make(chan struct{}),
	}

	go n.run()

	return n
}

// Notify enqueues a notification. It never blocks; when the queue is full
// the notification is dropped.
func (n *Notifier) Notify(event Event, title, body string) {
	if len(n.senders) == 0 {
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}

	select {
	case n.queue <- message{event: event, title: title, body: body}:
	default:
		DroppedTotal.Inc()
		n.logger.Warn("notification-dropped",
			zap.String("event", string(event)),
			zap.String("title", title))
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end.
func (n *Notifier) Close(ctx context.Context) {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
	case <-ctx.Done():
		n.logger.Warn("notifier-close-timeout", zap.Int("pending", len(n.queue)))
	}
}

func (n *Notifier) run() {
	defer close(n.done)

	for msg := range n.queue {
		n.dispatch(msg)
	}
}

func (n *Notifier) dispatch(msg message) {
	for _, s := range n.senders {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := s.Send(ctx, msg.title, msg.body)
		cancel()

		if err != nil {
			SendErrorsTotal.WithLabelValues(s.Name()).Inc()
			n.logger.Error("notification-failed",
				zap.String("sender", s.Name()),
				zap.String("event", string(msg.event)),
				zap.Error(err))
			continue
		}

		SentTotal.WithLabelValues(s.Name(), string(msg.event)).Inc()
		n.logger.Debug("notification-sent",
			zap.String("sender", s.Name()),
			zap.String("event", string(msg.event)))
	}
}
