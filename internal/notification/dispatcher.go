// Package notification delivers registration confirmations after commit.
// Delivery is fire-and-forget: the dispatcher never blocks the caller and
// never reports failure back to it.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"startingline/internal/platform/metrics"
	"startingline/pkg/platform/circuit"
	"startingline/pkg/requestcontext"
)

const (
	defaultBufferSize  = 1024
	defaultSendTimeout = 5 * time.Second

	dropBufferFull  = "buffer_full"
	dropClosed      = "closed"
	dropCircuitOpen = "circuit_open"
	dropSendFailed  = "send_failed"
)

// Sender hands a confirmation to the delivery channel.
type Sender interface {
	Send(ctx context.Context, c Confirmation) error
}

// Dispatcher buffers confirmations and delivers them from a single worker.
// When the buffer is full new confirmations are dropped and counted. A circuit
// breaker stops calls to a sink that keeps failing.
type Dispatcher struct {
	sender      Sender
	logger      *slog.Logger
	metrics     *metrics.Metrics
	breaker     *circuit.Breaker
	sendTimeout time.Duration
	bufferSize  int

	mu     sync.RWMutex
	closed bool
	queue  chan Confirmation
	done   chan struct{}
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithBufferSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.bufferSize = n
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		logger:      slog.Default(),
		breaker:     circuit.New("notification"),
		sendTimeout: defaultSendTimeout,
		bufferSize:  defaultBufferSize,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Confirmation, d.bufferSize)
	return d
}

// Enqueue schedules c for delivery without blocking.
func (d *Dispatcher) Enqueue(ctx context.Context, c Confirmation) {
	if c.RequestID == "" {
		c.RequestID = requestcontext.RequestID(ctx)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, c, dropClosed)
		return
	}
	select {
	case d.queue <- c:
	default:
		d.drop(ctx, c, dropBufferFull)
	}
}

// Run delivers queued confirmations until Close is called or ctx ends. On
// either it drains what is already buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)
	for {
		select {
		case c, ok := <-d.queue:
			if !ok {
				return nil
			}
			d.deliver(c)
		case <-ctx.Done():
			d.shutdown()
			for c := range d.queue {
				d.deliver(c)
			}
			return nil
		}
	}
}

// Close stops accepting confirmations and waits for Run to drain the buffer
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.shutdown()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("notification drain incomplete"), ctx.Err())
	}
}

func (d *Dispatcher) shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
}

// Pending returns the number of buffered confirmations.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) deliver(c Confirmation) {
	ctx := context.Background()
	if !d.breaker.Allow() {
		d.drop(ctx, c, dropCircuitOpen)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	err := d.sender.Send(sendCtx, c)
	cancel()

	if err != nil {
		_, change := d.breaker.RecordFailure()
		if change.Opened {
			d.logger.Warn("notification sink unhealthy, pausing delivery", "breaker", d.breaker.Name())
		}
		d.logger.Warn("failed to send registration confirmation",
			"error", err,
			"order_id", c.OrderID.String(),
			"request_id", c.RequestID,
		)
		d.metrics.IncrementNotificationsDropped(dropSendFailed)
		return
	}

	if _, change := d.breaker.RecordSuccess(); change.Closed {
		d.logger.Info("notification sink recovered", "breaker", d.breaker.Name())
	}
	d.metrics.IncrementNotificationsSent()
}

func (d *Dispatcher) drop(ctx context.Context, c Confirmation, reason string) {
	d.logger.WarnContext(ctx, "registration confirmation dropped",
		"reason", reason,
		"order_id", c.OrderID.String(),
		"request_id", c.RequestID,
	)
	d.metrics.IncrementNotificationsDropped(reason)
}
