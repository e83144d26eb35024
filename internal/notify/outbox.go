package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lab_booking/internal/metrics"
)

// Sink delivers intents to one channel (websocket, broker, ...).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, in Intent) error
}

// Outbox decouples the booking engine from notification latency. Emit only
// enqueues; Run drains the queue into the sinks, each delivery bounded by
// its own timeout and retried a few times before it is given up.
type Outbox struct {
	intents chan Intent
	sinks   []Sink
	timeout time.Duration
	retries int
	backoff time.Duration

	mu     sync.RWMutex
	closed bool
}

type OutboxOption func(*Outbox)

func WithTimeout(d time.Duration) OutboxOption {
	return func(o *Outbox) { o.timeout = d }
}

func WithRetries(n int) OutboxOption {
	return func(o *Outbox) { o.retries = n }
}

func WithBackoff(d time.Duration) OutboxOption {
	return func(o *Outbox) { o.backoff = d }
}

func NewOutbox(buffer int, sinks []Sink, opts ...OutboxOption) *Outbox {
	if buffer <= 0 {
		buffer = 1
	}
	o := &Outbox{
		intents: make(chan Intent, buffer),
		sinks:   sinks,
		timeout: 3 * time.Second,
		retries: 3,
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Emit never blocks. When the buffer is full, or Run has already returned,
// the intent is dropped and logged.
func (o *Outbox) Emit(in Intent) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.dropped(in, "notification outbox stopped, intent dropped")
		return
	}
	select {
	case o.intents <- in:
	default:
		o.dropped(in, "notification outbox full, intent dropped")
	}
}

func (o *Outbox) dropped(in Intent, msg string) {
	metrics.NotificationsTotal.WithLabelValues("outbox", "dropped").Inc()
	log.Warn().Str("intent_id", in.ID).Str("kind", string(in.Kind)).Uint("requester_id", in.RequesterID).Msg(msg)
}

// Run delivers intents until ctx is done, then drains what is already
// queued using a fresh short-lived context.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case in := <-o.intents:
			if ctx.Err() != nil {
				o.drain(in)
				return
			}
			o.dispatch(ctx, in)
		case <-ctx.Done():
			o.drain()
			return
		}
	}
}

// drain delivers pending plus everything still buffered. Emit is closed
// first so nothing lands in the channel after it has been emptied.
func (o *Outbox) drain(pending ...Intent) {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(o.retries+1)*(o.timeout+o.backoff))
	defer cancel()
	for _, in := range pending {
		o.dispatch(ctx, in)
	}
	for {
		select {
		case in := <-o.intents:
			o.dispatch(ctx, in)
		default:
			return
		}
	}
}

func (o *Outbox) dispatch(ctx context.Context, in Intent) {
	for _, s := range o.sinks {
		if err := o.deliver(ctx, s, in); err != nil {
			metrics.NotificationsTotal.WithLabelValues(s.Name(), "failed").Inc()
			log.Error().Err(err).Str("sink", s.Name()).Str("intent_id", in.ID).Str("kind", string(in.Kind)).Msg("notification delivery failed")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(s.Name(), "delivered").Inc()
	}
}

func (o *Outbox) deliver(ctx context.Context, s Sink, in Intent) error {
	var err error
	for attempt := 0; attempt <= o.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * o.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		err = s.Deliver(attemptCtx, in)
		cancel()
		if err == nil {
			return nil
		}
		log.Debug().Err(err).Str("sink", s.Name()).Int("attempt", attempt+1).Msg("notification attempt failed")
	}
	return err
}
