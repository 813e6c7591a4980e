package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-commerce/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
)

const componentOutbox = "outbox"

var ErrBusClosed = errors.New("outbox: bus closed")

type BusOptions struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

func (o BusOptions) withDefaults() BusOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = 30 * time.Second
	}
	return o
}

// Bus is an in-process event bus. Publish only enqueues; a single dispatcher
// fans each event out to its handlers. Events still queued at Stop are drained.
// It is not durable: events are lost if the process dies.
type Bus struct {
	subMu   sync.RWMutex
	subs    map[string][]domoutbox.Handler
	mu      sync.RWMutex // guards closed and sends on queue
	closed  bool
	queue   chan domoutbox.Event
	done    chan struct{}
	opts    BusOptions
	started sync.Once
	stopped sync.Once
	log     observability.Logger
	handled observability.Counter // events_handled_total{event,result}
}

func NewBus(tel observability.Observability, opts BusOptions) *Bus {
	tel = observability.OrNop(tel)
	opts = opts.withDefaults()
	return &Bus{
		subs:    make(map[string][]domoutbox.Handler),
		queue:   make(chan domoutbox.Event, opts.QueueSize),
		done:    make(chan struct{}),
		opts:    opts,
		log:     tel.Logger().With(observability.F("component", componentOutbox)),
		handled: tel.Metrics().Counter(observability.MEventsHandled),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatcher. Handler contexts derive from ctx without its cancellation.
func (b *Bus) Start(ctx context.Context) {
	b.started.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events and waits for the queue to drain or ctx to end.
func (b *Bus) Stop(ctx context.Context) error {
	b.stopped.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
	})

	// A bus that was never started has nothing to drain.
	b.started.Do(func() { close(b.done) })

	logger := logctx.FromOr(ctx, b.log)
	select {
	case <-b.done:
		logger.Info("event_bus_stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("event_bus_stop_timeout", observability.F("pending", len(b.queue)))
		return ctx.Err()
	}
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		logger.Warn("event_rejected_bus_closed")
		return ErrBusClosed
	}
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.Err(ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()
	logger := b.log.With(observability.F("event", name))

	b.subMu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.subMu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		b.handled.Add(1, observability.L("event", name), observability.L("result", "dropped"))
		return
	}

	sem := make(chan struct{}, b.opts.Concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			result := "success"
			defer func() {
				if r := recover(); r != nil {
					result = "panic"
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				b.handled.Add(1, observability.L("event", name), observability.L("result", result))
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.opts.HandlerTimeout)
			defer cancel()
			hctx = logctx.With(hctx, logger)
			if err := h(hctx, e); err != nil {
				result = "error"
				logger.Warn("event_handler_error", observability.Err(err))
			}
		}()
	}

	wg.Wait()
	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}
