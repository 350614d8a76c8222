package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

const DefaultFlushInterval = 5 * time.Second

var ErrEmitterRunning = errors.New("emitter already running")

// Emitter drains a Queue on a fixed interval and forwards each batch to a
// sink. Delivery is best effort: a failed batch is logged and dropped, and
// the next cycle proceeds normally.
type Emitter struct {
	queue    *Queue
	sink     domain.EventSink
	interval time.Duration
	metrics  *observability.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewEmitter(queue *Queue, sink domain.EventSink, interval time.Duration, metrics *observability.Metrics) *Emitter {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Emitter{
		queue:    queue,
		sink:     sink,
		interval: interval,
		metrics:  metrics,
	}
}

// Start launches the flush loop. It returns immediately; call Stop to end
// the loop, which performs one final flush.
func (e *Emitter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return ErrEmitterRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.loop(loopCtx, e.done)
	return nil
}

// Stop ends the flush loop and waits for the final flush. Events published
// after the loop already exited (its context was cancelled first) are
// delivered here too. Safe to call on a stopped emitter.
func (e *Emitter) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), e.interval)
	defer cancelFlush()
	e.Flush(flushCtx)
}

func (e *Emitter) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Flush whatever is left with a fresh context; the loop context is gone.
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.interval)
			e.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			e.Flush(ctx)
		}
	}
}

// Flush drains the queue once and delivers the batch. It returns the number
// of events delivered; failures are logged, never returned.
func (e *Emitter) Flush(ctx context.Context) int {
	batch := e.queue.Drain()
	if len(batch) == 0 {
		return 0
	}

	log := observability.LoggerFromContext(ctx).With("batch_size", len(batch))

	if err := e.deliver(ctx, batch); err != nil {
		e.metrics.BatchFailed()
		log.Error("event batch delivery failed", "error", err)
		return 0
	}

	e.metrics.BatchDelivered(len(batch))
	log.Debug("event batch delivered")
	return len(batch)
}

// deliver shields the loop from a panicking sink.
func (e *Emitter) deliver(ctx context.Context, batch []domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("event sink panicked")
		}
	}()
	return e.sink.Deliver(ctx, batch)
}
