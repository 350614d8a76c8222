package events

import (
	"sync"

	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

// Queue is an unbounded FIFO buffer of analytics events. It implements
// domain.EventPublisher and is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending []domain.Event
	metrics *observability.Metrics
}

func NewQueue(metrics *observability.Metrics) *Queue {
	return &Queue{metrics: metrics}
}

// Publish appends an event. It never blocks on delivery.
func (q *Queue) Publish(evt domain.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, evt)
	q.mu.Unlock()

	q.metrics.EventEnqueued(string(evt.Type))
}

// Drain atomically takes every buffered event, oldest first.
func (q *Queue) Drain() []domain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Len reports how many events are waiting for the next flush.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
