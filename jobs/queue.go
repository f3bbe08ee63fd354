package jobs

import (
	"sync"

	"github.com/container-engine/container-engine/domain/model"
)

// DefaultQueueCapacity bounds how many operations may wait for the worker.
const DefaultQueueCapacity = 100

// Queue is a bounded FIFO of deployment jobs. Enqueue never blocks: when the
// queue is full it fails fast with model.ErrQueueSaturated so the caller can
// compensate instead of waiting.
type Queue struct {
	ch     chan model.Job
	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given capacity (DefaultQueueCapacity
// when zero or negative).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{ch: make(chan model.Job, capacity)}
}

// Enqueue adds a job or fails immediately when the queue is saturated or
// closed.
func (q *Queue) Enqueue(job model.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return model.ErrQueueSaturated
	}
	select {
	case q.ch <- job:
		return nil
	default:
		return model.ErrQueueSaturated
	}
}

// Jobs returns the receive side consumed by the worker. The channel closes
// after Close once drained.
func (q *Queue) Jobs() <-chan model.Job { return q.ch }

// Len reports how many jobs are currently waiting.
func (q *Queue) Len() int { return len(q.ch) }

// Close stops accepting jobs. Jobs already queued remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
