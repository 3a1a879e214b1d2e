package proxy

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// Envelope wraps one daemon event on its way from the listener to the
// dispatcher.
type Envelope struct {
	ID    uuid.UUID
	Seq   uint64
	Event *daemon.Event
}

// eventQueue is a bounded FIFO with a single consumer. A full queue makes
// the producer wait rather than drop.
type eventQueue struct {
	mu       sync.Mutex
	items    []*Envelope
	capacity int
	closed   bool
	ready    chan struct{}
	space    chan struct{}
}

// newEventQueue returns a queue holding at most capacity envelopes.
// A capacity of zero or less uses common.QueueCapacity.
func newEventQueue(capacity int) *eventQueue {
	if capacity <= 0 {
		capacity = common.QueueCapacity
	}
	return &eventQueue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Push appends env, waiting while the queue is full. It fails once the
// queue is closed or ctx ends.
func (q *eventQueue) Push(ctx context.Context, env *Envelope) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return common.ErrListenerStopped
		}
		if len(q.items) < q.capacity {
			q.items = append(q.items, env)
			q.mu.Unlock()
			wake(q.ready)
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-ctx.Done():
			return common.ErrCancelled
		}
	}
}

// Pop blocks for the next envelope. After Close it drains what is left and
// then returns ErrListenerStopped.
func (q *eventQueue) Pop(ctx context.Context) (*Envelope, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			wake(q.space)
			return env, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, common.ErrListenerStopped
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, common.ErrCancelled
		}
	}
}

// Close stops further pushes and wakes both sides.
func (q *eventQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	wake(q.ready)
	wake(q.space)
}

// Len returns the number of queued envelopes.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
