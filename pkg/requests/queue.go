package requests

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is the only reason Push can fail
var ErrQueueClosed = errors.New("requests queue closed")

// Queue is an unbounded FIFO shared by any number of producers and consumers.
// Items are popped in the order their pushes completed.
type Queue struct {
	mu     sync.Mutex
	items  []Request
	closed bool

	ready chan struct{}
	done  chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends r. It never blocks and never drops.
func (q *Queue) Push(r Request) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, r)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Pop blocks until a request is available, the queue is closed and empty,
// or ctx is done.
func (q *Queue) Pop(ctx context.Context) (Request, error) {
	for {
		if r, ok := q.TryPop(); ok {
			return r, nil
		}

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Request{}, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return Request{}, ctx.Err()
		case <-q.ready:
		case <-q.done:
		}
	}
}

// TryPop returns the oldest request without blocking
func (q *Queue) TryPop() (Request, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return Request{}, false
	}
	r := q.items[0]
	q.items[0] = Request{}
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()

	// pass the wakeup on so a second waiting consumer sees the rest
	if remaining > 0 {
		q.signal()
	}
	return r, true
}

// Drain removes and returns every queued request in FIFO order
func (q *Queue) Drain() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued requests
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes. Queued requests can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
