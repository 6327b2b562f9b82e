package viewer

import "context"

// DefaultQueueSize is the completion queue capacity used by the viewer.
const DefaultQueueSize = 256

// Queue carries callbacks from loader goroutines to the render thread.
type Queue struct {
	ch chan func()
}

// NewQueue creates a queue holding up to size pending callbacks.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan func(), size)}
}

// Post enqueues fn, blocking while the queue is full. It returns false if
// ctx ends first, in which case fn never runs.
func (q *Queue) Post(ctx context.Context, fn func()) bool {
	select {
	case q.ch <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

// Drain runs every callback queued so far and returns how many ran.
// Callbacks posted while draining wait for the next call.
func (q *Queue) Drain() int {
	n := len(q.ch)
	for i := 0; i < n; i++ {
		fn := <-q.ch
		fn()
	}
	return n
}

// Len returns the number of pending callbacks.
func (q *Queue) Len() int {
	return len(q.ch)
}
