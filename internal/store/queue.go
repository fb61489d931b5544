package store

import "sync"

// actionQueue is the FIFO of actions waiting for a turn.
//
// The queue is unbounded so an effect that sends many actions never blocks on
// a busy store. Safe for concurrent use.
type actionQueue[A any] struct {
	mu      sync.Mutex
	actions []A
	closed  bool
}

func newActionQueue[A any]() *actionQueue[A] {
	return &actionQueue[A]{
		actions: make([]A, 0, 16),
	}
}

// Enqueue adds an action to the back of the queue.
// Returns false if the queue is closed.
func (q *actionQueue[A]) Enqueue(a A) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.actions = append(q.actions, a)
	return true
}

// TryDequeue removes the front action without blocking.
func (q *actionQueue[A]) TryDequeue() (A, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero A
	if len(q.actions) == 0 {
		return zero, false
	}

	a := q.actions[0]
	// Clear the slot so the backing array does not pin the action.
	q.actions[0] = zero
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Len returns the number of queued actions.
func (q *actionQueue[A]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Close drops queued actions and rejects further enqueues.
func (q *actionQueue[A]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.actions = nil
}
