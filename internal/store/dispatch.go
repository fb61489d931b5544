package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dispatch sends an action into the store.
//
// When the store is idle the action is processed before Dispatch returns:
// action listeners, reducer, state listeners, then effect scheduling. When a
// turn is already running the action is queued and that turn processes it.
// Dispatch on a destroyed store is a logged no-op.
func (s *Store[S, A, D]) Dispatch(action A) {
	if err := s.TryDispatch(action); err != nil {
		s.logger.Warn("dispatch dropped", "action", actionName(action), "error", err)
	}
}

// Send is an alias for Dispatch.
func (s *Store[S, A, D]) Send(action A) { s.Dispatch(action) }

// TryDispatch is Dispatch that reports a destroyed store instead of logging.
func (s *Store[S, A, D]) TryDispatch(action A) error {
	if !s.queue.Enqueue(action) {
		return newDestroyedError(s.id)
	}
	s.drain()
	return nil
}

// Settle blocks until no turn is running and the queue is empty.
// Must not be called from a listener: the listener runs inside the turn.
func (s *Store[S, A, D]) Settle() {
	s.turn.Lock()
	s.drainLocked()
	s.turn.Unlock()
	s.drain()
}

// drain takes the turn if it is free and processes queued actions.
// If another goroutine holds the turn, it will see our action: the holder
// re-checks the queue after releasing the turn.
func (s *Store[S, A, D]) drain() {
	for s.queue.Len() > 0 {
		if !s.turn.TryLock() {
			return
		}
		func() {
			defer s.turn.Unlock()
			s.drainLocked()
		}()
	}
}

// drainLocked processes actions until the queue is empty. Caller holds turn.
func (s *Store[S, A, D]) drainLocked() {
	for {
		action, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		s.process(action)
	}
}

// process runs one action through listeners and the reducer.
// CRITICAL: called only with the turn held.
func (s *Store[S, A, D]) process(action A) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	actionSubs := s.actionSubs
	s.mu.Unlock()

	seq := s.seq.Next()
	name := actionName(action)
	_, span := s.tracer.Start(context.Background(), "store.dispatch",
		trace.WithAttributes(
			attribute.String("reflux.store", s.id),
			attribute.String("reflux.action", name),
			attribute.Int64("reflux.seq", seq),
		),
	)
	defer span.End()

	for _, sub := range actionSubs {
		sub.fn(action)
	}

	s.mu.Lock()
	current := s.state
	s.mu.Unlock()

	next, eff := s.reducer.Reduce(current, action, s.deps)

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.state = next
	stateSubs := s.stateSubs
	s.mu.Unlock()

	for _, sub := range stateSubs {
		sub.fn(next)
	}

	s.logger.Debug("action processed",
		"seq", seq,
		"action", name,
		"effect", eff.String(),
	)
	span.SetAttributes(attribute.String("reflux.effect", eff.Kind().String()))

	s.schedule(eff)
}

func actionName(action any) string {
	if action == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", action)
}
