package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/reflux/internal/clock"
	"github.com/roach88/reflux/internal/effect"
)

// namespace separates bookkeeping tables that share an id.
type namespace uint8

const (
	// nsCancel holds Cancellable and AfterDelay tokens.
	nsCancel namespace = iota + 1
	nsDebounce
	nsThrottle
)

type key struct {
	ns namespace
	id string
}

// token is the cancellation handle for one keyed execution.
// timer is set while the execution waits on a delay.
type token struct {
	key    key
	ctx    context.Context
	cancel context.CancelFunc
	timer  clock.Timer
}

func (t *token) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.cancel()
}

// schedule starts the work described by eff. Never fails: unknown kinds are
// logged and skipped.
func (s *Store[S, A, D]) schedule(eff effect.Effect[A]) {
	switch eff.Kind() {
	case effect.KindNone:
		return

	case effect.KindRun:
		s.spawn(eff, s.ctx, nil)

	case effect.KindFireAndForget:
		s.spawnTask(eff)

	case effect.KindBatch:
		for _, child := range eff.Children() {
			s.schedule(child)
		}

	case effect.KindCancellable:
		tok, ok := s.replaceToken(key{ns: nsCancel, id: eff.ID()})
		if !ok {
			return
		}
		s.spawn(eff, tok.ctx, tok)

	case effect.KindDebounced:
		s.startDelayed(eff, key{ns: nsDebounce, id: eff.ID()}, eff.Delay())

	case effect.KindAfterDelay:
		s.startDelayed(eff, key{ns: nsCancel, id: eff.ID()}, eff.Delay())

	case effect.KindThrottled:
		k := key{ns: nsThrottle, id: eff.ID()}
		now := s.clock.Now()
		s.mu.Lock()
		if s.destroyed {
			s.mu.Unlock()
			return
		}
		last, seen := s.throttles[k]
		if seen && now.Sub(last) < eff.Interval() {
			s.mu.Unlock()
			s.logger.Debug("throttled effect dropped",
				"effect_id", eff.ID(),
				"since_last", now.Sub(last),
				"interval", eff.Interval(),
			)
			return
		}
		s.throttles[k] = now
		s.mu.Unlock()
		s.spawn(eff, s.ctx, nil)

	default:
		err := &Error{
			Code:     ErrCodeUnknownEffect,
			Message:  "effect kind cannot be scheduled: " + eff.Kind().String(),
			StoreID:  s.id,
			EffectID: eff.ID(),
		}
		s.logger.Error("effect skipped", "error", err)
	}
}

// replaceToken cancels whatever holds k and installs a fresh token.
// Returns false if the store is destroyed.
func (s *Store[S, A, D]) replaceToken(k key) (*token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, false
	}
	if old, ok := s.tokens[k]; ok {
		old.stop()
		s.logger.Debug("effect superseded", "effect_id", k.id)
	}
	ctx, cancel := context.WithCancel(s.ctx)
	tok := &token{key: k, ctx: ctx, cancel: cancel}
	s.tokens[k] = tok
	return tok, true
}

// startDelayed installs a token under k whose body runs after delay.
// Re-issuing k before the timer fires resets it (debounce); cancelling the
// token clears it (afterDelay).
func (s *Store[S, A, D]) startDelayed(eff effect.Effect[A], k key, delay time.Duration) {
	tok, ok := s.replaceToken(k)
	if !ok {
		return
	}
	timer := s.clock.AfterFunc(delay, func() {
		if tok.ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		tok.timer = nil
		s.mu.Unlock()
		s.spawn(eff, tok.ctx, tok)
	})

	s.mu.Lock()
	// The timer may already have fired on a zero delay.
	if s.tokens[k] == tok && tok.ctx.Err() == nil {
		tok.timer = timer
	}
	s.mu.Unlock()
}

// release forgets tok once its body has returned, unless it was superseded.
func (s *Store[S, A, D]) release(tok *token) {
	s.mu.Lock()
	if s.tokens[tok.key] == tok {
		delete(s.tokens, tok.key)
	}
	s.mu.Unlock()
	tok.cancel()
}

// spawn runs the body of eff on its own goroutine under ctx.
// Actions sent after ctx is cancelled are dropped.
func (s *Store[S, A, D]) spawn(eff effect.Effect[A], ctx context.Context, tok *token) {
	op := eff.Operation()
	if op == nil {
		if tok != nil {
			s.release(tok)
		}
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Add(-1)
		if tok != nil {
			defer s.release(tok)
		}

		attrs := []attribute.KeyValue{
			attribute.String("reflux.store", s.id),
			attribute.String("reflux.effect", eff.Kind().String()),
		}
		if eff.Kind().Keyed() {
			attrs = append(attrs, attribute.String("reflux.effect_id", eff.ID()))
		}
		ctx, span := s.tracer.Start(ctx, "store.effect", trace.WithAttributes(attrs...))
		defer span.End()

		send := func(action A) {
			if ctx.Err() != nil {
				s.logger.Debug("action from cancelled effect dropped",
					"effect", eff.String(),
					"action", actionName(action),
				)
				return
			}
			s.Dispatch(action)
		}
		op(ctx, send)
	}()
}

func (s *Store[S, A, D]) spawnTask(eff effect.Effect[A]) {
	task := eff.Task()
	if task == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Add(-1)
		ctx, span := s.tracer.Start(s.ctx, "store.effect", trace.WithAttributes(
			attribute.String("reflux.store", s.id),
			attribute.String("reflux.effect", eff.Kind().String()),
		))
		defer span.End()
		task(ctx)
	}()
}

// Cancel cancels every effect registered under id: running Cancellable and
// Debounced bodies, pending Debounced and AfterDelay timers. It also forgets
// the Throttled window for id, so the next Throttled runs immediately.
func (s *Store[S, A, D]) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ns := range []namespace{nsCancel, nsDebounce} {
		k := key{ns: ns, id: id}
		if tok, ok := s.tokens[k]; ok {
			tok.stop()
			delete(s.tokens, k)
		}
	}
	delete(s.throttles, key{ns: nsThrottle, id: id})
}

// ActiveEffects returns the number of keyed executions that are pending or
// running.
func (s *Store[S, A, D]) ActiveEffects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
