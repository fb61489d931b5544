package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/reflux/internal/clock"
	"github.com/roach88/reflux/internal/reducer"
)

const tracerName = "github.com/roach88/reflux/internal/store"

// Store owns the current state for one reducer and runs its effects.
//
// Thread-safety model:
//   - Dispatch, Subscribe, SubscribeToActions, State, Cancel, Destroy:
//     safe from any goroutine, including listeners and effect bodies
//   - Settle: safe from any goroutine except a listener (it waits for the turn)
//   - Dispatch is synchronous only for the caller that takes the turn. While
//     another goroutine holds it, Dispatch queues the action and returns
//     before it is reduced; call Settle before reading State
//
// INVARIANTS:
//   - at most one turn processes actions at a time
//   - listeners are never called while the store's lock is held
//   - after Destroy no effect body can feed an action back
type Store[S, A, D any] struct {
	id      string
	reducer reducer.Reducer[S, A, D]
	deps    D
	clock   clock.Clock
	seq     *clock.Sequence
	logger  *slog.Logger
	tracer  trace.Tracer

	turn  sync.Mutex
	queue *actionQueue[A]

	// Root context of every effect body. Cancelled by Destroy.
	ctx    context.Context
	cancel context.CancelFunc

	inflight atomic.Int64

	mu         sync.Mutex
	state      S
	destroyed  bool
	nextSub    uint64
	stateSubs  []subscriber[func(S)]
	actionSubs []subscriber[func(A)]
	tokens     map[key]*token
	throttles  map[key]time.Time
}

type subscriber[F any] struct {
	id uint64
	fn F
}

// Option configures a Store.
type Option func(*config)

type config struct {
	id     string
	clock  clock.Clock
	seq    *clock.Sequence
	logger *slog.Logger
	tracer trace.Tracer
}

// WithID sets the store id used in logs, spans and journals.
// Default: a fresh UUIDv7.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithClock sets the clock that drives debounce, throttle and delay timers.
// Default: clock.Real().
func WithClock(cl clock.Clock) Option {
	return func(c *config) {
		c.clock = cl
	}
}

// WithSequence resumes action numbering from an existing sequence, for
// example after replaying a journal.
func WithSequence(seq *clock.Sequence) Option {
	return func(c *config) {
		c.seq = seq
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer for dispatch and effect spans.
// Default: the global tracer provider, which is a no-op until configured.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// New creates a store holding initial and reducing with r.
// deps is passed to every reducer call and never inspected.
func New[S, A, D any](initial S, r reducer.Reducer[S, A, D], deps D, opts ...Option) *Store[S, A, D] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.Must(uuid.NewV7()).String()
	}
	if cfg.clock == nil {
		cfg.clock = clock.Real()
	}
	if cfg.seq == nil {
		cfg.seq = clock.NewSequence()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store[S, A, D]{
		id:        cfg.id,
		reducer:   r,
		deps:      deps,
		clock:     cfg.clock,
		seq:       cfg.seq,
		logger:    cfg.logger.With("store", cfg.id),
		tracer:    cfg.tracer,
		queue:     newActionQueue[A](),
		ctx:       ctx,
		cancel:    cancel,
		state:     initial,
		tokens:    make(map[key]*token),
		throttles: make(map[key]time.Time),
	}
}

// ID returns the store id.
func (s *Store[S, A, D]) ID() string { return s.id }

// State returns the current state.
func (s *Store[S, A, D]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seq returns the sequence number of the last processed action.
func (s *Store[S, A, D]) Seq() int64 { return s.seq.Current() }

// InFlight returns the number of effect bodies currently executing.
func (s *Store[S, A, D]) InFlight() int { return int(s.inflight.Load()) }

// Subscribe registers listener for every state replacement. listener is
// called once immediately with the current state. The returned function
// unsubscribes; calling it more than once is harmless.
func (s *Store[S, A, D]) Subscribe(listener func(S)) (unsubscribe func()) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextSub++
	id := s.nextSub
	s.stateSubs = append(s.stateSubs, subscriber[func(S)]{id: id, fn: listener})
	current := s.state
	s.mu.Unlock()

	listener(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stateSubs = removeSubscriber(s.stateSubs, id)
	}
}

// SubscribeToActions registers listener for every dispatched action, called
// in dispatch order before the reducer sees the action.
func (s *Store[S, A, D]) SubscribeToActions(listener func(A)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return func() {}
	}
	s.nextSub++
	id := s.nextSub
	s.actionSubs = append(s.actionSubs, subscriber[func(A)]{id: id, fn: listener})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.actionSubs = removeSubscriber(s.actionSubs, id)
	}
}

// Destroy cancels every outstanding effect, stops all timers and clears
// subscribers. Idempotent.
func (s *Store[S, A, D]) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	cancelled := len(s.tokens)
	for k, tok := range s.tokens {
		tok.stop()
		delete(s.tokens, k)
	}
	clear(s.throttles)
	s.stateSubs = nil
	s.actionSubs = nil
	s.mu.Unlock()

	s.cancel()
	s.queue.Close()

	s.logger.Debug("store destroyed", "cancelled_effects", cancelled)
}

// Destroyed reports whether Destroy has been called.
func (s *Store[S, A, D]) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func removeSubscriber[F any](subs []subscriber[F], id uint64) []subscriber[F] {
	for i, sub := range subs {
		if sub.id == id {
			out := make([]subscriber[F], 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}
