package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/reflux/internal/clock"
	"github.com/roach88/reflux/internal/effect"
	"github.com/roach88/reflux/internal/reducer"
	"github.com/roach88/reflux/internal/store"
)

// DefaultTimeout bounds Receive and Finish when no timeout is given.
const DefaultTimeout = time.Second

// Epoch is the default start time of the virtual clock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Reporter is the part of testing.TB the harness reports through.
type Reporter interface {
	Helper()
	Errorf(format string, args ...any)
}

// Phase is the lifecycle position of a TestStore.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseVerified
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseVerified:
		return "verified"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Source says who dispatched a traced action.
type Source string

const (
	SourceSend   Source = "send"
	SourceEffect Source = "effect"
)

// TraceStep is one dispatched action as seen by the TestStore.
type TraceStep[A any] struct {
	Seq    int64
	Source Source
	Action A
}

// envelope tags actions fed back by effects.
type envelope[A any] struct {
	action     A
	fromEffect bool
}

// record is a TraceStep plus the state the reducer produced for it.
type record[S, A any] struct {
	TraceStep[A]
	state   S
	reduced bool
}

// Option configures a TestStore.
type Option func(*config)

type config struct {
	exhaustive bool
	timeout    time.Duration
	start      time.Time
	logger     *slog.Logger
}

// WithNonExhaustive disables the unreceived-action and pending-effect checks
// in Send and Finish.
func WithNonExhaustive() Option {
	return func(c *config) {
		c.exhaustive = false
	}
}

// WithTimeout sets the default wait for Receive and Finish.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithStart sets the initial virtual time.
func WithStart(t time.Time) Option {
	return func(c *config) {
		c.start = t
	}
}

// WithLogger routes store logs. Default: discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// TestStore runs a reducer under test.
//
// Methods are meant to be called from the test goroutine only. Effect bodies
// still run on their own goroutines; the harness waits for them where needed.
type TestStore[S, A, D any] struct {
	t     Reporter
	cfg   config
	clock *clock.Virtual
	store *store.Store[S, envelope[A], D]

	arrived chan struct{}

	mu       sync.Mutex
	trace    []*record[S, A]
	last     *record[S, A]
	pending  []*record[S, A]
	phase    Phase
	failed   bool
	finished bool
}

// New wraps r in a store driven by a virtual clock.
func New[S, A, D any](t Reporter, initial S, r reducer.Reducer[S, A, D], deps D, opts ...Option) *TestStore[S, A, D] {
	t.Helper()
	cfg := config{
		exhaustive: true,
		timeout:    DefaultTimeout,
		start:      Epoch,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ts := &TestStore[S, A, D]{
		t:       t,
		cfg:     cfg,
		clock:   clock.NewVirtual(cfg.start),
		arrived: make(chan struct{}, 1),
	}

	wrapped := reducer.Func[S, envelope[A], D](func(s S, env envelope[A], deps D) (S, effect.Effect[envelope[A]]) {
		next, eff := r.Reduce(s, env.action, deps)
		return next, effect.Map(eff, func(a A) envelope[A] {
			return envelope[A]{action: a, fromEffect: true}
		})
	})

	ts.store = store.New[S, envelope[A], D](initial, wrapped, deps,
		store.WithID("test-store"),
		store.WithClock(ts.clock),
		store.WithLogger(cfg.logger),
	)
	ts.store.SubscribeToActions(ts.onAction)
	ts.store.Subscribe(ts.onState)
	return ts
}

func (ts *TestStore[S, A, D]) onAction(env envelope[A]) {
	rec := &record[S, A]{TraceStep: TraceStep[A]{
		Seq:    ts.store.Seq(),
		Source: SourceSend,
		Action: env.action,
	}}
	if env.fromEffect {
		rec.Source = SourceEffect
	}

	ts.mu.Lock()
	ts.trace = append(ts.trace, rec)
	ts.last = rec
	if env.fromEffect {
		ts.pending = append(ts.pending, rec)
	}
	ts.mu.Unlock()

	if env.fromEffect {
		select {
		case ts.arrived <- struct{}{}:
		default:
		}
	}
}

// onState pairs the reduced state with the action that produced it. State
// listeners run in the same turn as the action listener, so last is that
// action.
func (ts *TestStore[S, A, D]) onState(s S) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.last != nil && !ts.last.reduced {
		ts.last.state = s
		ts.last.reduced = true
	}
}

func (ts *TestStore[S, A, D]) fail(format string, args ...any) {
	ts.t.Helper()
	ts.mu.Lock()
	ts.failed = true
	ts.mu.Unlock()
	ts.t.Errorf(format, args...)
}

// begin guards every operation against use after Finish.
func (ts *TestStore[S, A, D]) begin(op string) bool {
	ts.t.Helper()
	ts.mu.Lock()
	finished := ts.finished
	ts.mu.Unlock()
	if finished {
		ts.fail("%s called after Finish", op)
		return false
	}
	return true
}

// Send dispatches action, waits for the store to settle and runs each
// assertion against the state the reducer produced for action.
func (ts *TestStore[S, A, D]) Send(action A, asserts ...func(S) error) bool {
	ts.t.Helper()
	if !ts.begin("Send") {
		return false
	}
	if ts.cfg.exhaustive {
		if unreceived := ts.unreceived(); len(unreceived) > 0 {
			ts.fail("Send(%s): must receive %d action(s) sent by effects first:\n%s",
				describe(action), len(unreceived), formatSteps(unreceived))
			return false
		}
	}

	ts.mu.Lock()
	ts.phase = PhaseSending
	mark := len(ts.trace)
	ts.mu.Unlock()
	defer ts.setPhase(PhaseIdle)

	if err := ts.store.TryDispatch(envelope[A]{action: action}); err != nil {
		ts.fail("Send(%s): %v", describe(action), err)
		return false
	}
	ts.store.Settle()

	state, ok := ts.sentState(mark)
	if !ok {
		ts.fail("Send(%s): action was not processed", describe(action))
		return false
	}
	return ts.check("Send("+describe(action)+")", state, asserts)
}

// sentState finds the first test-sent record at or after mark.
func (ts *TestStore[S, A, D]) sentState(mark int) (S, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, rec := range ts.trace[mark:] {
		if rec.Source == SourceSend {
			return rec.state, rec.reduced
		}
	}
	var zero S
	return zero, false
}

// Receive is ReceiveWithin using the configured timeout.
func (ts *TestStore[S, A, D]) Receive(expected A, asserts ...func(S) error) bool {
	ts.t.Helper()
	return ts.ReceiveWithin(ts.cfg.timeout, expected, asserts...)
}

// ReceiveWithin pops the oldest action fed back by an effect, waiting up to
// timeout for one to arrive, and fails with a diff unless it deep-equals
// expected. Assertions run against the state produced by that action.
func (ts *TestStore[S, A, D]) ReceiveWithin(timeout time.Duration, expected A, asserts ...func(S) error) bool {
	ts.t.Helper()
	if !ts.begin("Receive") {
		return false
	}

	rec, ok := ts.next(timeout)
	if !ok {
		ts.fail("Receive(%s): timed out after %s waiting for an action from an effect",
			describe(expected), timeout)
		return false
	}
	// The action listener fires before the reducer; settling finishes its turn.
	ts.store.Settle()

	if !assert.ObjectsAreEqual(expected, rec.Action) {
		ts.fail("Receive: received action did not match expected:\n%s", Diff(expected, rec.Action))
		return false
	}

	ts.mu.Lock()
	state, reduced := rec.state, rec.reduced
	ts.mu.Unlock()
	if !reduced {
		ts.fail("Receive(%s): action was not processed", describe(expected))
		return false
	}
	return ts.check("Receive("+describe(expected)+")", state, asserts)
}

func (ts *TestStore[S, A, D]) next(timeout time.Duration) (*record[S, A], bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if rec, ok := ts.pop(); ok {
			return rec, true
		}
		select {
		case <-ts.arrived:
		case <-deadline.C:
			return ts.pop()
		}
	}
}

func (ts *TestStore[S, A, D]) pop() (*record[S, A], bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.pending) == 0 {
		return nil, false
	}
	rec := ts.pending[0]
	ts.pending[0] = nil
	ts.pending = ts.pending[1:]
	return rec, true
}

// Skip drops every action currently waiting to be received and returns them.
func (ts *TestStore[S, A, D]) Skip() []TraceStep[A] {
	ts.store.Settle()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]TraceStep[A], 0, len(ts.pending))
	for _, rec := range ts.pending {
		out = append(out, rec.TraceStep)
	}
	ts.pending = nil
	return out
}

// Advance moves the virtual clock forward by d, firing due timers in order,
// then lets the store settle.
func (ts *TestStore[S, A, D]) Advance(d time.Duration) bool {
	ts.t.Helper()
	if !ts.begin("Advance") {
		return false
	}
	ts.clock.Advance(d)
	ts.store.Settle()
	return true
}

// Finish waits up to timeout (default: the configured timeout) for running
// effect bodies, then in exhaustive mode fails on unreceived actions and on
// effects still pending or running. The underlying store is destroyed.
// Finish is terminal: any later call fails.
func (ts *TestStore[S, A, D]) Finish(timeout ...time.Duration) bool {
	ts.t.Helper()
	if !ts.begin("Finish") {
		return false
	}
	wait := ts.cfg.timeout
	if len(timeout) > 0 {
		wait = timeout[0]
	}

	idle := ts.waitIdle(wait)
	ts.store.Settle()

	if ts.cfg.exhaustive {
		if unreceived := ts.unreceived(); len(unreceived) > 0 {
			ts.fail("Finish: %d action(s) sent by effects were not received:\n%s",
				len(unreceived), formatSteps(unreceived))
		}
		if !idle {
			ts.fail("Finish: %d effect(s) still running after %s", ts.store.InFlight(), wait)
		}
		if n := ts.clock.Pending(); n > 0 {
			ts.fail("Finish: %d timer(s) still pending; advance the clock or cancel them", n)
		}
	}

	ts.store.Destroy()

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.finished = true
	if ts.failed {
		ts.phase = PhaseFailed
	} else {
		ts.phase = PhaseVerified
	}
	return !ts.failed
}

func (ts *TestStore[S, A, D]) waitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for ts.store.InFlight() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

func (ts *TestStore[S, A, D]) check(op string, state S, asserts []func(S) error) bool {
	ts.t.Helper()
	ok := true
	for _, fn := range asserts {
		if fn == nil {
			continue
		}
		if err := fn(state); err != nil {
			ts.fail("%s: %v", op, err)
			ok = false
		}
	}
	return ok
}

func (ts *TestStore[S, A, D]) unreceived() []TraceStep[A] {
	ts.store.Settle()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]TraceStep[A], 0, len(ts.pending))
	for _, rec := range ts.pending {
		out = append(out, rec.TraceStep)
	}
	return out
}

func (ts *TestStore[S, A, D]) setPhase(p Phase) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.finished {
		ts.phase = p
	}
}

// Phase returns the lifecycle phase.
func (ts *TestStore[S, A, D]) Phase() Phase {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.phase
}

// Failed reports whether any check has failed.
func (ts *TestStore[S, A, D]) Failed() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.failed
}

// State returns the store's current state.
func (ts *TestStore[S, A, D]) State() S {
	return ts.store.State()
}

// Now returns the virtual time.
func (ts *TestStore[S, A, D]) Now() time.Time {
	return ts.clock.Now()
}

// Trace returns every dispatched action in processing order.
func (ts *TestStore[S, A, D]) Trace() []TraceStep[A] {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]TraceStep[A], len(ts.trace))
	for i, rec := range ts.trace {
		out[i] = rec.TraceStep
	}
	return out
}

// ActiveEffects returns the number of keyed effects pending or running.
func (ts *TestStore[S, A, D]) ActiveEffects() int {
	return ts.store.ActiveEffects()
}

func formatSteps[A any](steps []TraceStep[A]) string {
	var b strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&b, "  [seq %d] %s\n", s.Seq, describe(s.Action))
	}
	return b.String()
}
