package effect

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies an effect variant.
type Kind int

const (
	KindNone Kind = iota
	KindRun
	KindFireAndForget
	KindBatch
	KindCancellable
	KindDebounced
	KindThrottled
	KindAfterDelay
)

var kindNames = [...]string{
	KindNone:          "none",
	KindRun:           "run",
	KindFireAndForget: "fireAndForget",
	KindBatch:         "batch",
	KindCancellable:   "cancellable",
	KindDebounced:     "debounced",
	KindThrottled:     "throttled",
	KindAfterDelay:    "afterDelay",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Keyed reports whether effects of this kind are coordinated by id.
func (k Kind) Keyed() bool {
	switch k {
	case KindCancellable, KindDebounced, KindThrottled, KindAfterDelay:
		return true
	default:
		return false
	}
}

// Send feeds an action back into the store that scheduled the effect.
type Send[A any] func(A)

// Operation is the body of every effect that may send actions.
// ctx is cancelled when the execution is superseded or the store is destroyed.
type Operation[A any] func(ctx context.Context, send Send[A])

// Task is the body of a FireAndForget effect.
type Task func(ctx context.Context)

// Effect is an immutable description of work. The zero value is None.
type Effect[A any] struct {
	kind     Kind
	id       string
	delay    time.Duration
	op       Operation[A]
	task     Task
	children []Effect[A]
}

// Kind returns the variant.
func (e Effect[A]) Kind() Kind { return e.kind }

// ID returns the coordination id of a keyed effect, "" otherwise.
func (e Effect[A]) ID() string { return e.id }

// Delay returns the delay of a Debounced or AfterDelay effect.
func (e Effect[A]) Delay() time.Duration {
	if e.kind == KindDebounced || e.kind == KindAfterDelay {
		return e.delay
	}
	return 0
}

// Interval returns the window of a Throttled effect.
func (e Effect[A]) Interval() time.Duration {
	if e.kind == KindThrottled {
		return e.delay
	}
	return 0
}

// Children returns a copy of a Batch's child effects.
func (e Effect[A]) Children() []Effect[A] {
	if len(e.children) == 0 {
		return nil
	}
	out := make([]Effect[A], len(e.children))
	copy(out, e.children)
	return out
}

// IsNone reports whether the effect schedules no work.
func (e Effect[A]) IsNone() bool { return e.kind == KindNone }

// Operation returns the body of a sending effect, nil for None, Batch and FireAndForget.
func (e Effect[A]) Operation() Operation[A] { return e.op }

// Task returns the body of a FireAndForget effect.
func (e Effect[A]) Task() Task { return e.task }

func (e Effect[A]) String() string {
	switch e.kind {
	case KindBatch:
		return fmt.Sprintf("batch(%d)", len(e.children))
	case KindCancellable:
		return fmt.Sprintf("cancellable(%q)", e.id)
	case KindDebounced, KindThrottled, KindAfterDelay:
		return fmt.Sprintf("%s(%q, %s)", e.kind, e.id, e.delay)
	default:
		return e.kind.String()
	}
}

// None returns an effect that does nothing.
func None[A any]() Effect[A] { return Effect[A]{} }

// Run executes op on the next asynchronous turn. op may send zero or more actions.
// Failures must be turned into actions by op itself.
func Run[A any](op Operation[A]) Effect[A] {
	if op == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindRun, op: op}
}

// FireAndForget executes task asynchronously. It cannot send actions.
func FireAndForget[A any](task Task) Effect[A] {
	if task == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindFireAndForget, task: task}
}

// Batch schedules every child concurrently. Completion order is unspecified.
func Batch[A any](effects ...Effect[A]) Effect[A] {
	children := make([]Effect[A], len(effects))
	copy(children, effects)
	return Effect[A]{kind: KindBatch, children: children}
}

// Merge is Batch without the noise: None children are dropped, and zero or one
// remaining children are returned unwrapped.
func Merge[A any](effects ...Effect[A]) Effect[A] {
	var kept []Effect[A]
	for _, e := range effects {
		if !e.IsNone() {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return None[A]()
	case 1:
		return kept[0]
	default:
		return Effect[A]{kind: KindBatch, children: kept}
	}
}

// Cancellable is Run keyed by id. Starting it cancels any still-running
// execution that shares the id.
func Cancellable[A any](id string, op Operation[A]) Effect[A] {
	return Effect[A]{kind: KindCancellable, id: id, op: op}
}

// Cancel supersedes whatever Cancellable or AfterDelay execution currently
// holds id, without starting new work.
func Cancel[A any](id string) Effect[A] {
	return Cancellable[A](id, func(context.Context, Send[A]) {})
}

// Debounced runs op once delay has passed without another Debounced for id.
func Debounced[A any](id string, delay time.Duration, op Operation[A]) Effect[A] {
	return Effect[A]{kind: KindDebounced, id: id, delay: clamp(delay), op: op}
}

// Throttled runs op at most once per interval for id. Requests inside the
// window are dropped, not deferred.
func Throttled[A any](id string, interval time.Duration, op Operation[A]) Effect[A] {
	return Effect[A]{kind: KindThrottled, id: id, delay: clamp(interval), op: op}
}

// AfterDelay runs op once after delay unless id is cancelled before it fires.
func AfterDelay[A any](id string, delay time.Duration, op Operation[A]) Effect[A] {
	return Effect[A]{kind: KindAfterDelay, id: id, delay: clamp(delay), op: op}
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
