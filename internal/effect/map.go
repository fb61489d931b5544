package effect

import (
	"context"
	"fmt"
)

// Map lifts an effect over child actions into an effect over parent actions.
//
// The variant, id, delay and interval are preserved; only the actions sent by
// the body are transformed by f. Batch children are mapped recursively.
func Map[C, P any](e Effect[C], f func(C) P) Effect[P] {
	switch e.kind {
	case KindNone:
		return None[P]()
	case KindRun:
		return Effect[P]{kind: KindRun, op: mapOperation(e.op, f)}
	case KindFireAndForget:
		return Effect[P]{kind: KindFireAndForget, task: e.task}
	case KindBatch:
		children := make([]Effect[P], len(e.children))
		for i, child := range e.children {
			children[i] = Map(child, f)
		}
		return Effect[P]{kind: KindBatch, children: children}
	case KindCancellable:
		return Effect[P]{kind: KindCancellable, id: e.id, op: mapOperation(e.op, f)}
	case KindDebounced:
		return Effect[P]{kind: KindDebounced, id: e.id, delay: e.delay, op: mapOperation(e.op, f)}
	case KindThrottled:
		return Effect[P]{kind: KindThrottled, id: e.id, delay: e.delay, op: mapOperation(e.op, f)}
	case KindAfterDelay:
		return Effect[P]{kind: KindAfterDelay, id: e.id, delay: e.delay, op: mapOperation(e.op, f)}
	default:
		panic(fmt.Sprintf("effect.Map: unhandled kind %s", e.kind))
	}
}

func mapOperation[C, P any](op Operation[C], f func(C) P) Operation[P] {
	if op == nil {
		return nil
	}
	return func(ctx context.Context, send Send[P]) {
		op(ctx, func(c C) { send(f(c)) })
	}
}
