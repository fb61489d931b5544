// Package reducer defines the reducer contract and the operators that embed
// child reducers into parents.
//
// A reducer is a pure, total function of (state, action, dependencies). It
// returns the next state and an effect.Effect describing follow-up work. It
// never blocks and never performs I/O; that is the job of effect bodies.
//
// Composition operators are reducers themselves, so they nest:
//
//	app := reducer.Combine(
//	    reducer.Field("counter", getCounter, setCounter, counterReducer),
//	    reducer.Field("todos", getTodos, setTodos, todosReducer),
//	)
//
// Neither child knows about the parent. Actions that do not belong to a child
// are dropped with effect.None.
package reducer

import "github.com/roach88/reflux/internal/effect"

// Reducer computes the next state and the effect to schedule.
type Reducer[S, A, D any] interface {
	Reduce(state S, action A, deps D) (S, effect.Effect[A])
}

// Func adapts an ordinary function to Reducer.
type Func[S, A, D any] func(state S, action A, deps D) (S, effect.Effect[A])

// Reduce implements Reducer.
func (f Func[S, A, D]) Reduce(state S, action A, deps D) (S, effect.Effect[A]) {
	return f(state, action, deps)
}

// Sequence runs reducers one after another over the same state. Effects are
// merged, so their execution is concurrent and unordered.
func Sequence[S, A, D any](reducers ...Reducer[S, A, D]) Reducer[S, A, D] {
	rs := make([]Reducer[S, A, D], len(reducers))
	copy(rs, reducers)
	return Func[S, A, D](func(state S, action A, deps D) (S, effect.Effect[A]) {
		effects := make([]effect.Effect[A], 0, len(rs))
		for _, r := range rs {
			var eff effect.Effect[A]
			state, eff = r.Reduce(state, action, deps)
			effects = append(effects, eff)
		}
		return state, effect.Merge(effects...)
	})
}

// Lens reads a child value out of a parent and writes it back.
// Set must return a new parent rather than mutate the one it is given.
type Lens[P, C any] struct {
	Get func(P) C
	Set func(P, C) P
}

// Prism extracts a child action from a parent action, if it is one, and
// embeds a child action into the parent action space.
type Prism[P, C any] struct {
	Extract func(P) (C, bool)
	Embed   func(C) P
}
