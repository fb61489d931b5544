package reducer

import "github.com/roach88/reflux/internal/effect"

// Slice is one named field of a combined state. Build it with Field.
type Slice[S, A, D any] struct {
	name   string
	reduce func(parent, next S, action A, deps D) (S, bool, effect.Effect[A])
}

// Name returns the field name the slice was registered under.
func (s Slice[S, A, D]) Name() string { return s.name }

// Field binds a reducer to one field of the parent state.
//
// T must be comparable: a slice counts as changed when the reducer returns a
// value != the previous one. Use pointer fields for reference semantics.
func Field[S any, T comparable, A, D any](
	name string,
	get func(S) T,
	set func(S, T) S,
	r Reducer[T, A, D],
) Slice[S, A, D] {
	return Slice[S, A, D]{
		name: name,
		reduce: func(parent, next S, action A, deps D) (S, bool, effect.Effect[A]) {
			old := get(parent)
			updated, eff := r.Reduce(old, action, deps)
			if updated == old {
				return next, false, eff
			}
			return set(next, updated), true, eff
		},
	}
}

// Combine runs every slice's reducer on every action, each against its own
// field. The parent is rebuilt only if at least one field changed, so an
// action no slice reacts to returns the original parent value. Non-none
// effects are collected into a single batch.
func Combine[S, A, D any](slices ...Slice[S, A, D]) Reducer[S, A, D] {
	ss := make([]Slice[S, A, D], len(slices))
	copy(ss, slices)
	return Func[S, A, D](func(state S, action A, deps D) (S, effect.Effect[A]) {
		next := state
		changed := false
		var effects []effect.Effect[A]
		for _, s := range ss {
			var (
				did bool
				eff effect.Effect[A]
			)
			next, did, eff = s.reduce(state, next, action, deps)
			changed = changed || did
			if !eff.IsNone() {
				effects = append(effects, eff)
			}
		}
		if !changed {
			next = state
		}
		if len(effects) == 0 {
			return next, effect.None[A]()
		}
		return next, effect.Batch(effects...)
	})
}
