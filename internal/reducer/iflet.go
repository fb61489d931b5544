package reducer

import "github.com/roach88/reflux/internal/effect"

// IfLet embeds a reducer over optional child state. A nil pointer means the
// child is absent.
//
//   - isDismiss(action) sets the child to nil without calling the child reducer.
//   - Matching actions while the child is absent are dropped with effect.None.
//   - Matching actions while present run the child reducer, as in Scope.
//
// The child reducer receives the child value, never the pointer, so it cannot
// mutate the parent's copy in place.
func IfLet[PS, PA, CS, CA, D any](
	child Reducer[CS, CA, D],
	state Lens[PS, *CS],
	action Prism[PA, CA],
	isDismiss func(PA) bool,
	opts ...Option,
) Reducer[PS, PA, D] {
	o := buildOptions("ifLet", opts)
	return Func[PS, PA, D](func(parent PS, a PA, deps D) (PS, effect.Effect[PA]) {
		if isDismiss != nil && isDismiss(a) {
			if state.Get(parent) == nil {
				return parent, effect.None[PA]()
			}
			return state.Set(parent, nil), effect.None[PA]()
		}
		ca, ok := action.Extract(a)
		if !ok {
			o.drop(DropNotApplicable, a)
			return parent, effect.None[PA]()
		}
		current := state.Get(parent)
		if current == nil {
			o.drop(DropAbsent, a)
			return parent, effect.None[PA]()
		}
		next, eff := child.Reduce(*current, ca, deps)
		return state.Set(parent, &next), effect.Map(eff, action.Embed)
	})
}
