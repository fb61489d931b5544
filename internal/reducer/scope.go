package reducer

import "github.com/roach88/reflux/internal/effect"

// Scope embeds a child reducer into a parent.
//
// Actions the prism does not extract leave the parent untouched and produce
// effect.None; the child reducer is never called for them. Otherwise the child
// runs on the extracted state, its new state is written back through the lens
// and its effect is mapped into the parent action space with prism.Embed.
func Scope[PS, PA, CS, CA, D any](
	child Reducer[CS, CA, D],
	state Lens[PS, CS],
	action Prism[PA, CA],
	opts ...Option,
) Reducer[PS, PA, D] {
	o := buildOptions("scope", opts)
	return Func[PS, PA, D](func(parent PS, a PA, deps D) (PS, effect.Effect[PA]) {
		ca, ok := action.Extract(a)
		if !ok {
			o.drop(DropNotApplicable, a)
			return parent, effect.None[PA]()
		}
		next, eff := child.Reduce(state.Get(parent), ca, deps)
		return state.Set(parent, next), effect.Map(eff, action.Embed)
	})
}
