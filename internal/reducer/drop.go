package reducer

// DropReason says why a composition operator ignored an action.
type DropReason string

const (
	// DropNotApplicable means the action extractor did not match.
	DropNotApplicable DropReason = "not_applicable"
	// DropAbsent means the action matched but the optional child state was nil.
	DropAbsent DropReason = "absent"
)

// Drop describes one ignored action. Useful for spotting stale actions that
// arrive after a child was dismissed.
type Drop struct {
	Operator string
	Reason   DropReason
	Action   any
}

// Option configures Scope and IfLet.
type Option func(*options)

type options struct {
	name   string
	onDrop func(Drop)
}

// WithDropHook is called for every action the operator drops. The default is
// to drop silently.
func WithDropHook(hook func(Drop)) Option {
	return func(o *options) {
		o.onDrop = hook
	}
}

// WithName labels the operator in Drop reports.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func buildOptions(operator string, opts []Option) options {
	o := options{name: operator}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) drop(reason DropReason, action any) {
	if o.onDrop == nil {
		return
	}
	o.onDrop(Drop{Operator: o.name, Reason: reason, Action: action})
}
