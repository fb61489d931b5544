package demo

import "github.com/roach88/reflux/internal/harness"

// NewScenarioApp adapts the App for scenario scripts, searching
// DefaultCatalog.
func NewScenarioApp() harness.App[State, Action, Deps] {
	return harness.App[State, Action, Deps]{
		Initial: NewState,
		Reducer: NewApp(nil),
		Deps:    func() Deps { return DefaultDeps(DefaultCatalog, nil) },
		Codec:   NewCodec(),
	}
}
