package reducer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/effect"
)

type noDeps struct{}

// counter feature

type counterState struct{ Count int }

type counterAction interface{ isCounterAction() }

type increment struct{}
type incrementAsync struct{}
type incrementCompleted struct{ Value int }

func (increment) isCounterAction()          {}
func (incrementAsync) isCounterAction()     {}
func (incrementCompleted) isCounterAction() {}

type spy struct{ calls int }

func (s *spy) counter() Reducer[counterState, counterAction, noDeps] {
	return Func[counterState, counterAction, noDeps](func(st counterState, a counterAction, _ noDeps) (counterState, effect.Effect[counterAction]) {
		s.calls++
		switch a := a.(type) {
		case increment:
			st.Count++
			return st, effect.None[counterAction]()
		case incrementAsync:
			return st, effect.Cancellable("counter/async", func(ctx context.Context, send effect.Send[counterAction]) {
				send(incrementCompleted{Value: 42})
			})
		case incrementCompleted:
			st.Count = a.Value
			return st, effect.None[counterAction]()
		}
		return st, effect.None[counterAction]()
	})
}

// parent feature

type parentState struct {
	Counter counterState
	Label   string
}

type parentAction interface{ isParentAction() }

type counterWrapped struct{ Action counterAction }
type rename struct{ Label string }

func (counterWrapped) isParentAction() {}
func (rename) isParentAction()         {}

var counterLens = Lens[*parentState, counterState]{
	Get: func(p *parentState) counterState { return p.Counter },
	Set: func(p *parentState, c counterState) *parentState {
		next := *p
		next.Counter = c
		return &next
	},
}

var counterPrism = Prism[parentAction, counterAction]{
	Extract: func(a parentAction) (counterAction, bool) {
		w, ok := a.(counterWrapped)
		return w.Action, ok
	},
	Embed: func(c counterAction) parentAction { return counterWrapped{Action: c} },
}

func TestScope_RunsChildForMatchingAction(t *testing.T) {
	s := &spy{}
	r := Scope(s.counter(), counterLens, counterPrism)

	initial := &parentState{}
	next, eff := r.Reduce(initial, counterWrapped{Action: increment{}}, noDeps{})

	assert.Equal(t, 1, next.Counter.Count)
	assert.True(t, eff.IsNone())
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, 0, initial.Counter.Count, "parent must not be mutated")
}

func TestScope_SkipsUnrelatedAction(t *testing.T) {
	s := &spy{}
	r := Scope(s.counter(), counterLens, counterPrism)

	initial := &parentState{Label: "x"}
	next, eff := r.Reduce(initial, rename{Label: "y"}, noDeps{})

	assert.Same(t, initial, next, "unrelated action must return the same parent")
	assert.True(t, eff.IsNone())
	assert.Equal(t, 0, s.calls, "child reducer must not be invoked")
}

func TestScope_MapsChildEffectIntoParent(t *testing.T) {
	s := &spy{}
	r := Scope(s.counter(), counterLens, counterPrism)

	_, eff := r.Reduce(&parentState{}, counterWrapped{Action: incrementAsync{}}, noDeps{})
	require.Equal(t, effect.KindCancellable, eff.Kind())
	assert.Equal(t, "counter/async", eff.ID())

	var got []parentAction
	eff.Operation()(context.Background(), func(a parentAction) { got = append(got, a) })
	assert.Equal(t, []parentAction{counterWrapped{Action: incrementCompleted{Value: 42}}}, got)
}

func TestScope_DropHook(t *testing.T) {
	var drops []Drop
	s := &spy{}
	r := Scope(s.counter(), counterLens, counterPrism,
		WithName("counter"),
		WithDropHook(func(d Drop) { drops = append(drops, d) }),
	)

	r.Reduce(&parentState{}, rename{}, noDeps{})
	require.Len(t, drops, 1)
	assert.Equal(t, "counter", drops[0].Operator)
	assert.Equal(t, DropNotApplicable, drops[0].Reason)
	assert.Equal(t, rename{}, drops[0].Action)
}

func TestReducer_IsPure(t *testing.T) {
	s := &spy{}
	r := Scope(s.counter(), counterLens, counterPrism)
	initial := &parentState{Counter: counterState{Count: 3}}

	a1, e1 := r.Reduce(initial, counterWrapped{Action: increment{}}, noDeps{})
	a2, e2 := r.Reduce(initial, counterWrapped{Action: increment{}}, noDeps{})

	assert.Equal(t, *a1, *a2)
	assert.Equal(t, e1.Kind(), e2.Kind())
	assert.Equal(t, 3, initial.Counter.Count)
}

// combine

type todosState struct{ Items []string }

type appState struct {
	Counter *counterState
	Todos   *todosState
}

type appAction interface{ isAppAction() }

type appIncrement struct{}
type addTodo struct{ Text string }
type noop struct{}

func (appIncrement) isAppAction() {}
func (addTodo) isAppAction()      {}
func (noop) isAppAction()         {}

func combinedApp(todoCalls *int) Reducer[*appState, appAction, noDeps] {
	counter := Func[*counterState, appAction, noDeps](func(c *counterState, a appAction, _ noDeps) (*counterState, effect.Effect[appAction]) {
		if _, ok := a.(appIncrement); ok {
			return &counterState{Count: c.Count + 1}, effect.None[appAction]()
		}
		return c, effect.None[appAction]()
	})
	todos := Func[*todosState, appAction, noDeps](func(t *todosState, a appAction, _ noDeps) (*todosState, effect.Effect[appAction]) {
		*todoCalls++
		if add, ok := a.(addTodo); ok {
			items := append(append([]string{}, t.Items...), add.Text)
			return &todosState{Items: items}, effect.Run(func(context.Context, effect.Send[appAction]) {})
		}
		return t, effect.None[appAction]()
	})

	return Combine(
		Field("counter",
			func(s *appState) *counterState { return s.Counter },
			func(s *appState, c *counterState) *appState { n := *s; n.Counter = c; return &n },
			Reducer[*counterState, appAction, noDeps](counter)),
		Field("todos",
			func(s *appState) *todosState { return s.Todos },
			func(s *appState, t *todosState) *appState { n := *s; n.Todos = t; return &n },
			Reducer[*todosState, appAction, noDeps](todos)),
	)
}

func TestCombine_SliceIsolation(t *testing.T) {
	calls := 0
	r := combinedApp(&calls)
	initial := &appState{Counter: &counterState{}, Todos: &todosState{}}

	next, eff := r.Reduce(initial, addTodo{Text: "x"}, noDeps{})

	assert.Equal(t, []string{"x"}, next.Todos.Items)
	assert.Same(t, initial.Counter, next.Counter, "untouched slice must keep its reference")
	assert.NotSame(t, initial, next)
	assert.Equal(t, effect.KindBatch, eff.Kind())
	assert.Len(t, eff.Children(), 1)
}

func TestCombine_RunsEverySlice(t *testing.T) {
	calls := 0
	r := combinedApp(&calls)
	initial := &appState{Counter: &counterState{}, Todos: &todosState{}}

	next, _ := r.Reduce(initial, appIncrement{}, noDeps{})
	assert.Equal(t, 1, next.Counter.Count)
	assert.Same(t, initial.Todos, next.Todos)
	assert.Equal(t, 1, calls, "todos reducer still runs for every action")
}

func TestCombine_UnchangedParentKeepsReference(t *testing.T) {
	calls := 0
	r := combinedApp(&calls)
	initial := &appState{Counter: &counterState{}, Todos: &todosState{}}

	next, eff := r.Reduce(initial, noop{}, noDeps{})
	assert.Same(t, initial, next)
	assert.True(t, eff.IsNone())
}

// ifLet

type detailState struct{ Edits int }

type hostState struct {
	Detail *detailState
}

type hostAction interface{ isHostAction() }

type detailWrapped struct{ Action counterAction }
type dismiss struct{}

func (detailWrapped) isHostAction() {}
func (dismiss) isHostAction()       {}

func detailHost(calls *int, drops *[]Drop) Reducer[*hostState, hostAction, noDeps] {
	child := Func[detailState, counterAction, noDeps](func(d detailState, a counterAction, _ noDeps) (detailState, effect.Effect[counterAction]) {
		*calls++
		if _, ok := a.(increment); ok {
			d.Edits++
		}
		return d, effect.None[counterAction]()
	})
	return IfLet(
		Reducer[detailState, counterAction, noDeps](child),
		Lens[*hostState, *detailState]{
			Get: func(h *hostState) *detailState { return h.Detail },
			Set: func(h *hostState, d *detailState) *hostState { n := *h; n.Detail = d; return &n },
		},
		Prism[hostAction, counterAction]{
			Extract: func(a hostAction) (counterAction, bool) {
				w, ok := a.(detailWrapped)
				return w.Action, ok
			},
			Embed: func(c counterAction) hostAction { return detailWrapped{Action: c} },
		},
		func(a hostAction) bool { _, ok := a.(dismiss); return ok },
		WithDropHook(func(d Drop) { *drops = append(*drops, d) }),
	)
}

func TestIfLet_Lifecycle(t *testing.T) {
	calls := 0
	var drops []Drop
	r := detailHost(&calls, &drops)

	absent := &hostState{}
	next, eff := r.Reduce(absent, detailWrapped{Action: increment{}}, noDeps{})
	assert.Same(t, absent, next)
	assert.True(t, eff.IsNone())
	assert.Equal(t, 0, calls)
	require.Len(t, drops, 1)
	assert.Equal(t, DropAbsent, drops[0].Reason)

	present := &hostState{Detail: &detailState{}}
	next, _ = r.Reduce(present, detailWrapped{Action: increment{}}, noDeps{})
	require.NotNil(t, next.Detail)
	assert.Equal(t, 1, next.Detail.Edits)
	assert.Equal(t, 0, present.Detail.Edits, "child value must not be mutated in place")
	assert.Equal(t, 1, calls)

	dismissed, eff := r.Reduce(next, dismiss{}, noDeps{})
	assert.Nil(t, dismissed.Detail)
	assert.True(t, eff.IsNone())
	assert.Equal(t, 1, calls, "dismiss must not invoke the child")
}

func TestIfLet_DismissWhenAbsentIsNoop(t *testing.T) {
	calls := 0
	var drops []Drop
	r := detailHost(&calls, &drops)

	absent := &hostState{}
	next, _ := r.Reduce(absent, dismiss{}, noDeps{})
	assert.Same(t, absent, next)
}

func TestSequence_MergesEffects(t *testing.T) {
	add := func(n int) Reducer[int, string, noDeps] {
		return Func[int, string, noDeps](func(s int, a string, _ noDeps) (int, effect.Effect[string]) {
			return s + n, effect.Run(func(context.Context, effect.Send[string]) {})
		})
	}
	none := Func[int, string, noDeps](func(s int, _ string, _ noDeps) (int, effect.Effect[string]) {
		return s * 10, effect.None[string]()
	})

	r := Sequence[int, string, noDeps](add(1), none, add(2))
	next, eff := r.Reduce(1, "go", noDeps{})
	assert.Equal(t, 22, next)
	assert.Equal(t, effect.KindBatch, eff.Kind())
	assert.Len(t, eff.Children(), 2)
}
