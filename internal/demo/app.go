package demo

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/reflux/internal/effect"
	"github.com/roach88/reflux/internal/reducer"
)

func extract[C any](a Action) (C, bool) {
	c, ok := a.(C)
	return c, ok
}

var (
	counterPrism = reducer.Prism[Action, CounterAction]{
		Extract: extract[CounterAction],
		Embed:   func(c CounterAction) Action { return c },
	}
	todosPrism = reducer.Prism[Action, TodosAction]{
		Extract: extract[TodosAction],
		Embed:   func(c TodosAction) Action { return c },
	}
	searchPrism = reducer.Prism[Action, SearchAction]{
		Extract: extract[SearchAction],
		Embed:   func(c SearchAction) Action { return c },
	}
	detailPrism = reducer.Prism[Action, DetailAction]{
		Extract: extract[DetailAction],
		Embed:   func(c DetailAction) Action { return c },
	}
)

func identity[T any]() reducer.Lens[T, T] {
	return reducer.Lens[T, T]{
		Get: func(t T) T { return t },
		Set: func(_ T, t T) T { return t },
	}
}

// NewApp builds the App reducer:
//
//	Sequence(
//	    Combine(counter, todos, search),  // each on its own field
//	    IfLet(detail),                    // optional editor
//	    navigation,                       // OpenDetail
//	)
//
// Actions the detail editor drops while it is closed are logged at debug
// level. A nil logger discards them.
func NewApp(logger *slog.Logger) reducer.Reducer[State, Action, Deps] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	features := reducer.Combine[State, Action, Deps](
		reducer.Field[State, CounterState, Action, Deps]("counter",
			func(s State) CounterState { return s.Counter },
			func(s State, c CounterState) State {
				s.Counter = c
				return s
			},
			reducer.Scope[CounterState, Action, CounterState, CounterAction, Deps](Counter, identity[CounterState](), counterPrism),
		),
		reducer.Field[State, *TodosState, Action, Deps]("todos",
			func(s State) *TodosState { return s.Todos },
			func(s State, t *TodosState) State {
				s.Todos = t
				return s
			},
			reducer.Scope[*TodosState, Action, *TodosState, TodosAction, Deps](Todos, identity[*TodosState](), todosPrism),
		),
		reducer.Field[State, *SearchState, Action, Deps]("search",
			func(s State) *SearchState { return s.Search },
			func(s State, t *SearchState) State {
				s.Search = t
				return s
			},
			reducer.Scope[*SearchState, Action, *SearchState, SearchAction, Deps](Search, identity[*SearchState](), searchPrism),
		),
	)

	detail := reducer.IfLet[State, Action, DetailState, DetailAction, Deps](Detail,
		reducer.Lens[State, *DetailState]{
			Get: func(s State) *DetailState { return s.Detail },
			Set: func(s State, d *DetailState) State {
				s.Detail = d
				return s
			},
		},
		detailPrism,
		isDismiss,
		reducer.WithName("detail"),
		reducer.WithDropHook(func(d reducer.Drop) {
			if d.Reason == reducer.DropAbsent {
				logger.Debug("action dropped",
					"operator", d.Operator,
					"reason", string(d.Reason),
					"action", fmt.Sprintf("%T", d.Action),
				)
			}
		}),
	)

	return reducer.Sequence[State, Action, Deps](features, detail, navigation)
}

func isDismiss(a Action) bool {
	_, ok := a.(DismissDetail)
	return ok
}

// navigation opens the detail editor on an existing todo.
var navigation = reducer.Func[State, Action, Deps](func(s State, a Action, _ Deps) (State, effect.Effect[Action]) {
	open, ok := a.(OpenDetail)
	if !ok {
		return s, effect.None[Action]()
	}
	todo, found := s.Todos.Todo(open.TodoID)
	if !found {
		return s, effect.None[Action]()
	}
	s.Detail = &DetailState{TodoID: todo.ID, Draft: todo.Title, Saved: todo.Title}
	return s, effect.None[Action]()
})
