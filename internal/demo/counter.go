package demo

import (
	"context"

	"github.com/roach88/reflux/internal/effect"
	"github.com/roach88/reflux/internal/reducer"
)

// Counter is the counter feature reducer.
var Counter = reducer.Func[CounterState, CounterAction, Deps](reduceCounter)

func reduceCounter(s CounterState, a CounterAction, _ Deps) (CounterState, effect.Effect[CounterAction]) {
	switch a := a.(type) {
	case Increment:
		s.Count++
	case Decrement:
		s.Count--
	case IncrementAsync:
		s.Loading = true
		return s, effect.Run(func(_ context.Context, send effect.Send[CounterAction]) {
			send(IncrementCompleted{Value: AsyncValue})
		})
	case IncrementCompleted:
		s.Count = a.Value
		s.Loading = false
	}
	return s, effect.None[CounterAction]()
}
