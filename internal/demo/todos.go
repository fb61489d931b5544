package demo

import (
	"strings"

	"github.com/roach88/reflux/internal/effect"
	"github.com/roach88/reflux/internal/reducer"
)

// Todos is the todo list reducer. It returns the same pointer for actions
// that change nothing.
var Todos = reducer.Func[*TodosState, TodosAction, Deps](reduceTodos)

func reduceTodos(s *TodosState, a TodosAction, _ Deps) (*TodosState, effect.Effect[TodosAction]) {
	none := effect.None[TodosAction]()
	switch a := a.(type) {
	case AddTodo:
		title := strings.TrimSpace(a.Title)
		if title == "" {
			return s, none
		}
		next := &TodosState{
			Items:  append(append(make([]Todo, 0, len(s.Items)+1), s.Items...), Todo{ID: s.NextID, Title: title}),
			NextID: s.NextID + 1,
		}
		return next, none

	case ToggleTodo:
		for i, t := range s.Items {
			if t.ID == a.ID {
				items := append([]Todo(nil), s.Items...)
				items[i].Done = !t.Done
				return &TodosState{Items: items, NextID: s.NextID}, none
			}
		}

	case RemoveTodo:
		for i, t := range s.Items {
			if t.ID == a.ID {
				items := make([]Todo, 0, len(s.Items)-1)
				items = append(items, s.Items[:i]...)
				items = append(items, s.Items[i+1:]...)
				return &TodosState{Items: items, NextID: s.NextID}, none
			}
		}
	}
	return s, none
}
