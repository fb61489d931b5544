package demo

import "github.com/roach88/reflux/internal/journal"

// Action is any App action.
type Action interface{ isAction() }

// CounterAction is handled by the counter feature.
type CounterAction interface {
	Action
	isCounterAction()
}

// TodosAction is handled by the todos feature.
type TodosAction interface {
	Action
	isTodosAction()
}

// SearchAction is handled by the search feature.
type SearchAction interface {
	Action
	isSearchAction()
}

// DetailAction is handled by the detail editor while it is open.
type DetailAction interface {
	Action
	isDetailAction()
}

// Counter actions.
type (
	Increment          struct{}
	Decrement          struct{}
	IncrementAsync     struct{}
	IncrementCompleted struct {
		Value int `json:"value"`
	}
)

// Todos actions.
type (
	AddTodo struct {
		Title string `json:"title"`
	}
	ToggleTodo struct {
		ID int `json:"id"`
	}
	RemoveTodo struct {
		ID int `json:"id"`
	}
)

// Search actions.
type (
	QueryChanged struct {
		Query string `json:"query"`
	}
	SearchRequested struct {
		Query string `json:"query"`
	}
	SearchResponse struct {
		Query   string   `json:"query"`
		Results []string `json:"results"`
	}
	SearchFailed struct {
		Query string `json:"query"`
		Error string `json:"error"`
	}
	CancelSearch struct{}
	SaveQuery    struct{}
	QuerySaved   struct {
		Query string `json:"query"`
	}
)

// Detail actions. OpenDetail and DismissDetail belong to the App: they
// create and remove the detail state.
type (
	OpenDetail struct {
		TodoID int `json:"todo_id"`
	}
	DismissDetail struct{}
	DraftChanged  struct {
		Text string `json:"text"`
	}
	DraftSaved struct {
		Text string `json:"text"`
	}
)

func (Increment) isAction()          {}
func (Decrement) isAction()          {}
func (IncrementAsync) isAction()     {}
func (IncrementCompleted) isAction() {}
func (AddTodo) isAction()            {}
func (ToggleTodo) isAction()         {}
func (RemoveTodo) isAction()         {}
func (QueryChanged) isAction()       {}
func (SearchRequested) isAction()    {}
func (SearchResponse) isAction()     {}
func (SearchFailed) isAction()       {}
func (CancelSearch) isAction()       {}
func (SaveQuery) isAction()          {}
func (QuerySaved) isAction()         {}
func (OpenDetail) isAction()         {}
func (DismissDetail) isAction()      {}
func (DraftChanged) isAction()       {}
func (DraftSaved) isAction()         {}

func (Increment) isCounterAction()          {}
func (Decrement) isCounterAction()          {}
func (IncrementAsync) isCounterAction()     {}
func (IncrementCompleted) isCounterAction() {}

func (AddTodo) isTodosAction()    {}
func (ToggleTodo) isTodosAction() {}
func (RemoveTodo) isTodosAction() {}

func (QueryChanged) isSearchAction()    {}
func (SearchRequested) isSearchAction() {}
func (SearchResponse) isSearchAction()  {}
func (SearchFailed) isSearchAction()    {}
func (CancelSearch) isSearchAction()    {}
func (SaveQuery) isSearchAction()       {}
func (QuerySaved) isSearchAction()      {}

func (DraftChanged) isDetailAction() {}
func (DraftSaved) isDetailAction()   {}

// NewCodec returns the JSON codec for every App action. Names are the
// action types used in scenario files and the journal.
func NewCodec() *journal.JSONCodec[Action] {
	c := journal.NewJSONCodec[Action]()
	journal.Register[Action, Increment](c, "increment")
	journal.Register[Action, Decrement](c, "decrement")
	journal.Register[Action, IncrementAsync](c, "incrementAsync")
	journal.Register[Action, IncrementCompleted](c, "incrementCompleted")
	journal.Register[Action, AddTodo](c, "addTodo")
	journal.Register[Action, ToggleTodo](c, "toggleTodo")
	journal.Register[Action, RemoveTodo](c, "removeTodo")
	journal.Register[Action, QueryChanged](c, "queryChanged")
	journal.Register[Action, SearchRequested](c, "searchRequested")
	journal.Register[Action, SearchResponse](c, "searchResponse")
	journal.Register[Action, SearchFailed](c, "searchFailed")
	journal.Register[Action, CancelSearch](c, "cancelSearch")
	journal.Register[Action, SaveQuery](c, "saveQuery")
	journal.Register[Action, QuerySaved](c, "querySaved")
	journal.Register[Action, OpenDetail](c, "openDetail")
	journal.Register[Action, DismissDetail](c, "dismissDetail")
	journal.Register[Action, DraftChanged](c, "draftChanged")
	journal.Register[Action, DraftSaved](c, "draftSaved")
	return c
}
