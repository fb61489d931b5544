package demo

// State is the App state. Fields that hold slices are pointers so Combine
// can tell an untouched feature by identity; reducers replace them, never
// mutate them.
type State struct {
	Counter CounterState `json:"counter"`
	Todos   *TodosState  `json:"todos"`
	Search  *SearchState `json:"search"`
	Detail  *DetailState `json:"detail,omitempty"`
}

// CounterState is the counter feature.
type CounterState struct {
	Count   int  `json:"count"`
	Loading bool `json:"loading"`
}

// Todo is one todo item.
type Todo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// TodosState is the todo list.
type TodosState struct {
	Items  []Todo `json:"items"`
	NextID int    `json:"next_id"`
}

// SearchState is the search box.
type SearchState struct {
	Query   string   `json:"query"`
	Loading bool     `json:"loading"`
	Results []string `json:"results"`
	Error   string   `json:"error,omitempty"`
	Saved   []string `json:"saved"`
}

// DetailState is the open todo editor.
type DetailState struct {
	TodoID int    `json:"todo_id"`
	Draft  string `json:"draft"`
	Saved  string `json:"saved"`
}

// NewState returns the empty App state.
func NewState() State {
	return State{
		Todos:  &TodosState{Items: []Todo{}, NextID: 1},
		Search: &SearchState{Results: []string{}, Saved: []string{}},
	}
}

// Todo returns the item with id.
func (s *TodosState) Todo(id int) (Todo, bool) {
	for _, t := range s.Items {
		if t.ID == id {
			return t, true
		}
	}
	return Todo{}, false
}
