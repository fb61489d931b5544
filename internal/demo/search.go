package demo

import (
	"context"
	"strings"

	"github.com/roach88/reflux/internal/effect"
	"github.com/roach88/reflux/internal/reducer"
)

// Effect ids of the search feature.
var (
	SearchQueryID = effect.ID("search", "query")
	SearchFetchID = effect.ID("search", "fetch")
	SearchSaveID  = effect.ID("search", "save")
)

// Search is the search box reducer.
//
// Typing is debounced; the debounced body asks for a search, which runs as a
// cancellable fetch so a newer request or CancelSearch abandons the old one.
// Saving is throttled.
var Search = reducer.Func[*SearchState, SearchAction, Deps](reduceSearch)

func reduceSearch(s *SearchState, a SearchAction, deps Deps) (*SearchState, effect.Effect[SearchAction]) {
	none := effect.None[SearchAction]()
	switch a := a.(type) {
	case QueryChanged:
		next := *s
		next.Query = a.Query
		q := strings.TrimSpace(a.Query)
		if q == "" {
			next.Results = []string{}
			next.Loading = false
			next.Error = ""
			// Reset the debounce timer to a body that does nothing.
			return &next, effect.Batch(
				effect.Cancel[SearchAction](SearchFetchID),
				effect.Debounced(SearchQueryID, SearchDebounce, func(context.Context, effect.Send[SearchAction]) {}),
			)
		}
		return &next, effect.Debounced(SearchQueryID, SearchDebounce,
			func(_ context.Context, send effect.Send[SearchAction]) {
				send(SearchRequested{Query: q})
			})

	case SearchRequested:
		next := *s
		next.Loading = true
		next.Error = ""
		q := a.Query
		return &next, effect.Cancellable(SearchFetchID,
			func(ctx context.Context, send effect.Send[SearchAction]) {
				results, err := deps.Search(ctx, q)
				if err != nil {
					send(SearchFailed{Query: q, Error: err.Error()})
					return
				}
				send(SearchResponse{Query: q, Results: results})
			})

	case SearchResponse:
		next := *s
		next.Loading = false
		next.Results = append([]string{}, a.Results...)
		return &next, none

	case SearchFailed:
		next := *s
		next.Loading = false
		next.Error = a.Error
		deps.logger().Warn("search failed", "query", a.Query, "error", a.Error)
		return &next, none

	case CancelSearch:
		if !s.Loading {
			return s, effect.Cancel[SearchAction](SearchFetchID)
		}
		next := *s
		next.Loading = false
		return &next, effect.Cancel[SearchAction](SearchFetchID)

	case SaveQuery:
		q := s.Query
		return s, effect.Throttled(SearchSaveID, SaveThrottle,
			func(_ context.Context, send effect.Send[SearchAction]) {
				send(QuerySaved{Query: q})
			})

	case QuerySaved:
		next := *s
		next.Saved = append(append(make([]string, 0, len(s.Saved)+1), s.Saved...), a.Query)
		return &next, none
	}
	return s, none
}
