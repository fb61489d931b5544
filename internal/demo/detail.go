package demo

import (
	"context"

	"github.com/roach88/reflux/internal/effect"
	"github.com/roach88/reflux/internal/reducer"
)

// DetailAutosaveID keys the pending autosave of the open editor.
var DetailAutosaveID = effect.ID("detail", "autosave")

// Detail edits one todo's draft title. Every change schedules an autosave
// after AutosaveDelay, replacing the previous one.
var Detail = reducer.Func[DetailState, DetailAction, Deps](reduceDetail)

func reduceDetail(s DetailState, a DetailAction, _ Deps) (DetailState, effect.Effect[DetailAction]) {
	switch a := a.(type) {
	case DraftChanged:
		s.Draft = a.Text
		text := a.Text
		return s, effect.AfterDelay(DetailAutosaveID, AutosaveDelay,
			func(_ context.Context, send effect.Send[DetailAction]) {
				send(DraftSaved{Text: text})
			})
	case DraftSaved:
		s.Saved = a.Text
	}
	return s, effect.None[DetailAction]()
}
