package harness

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/reflux/internal/journal"
)

// TraceEvent is the codec-rendered form of a TraceStep, used by scenario
// assertions and golden files.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Source  Source `json:"source"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if no step or assertion failed.
	Pass bool `json:"pass"`

	// Trace holds every dispatched action in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the JSON projection of the final state.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EncodeTrace renders steps through codec. Payloads are decoded back to
// plain JSON values so they print and compare structurally.
func EncodeTrace[A any](steps []TraceStep[A], codec journal.Codec[A]) ([]TraceEvent, error) {
	events := make([]TraceEvent, 0, len(steps))
	for _, s := range steps {
		typ, payload, err := codec.Encode(s.Action)
		if err != nil {
			return nil, fmt.Errorf("trace seq %d: %w", s.Seq, err)
		}
		var body any
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &body); err != nil {
				return nil, fmt.Errorf("trace seq %d: %w", s.Seq, err)
			}
		}
		if m, ok := body.(map[string]any); ok && len(m) == 0 {
			body = nil
		}
		events = append(events, TraceEvent{
			Seq:     s.Seq,
			Source:  s.Source,
			Type:    typ,
			Payload: body,
		})
	}
	return events, nil
}

// project renders v as plain JSON values.
func project(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// projectState renders a state as a JSON object.
func projectState(v any) (map[string]any, error) {
	p, err := project(v)
	if err != nil {
		return nil, fmt.Errorf("project state: %w", err)
	}
	m, ok := p.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("project state: %T does not render as a JSON object", v)
	}
	return m, nil
}
