package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %v\n", ev.Seq, ev.Source, ev.Type, ev.Payload)
		}
	}
	return buf.String()
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want, err := normalize(a.Payload)
	if err != nil {
		return err
	}
	for _, ev := range trace {
		if ev.Type == a.Action && matchSubset(ev.Payload, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with payload %v", a.Action, a.Payload),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks first occurrences. Other actions may intervene.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if _, seen := positions[ev.Type]; !seen {
			positions[ev.Type] = i + 1
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertFinalState(state map[string]any, a Assertion) error {
	return checkState(AssertFinalState, state, a.Expect)
}

// checkState verifies that state contains expect (subset match).
func checkState(kind string, state map[string]any, expect map[string]any) error {
	want, err := normalize(expect)
	if err != nil {
		return err
	}
	if path, ok := subsetMismatch("", state, want); !ok {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s = %v", path, lookup(want, path)),
			Actual:   fmt.Sprintf("%s = %v", path, lookup(state, path)),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result and returns
// a message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result.State, a)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// normalize renders YAML-decoded values the way state and payloads are
// rendered, so numbers compare equal regardless of their decoded Go type.
func normalize(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	out, err := project(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// matchSubset reports whether actual contains every key of expected, with
// nested objects matched the same way. A nil expected matches anything.
func matchSubset(actual, expected any) bool {
	_, ok := subsetMismatch("", actual, expected)
	return ok
}

// subsetMismatch returns the first dotted path where actual diverges from
// expected.
func subsetMismatch(path string, actual, expected any) (string, bool) {
	if expected == nil {
		return "", true
	}
	want, ok := expected.(map[string]any)
	if !ok {
		if reflect.DeepEqual(actual, expected) {
			return "", true
		}
		return path, false
	}
	got, ok := actual.(map[string]any)
	if !ok {
		return path, false
	}
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sub := k
		if path != "" {
			sub = path + "." + k
		}
		v, exists := got[k]
		if !exists {
			return sub, false
		}
		if p, ok := subsetMismatch(sub, v, want[k]); !ok {
			return p, false
		}
	}
	return "", true
}

func lookup(v any, path string) any {
	if path == "" {
		return v
	}
	for _, part := range strings.Split(path, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[part]
	}
	return v
}
