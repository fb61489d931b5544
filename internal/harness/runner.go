package harness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/reflux/internal/journal"
	"github.com/roach88/reflux/internal/reducer"
)

// App adapts a concrete reducer to scenario scripts.
type App[S, A, D any] struct {
	// Initial returns a fresh initial state per run.
	Initial func() S
	Reducer reducer.Reducer[S, A, D]
	// Deps returns fresh dependencies per run.
	Deps  func() D
	Codec journal.Codec[A]
}

// collector is a Reporter that keeps failure messages instead of failing a
// test, so scenarios can run outside go test.
type collector struct {
	mu   sync.Mutex
	errs []string
}

func (c *collector) Helper() {}

func (c *collector) Errorf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
}

func (c *collector) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errs...)
}

// RunScenario plays sc against app on a fresh TestStore.
//
// Step and assertion failures are reported in the Result. The error return
// is reserved for scenarios that cannot be run at all, such as an action
// type the codec does not know.
func RunScenario[S, A, D any](sc *Scenario, app App[S, A, D], logger *slog.Logger) (*Result, error) {
	if app.Initial == nil || app.Reducer == nil || app.Codec == nil {
		return nil, fmt.Errorf("scenario %s: app needs Initial, Reducer and Codec", sc.Name)
	}
	var deps D
	if app.Deps != nil {
		deps = app.Deps()
	}

	rep := &collector{}
	opts := []Option{WithTimeout(sc.ReceiveTimeout())}
	if !sc.IsExhaustive() {
		opts = append(opts, WithNonExhaustive())
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	ts := New[S, A, D](rep, app.Initial(), app.Reducer, deps, opts...)

	for i, step := range sc.Steps {
		check := stateCheck[S](step.ExpectState)
		switch {
		case step.Send != nil:
			action, err := decodeAction(app.Codec, step.Send)
			if err != nil {
				ts.Finish(0)
				return nil, fmt.Errorf("scenario %s: steps[%d].send: %w", sc.Name, i, err)
			}
			ts.Send(action, check)

		case step.Receive != nil:
			action, err := decodeAction(app.Codec, step.Receive)
			if err != nil {
				ts.Finish(0)
				return nil, fmt.Errorf("scenario %s: steps[%d].receive: %w", sc.Name, i, err)
			}
			ts.Receive(action, check)

		case step.Advance != "":
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				ts.Finish(0)
				return nil, fmt.Errorf("scenario %s: steps[%d].advance: %w", sc.Name, i, err)
			}
			ts.Advance(d)
			if check != nil {
				ts.check(fmt.Sprintf("Advance(%s)", d), ts.State(), []func(S) error{check})
			}
		}
	}
	ts.Finish()

	result := NewResult()
	for _, msg := range rep.messages() {
		result.AddError(msg)
	}

	trace, err := EncodeTrace(ts.Trace(), app.Codec)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	result.Trace = trace

	state, err := projectState(ts.State())
	if err != nil {
		result.AddError(err.Error())
	} else {
		result.State = state
	}

	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func decodeAction[A any](codec journal.Codec[A], spec *ActionSpec) (A, error) {
	payload := []byte("{}")
	if len(spec.Payload) > 0 {
		var err error
		payload, err = json.Marshal(spec.Payload)
		if err != nil {
			var zero A
			return zero, fmt.Errorf("encode payload: %w", err)
		}
	}
	return codec.Decode(spec.Type, payload)
}

// stateCheck turns an expect_state block into a TestStore assertion.
func stateCheck[S any](expect map[string]any) func(S) error {
	if len(expect) == 0 {
		return nil
	}
	return func(s S) error {
		state, err := projectState(s)
		if err != nil {
			return err
		}
		return checkState("expect_state", state, expect)
	}
}
