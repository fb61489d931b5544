package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterApp() App[counterState, counterAction, counterDeps] {
	return App[counterState, counterAction, counterDeps]{
		Initial: func() counterState { return counterState{} },
		Reducer: counterReducer,
		Codec:   newCounterCodec(),
	}
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "counter_async.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "counter_async", sc.Name)
	assert.True(t, sc.IsExhaustive())
	assert.Equal(t, DefaultTimeout, sc.ReceiveTimeout())
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, "incrementAsync", sc.Steps[0].Send.Type)
	assert.Equal(t, 42, sc.Steps[1].Receive.Payload["value"])
	assert.Len(t, sc.Assertions, 4)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty document",
			yaml:    "",
			wantErr: "document is empty",
		},
		{
			name: "unknown top-level key",
			yaml: `
name: x
description: y
stpes:
  - send: { type: a }
`,
			wantErr: "invalid scenario",
		},
		{
			name: "missing steps",
			yaml: `
name: x
description: y
`,
			wantErr: "invalid scenario",
		},
		{
			name: "unknown step key",
			yaml: `
name: x
description: y
steps:
  - sned: { type: a }
`,
			wantErr: "invalid scenario",
		},
		{
			name: "bad duration",
			yaml: `
name: x
description: y
steps:
  - advance: soon
`,
			wantErr: "invalid scenario",
		},
		{
			name: "two actions in one step",
			yaml: `
name: x
description: y
steps:
  - send: { type: a }
    advance: 1s
`,
			wantErr: "exactly one of send, receive or advance",
		},
		{
			name: "empty step",
			yaml: `
name: x
description: y
steps:
  - expect_state: { count: 1 }
`,
			wantErr: "exactly one of send, receive or advance",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: x
description: y
steps:
  - send: { type: a }
assertions:
  - type: trace_sorted
`,
			wantErr: "invalid scenario",
		},
		{
			name: "trace_count without action",
			yaml: `
name: x
description: y
steps:
  - send: { type: a }
assertions:
  - type: trace_count
    count: 1
`,
			wantErr: "action is required for trace_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_Options(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: x
description: y
exhaustive: false
timeout: 250ms
steps:
  - advance: 1m30s
`))
	require.NoError(t, err)
	assert.False(t, sc.IsExhaustive())
	assert.Equal(t, "250ms", sc.Timeout)
	assert.Equal(t, int64(250), sc.ReceiveTimeout().Milliseconds())
}

func TestRunScenario_Pass(t *testing.T) {
	for _, name := range []string{"counter_async", "debounce"} {
		t.Run(name, func(t *testing.T) {
			sc, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunScenario(sc, counterApp(), nil)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRunScenario_Golden(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "counter_async.yaml"))
	require.NoError(t, err)

	result, err := RunScenario(sc, counterApp(), nil)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	AssertGolden(t, sc.Name, result.Trace)
}

func TestRunScenario_ReportsFailures(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: wrong
description: "expects the wrong state and leaves an action unreceived"
steps:
  - send: { type: increment }
    expect_state: { count: 2 }
  - send: { type: incrementAsync }
assertions:
  - type: trace_count
    action: increment
    count: 3
  - type: final_state
    expect: { count: 99 }
`))
	require.NoError(t, err)

	result, err := RunScenario(sc, counterApp(), nil)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	joined := ""
	for _, e := range result.Errors {
		joined += e + "\n"
	}
	assert.Contains(t, joined, "expect_state")
	assert.Contains(t, joined, "count = 2")
	assert.Contains(t, joined, "3 occurrences of increment")
	assert.Contains(t, joined, "final_state")
}

func TestRunScenario_UnknownAction(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: unknown
description: "type the codec does not know"
steps:
  - send: { type: teleport }
`))
	require.NoError(t, err)

	_, err = RunScenario(sc, counterApp(), nil)
	assert.ErrorContains(t, err, "steps[0].send")
}

func TestMarshalSnapshot_Empty(t *testing.T) {
	data, err := MarshalSnapshot("empty", nil)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"empty\",\n  \"trace\": []\n}\n", string(data))
}

func TestMatchSubset(t *testing.T) {
	actual := map[string]any{"a": 1.0, "b": map[string]any{"c": "x", "d": true}}

	assert.True(t, matchSubset(actual, nil))
	assert.True(t, matchSubset(actual, map[string]any{"a": 1.0}))
	assert.True(t, matchSubset(actual, map[string]any{"b": map[string]any{"c": "x"}}))
	assert.False(t, matchSubset(actual, map[string]any{"b": map[string]any{"c": "y"}}))
	assert.False(t, matchSubset(actual, map[string]any{"z": 1.0}))

	path, ok := subsetMismatch("", actual, map[string]any{"b": map[string]any{"d": false}})
	assert.False(t, ok)
	assert.Equal(t, "b.d", path)
}
