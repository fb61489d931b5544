// Package harness drives a store deterministically from a test.
//
// A TestStore wraps a real store with a virtual clock and separates the
// actions a test sends from the actions effects feed back. Every fed-back
// action lands in a FIFO queue that the test drains with Receive; in
// exhaustive mode (the default) Finish fails if anything is left.
//
//	ts := harness.New(t, Counter{}, counterReducer, deps)
//	ts.Send(IncrementAsync{}, harness.Equals(Counter{}))
//	ts.Receive(IncrementCompleted{Value: 42}, harness.Equals(Counter{Count: 42}))
//	ts.Finish()
//
// Timers for debounced, throttled and delayed effects only fire when the
// test calls Advance.
//
// # Scenario Format
//
// The same loop can be scripted in YAML and run against an App:
//
//	name: counter_async
//	description: "async increment feeds back a completion"
//	steps:
//	  - send: { type: incrementAsync }
//	    expect_state: { count: 0 }
//	  - receive: { type: incrementCompleted, payload: { value: 42 } }
//	    expect_state: { count: 42 }
//	  - advance: 300ms
//	assertions:
//	  - type: trace_count
//	    action: incrementCompleted
//	    count: 1
//
// Scenario files are checked against an embedded CUE schema before they are
// decoded, so unknown keys and malformed steps are reported with positions.
//
// # Assertion Types
//
//   - trace_contains: an action with a matching payload subset was dispatched
//   - trace_order: actions were first dispatched in the given order
//   - trace_count: an action was dispatched exactly N times
//   - final_state: the JSON projection of the final state contains expect
package harness
