// Package store owns application state, applies the reducer and executes
// effects.
//
// ARCHITECTURE:
//
// Turn model:
// Dispatched actions enter a FIFO queue. Whichever goroutine finds the store
// idle takes the turn and drains the queue, processing one action at a time.
// A dispatch that arrives while a turn is running (from a listener, or from an
// effect goroutine) is appended and handled by that same turn before it ends.
// Two dispatches made in order by one caller are processed in that order.
//
// Per-action order inside a turn:
//  1. stamp the action with the next logical sequence number
//  2. notify action listeners with the raw action
//  3. run the reducer
//  4. replace state and notify state listeners in subscription order
//  5. schedule the returned effect
//
// Effects never run inside the turn. Bodies run on their own goroutines and
// feed actions back through Dispatch.
//
// Bookkeeping:
// Keyed effects are tracked in a table keyed by (kind, id). Cancellable and
// AfterDelay share one namespace, so a later Cancellable, AfterDelay or
// effect.Cancel with the same id clears a pending AfterDelay. Debounced entries
// hold both the timer and the token of the body once it starts. Throttled keeps
// the timestamp of the last accepted run. Destroy clears all of it.
//
// Cancellation is cooperative: each body gets a context cancelled when it is
// superseded or the store is destroyed. Actions sent by a cancelled body are
// dropped, so a superseded request can never overwrite a newer one.
//
// Failure policy:
// Effect bodies must turn failures into actions. The store does not recover
// panics from reducers or bodies; both are programming errors.
package store
