// Package effect describes side effects as inert data.
//
// A reducer never performs work. It returns an Effect describing what should
// happen next, and the store decides when (and whether) that work runs.
//
// VARIANTS:
//
//	None           no scheduled work
//	Run            async body that may send actions back into the store
//	FireAndForget  async body that never sends
//	Batch          children scheduled concurrently, no completion order
//	Cancellable    Run keyed by id; a newer one with the same id cancels the older
//	Debounced      body runs once after delay of quiet time on its id
//	Throttled      at most one run per id per interval, excess requests dropped
//	AfterDelay     body runs once after delay unless its id is cancelled first
//
// CANCELLATION:
//
// Every body receives a context.Context. The context is the cancellation
// token for that execution: the store cancels it when the effect is superseded
// or the store is destroyed. Cancellation is cooperative, so a body that
// blocks must select on ctx.Done() at each suspension point.
//
// IDS:
//
// Ids are a flat string namespace per store. Unrelated features sharing one
// store should build ids with ID("feature", "name") so they do not collide.
package effect
