package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/reflux/internal/reducer"
)

// Source is the part of a store the journal listens to.
type Source[A any] interface {
	ID() string
	Seq() int64
	SubscribeToActions(listener func(A)) (unsubscribe func())
}

// Attach appends every action src processes from now on. Write failures are
// logged and the action is skipped; they never reach the store.
// The returned function detaches.
func Attach[A any](ctx context.Context, j *Journal, src Source[A], codec Codec[A], logger *slog.Logger) (detach func()) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("store", src.ID())

	return src.SubscribeToActions(func(action A) {
		// Action listeners run after the store stamps seq, inside the turn.
		seq := src.Seq()
		typ, payload, err := codec.Encode(action)
		if err != nil {
			logger.Error("journal encode failed", "seq", seq, "error", err)
			return
		}
		err = j.Append(ctx, Entry{
			StoreID: src.ID(),
			Seq:     seq,
			Type:    typ,
			Payload: payload,
		})
		if err != nil {
			logger.Error("journal append failed", "seq", seq, "type", typ, "error", err)
		}
	})
}

// Replay folds the journaled actions of storeID through r starting from
// initial. Effects are discarded. Returns the final state and the last seq
// applied, so a live store can resume numbering after it.
func Replay[S, A, D any](
	ctx context.Context,
	j *Journal,
	storeID string,
	codec Codec[A],
	r reducer.Reducer[S, A, D],
	initial S,
	deps D,
) (S, int64, error) {
	entries, err := j.Read(ctx, storeID)
	if err != nil {
		return initial, 0, fmt.Errorf("replay %s: %w", storeID, err)
	}

	state := initial
	var last int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return state, last, err
		}
		action, err := codec.Decode(e.Type, e.Payload)
		if err != nil {
			return state, last, fmt.Errorf("replay %s seq %d: %w", storeID, e.Seq, err)
		}
		state, _ = r.Reduce(state, action, deps)
		last = e.Seq
	}
	return state, last, nil
}
