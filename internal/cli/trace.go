package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Since    int64
	Type     string // optional - filter to one action type
}

// TraceEvent is one journaled action.
type TraceEvent struct {
	Seq        int64     `json:"seq"`
	Type       string    `json:"type"`
	Payload    any       `json:"payload,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TraceResult holds the trace of one store.
type TraceResult struct {
	StoreID string         `json:"store_id"`
	Events  []TraceEvent   `json:"events"`
	Counts  map[string]int `json:"counts"`
	LastSeq int64          `json:"last_seq"`
}

// StoreList is printed when no store id is given.
type StoreList struct {
	Stores []string `json:"stores"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions, cfg Config) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [store-id]",
		Short: "Show the journaled actions of a store",
		Long: `Show the actions a store processed, in sequence order.

Without a store id, lists the stores present in the journal.

Examples:
  reflux trace --db ./reflux.db
  reflux trace --db ./reflux.db main
  reflux trace --db ./reflux.db main --since 10 --type searchResponse
  reflux trace --db ./reflux.db main --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", cfg.Database, "path to SQLite database (required)")
	if cfg.Database == "" {
		_ = cmd.MarkFlagRequired("db")
	}
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only show actions after this seq")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only show actions of this type")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	p := newPrinter(opts.RootOptions, cmd)

	if len(args) == 0 {
		ids, err := j.Stores(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list stores", err)
		}
		return p.emit(StoreList{Stores: ids}, nil, func(w io.Writer) {
			if len(ids) == 0 {
				fmt.Fprintln(w, "No stores found in journal.")
				return
			}
			for _, id := range ids {
				fmt.Fprintln(w, id)
			}
		})
	}

	result, err := buildTrace(ctx, j, args[0], opts.Since, opts.Type)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	return p.emit(result, nil, func(w io.Writer) {
		printTraceText(w, result)
	})
}

func buildTrace(ctx context.Context, j *journal.Journal, storeID string, since int64, typ string) (TraceResult, error) {
	entries, err := j.ReadSince(ctx, storeID, since)
	if err != nil {
		return TraceResult{}, err
	}
	last, err := j.LastSeq(ctx, storeID)
	if err != nil {
		return TraceResult{}, err
	}

	result := TraceResult{
		StoreID: storeID,
		Events:  make([]TraceEvent, 0, len(entries)),
		Counts:  make(map[string]int),
		LastSeq: last,
	}
	for _, e := range entries {
		if typ != "" && e.Type != typ {
			continue
		}
		result.Events = append(result.Events, TraceEvent{
			Seq:        e.Seq,
			Type:       e.Type,
			Payload:    decodePayload(e.Payload),
			RecordedAt: e.RecordedAt,
		})
		result.Counts[e.Type]++
	}
	return result, nil
}

// decodePayload returns the payload as generic JSON, or nil when it is empty.
func decodePayload(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	return v
}

func printTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Store: %s\n\n", result.StoreID)
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No actions found.")
		return
	}
	for _, e := range result.Events {
		fmt.Fprintf(w, "[seq %d] %s %s", e.Seq, e.RecordedAt.UTC().Format(time.RFC3339Nano), e.Type)
		if e.Payload != nil {
			data, _ := json.Marshal(e.Payload)
			fmt.Fprintf(w, " %s", data)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d action(s), last seq %d\n", len(result.Events), result.LastSeq)
}
