package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/harness"
	"github.com/roach88/reflux/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayStoreResult holds the replay result for a single store.
type ReplayStoreResult struct {
	ID            string     `json:"id"`
	LastSeq       int64      `json:"last_seq"`
	Deterministic bool       `json:"deterministic"`
	Diff          string     `json:"diff,omitempty"`
	State         demo.State `json:"state"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Stores           []ReplayStoreResult `json:"stores"`
	AllDeterministic bool                `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions, cfg Config) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [store-id...]",
		Short: "Rebuild store state from the journal and verify determinism",
		Long: `Fold the journaled actions of each store through the demo app reducer.

Effects are not executed: every action an effect produced was journaled
when it was processed. Each store is replayed twice and the two final
states are compared, so a reducer that depends on anything outside its
inputs is reported as non-deterministic.

With no store ids, every store in the journal is replayed.

Exit codes:
  0 - All stores replayed deterministically
  1 - Replays diverged
  2 - Command error (database not found, undecodable entry, etc.)

Examples:
  reflux replay --db ./reflux.db
  reflux replay --db ./reflux.db main --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", cfg.Database, "path to SQLite database (required)")
	if cfg.Database == "" {
		_ = cmd.MarkFlagRequired("db")
	}

	return cmd
}

func runReplay(opts *ReplayOptions, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger()

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	if len(ids) == 0 {
		ids, err = j.Stores(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list stores", err)
		}
	}

	codec := demo.NewCodec()
	app := demo.NewApp(logger)
	deps := demo.DefaultDeps(demo.DefaultCatalog, logger)

	result := ReplayResult{
		Stores:           make([]ReplayStoreResult, 0, len(ids)),
		AllDeterministic: true,
	}
	for _, id := range ids {
		first, last, err := journal.Replay[demo.State, demo.Action, demo.Deps](ctx, j, id, codec, app, demo.NewState(), deps)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay store %s", id), err)
		}
		second, _, err := journal.Replay[demo.State, demo.Action, demo.Deps](ctx, j, id, codec, app, demo.NewState(), deps)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay store %s", id), err)
		}

		diff := harness.Diff(first, second)
		res := ReplayStoreResult{
			ID:            id,
			LastSeq:       last,
			Deterministic: diff == "",
			Diff:          diff,
			State:         first,
		}
		if !res.Deterministic {
			result.AllDeterministic = false
			logger.Warn("replay diverged", "store", id, "last_seq", last)
		}
		result.Stores = append(result.Stores, res)
	}

	var failure *CLIError
	if !result.AllDeterministic {
		failure = &CLIError{Code: CodeNondeterministic, Message: "replays diverged"}
	}
	if err := newPrinter(opts.RootOptions, cmd).emit(result, failure, func(w io.Writer) {
		printReplayText(w, result, opts.Verbose)
	}); err != nil {
		return err
	}
	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}

func printReplayText(w io.Writer, result ReplayResult, verbose bool) {
	if len(result.Stores) == 0 {
		fmt.Fprintln(w, "No stores found in journal.")
		return
	}
	for _, s := range result.Stores {
		mark := "✓"
		if !s.Deterministic {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (last seq %d)\n", mark, s.ID, s.LastSeq)
		if !s.Deterministic {
			fmt.Fprintln(w, s.Diff)
		}
		if verbose {
			_ = printJSON(w, s.State)
		}
	}
	fmt.Fprintln(w)
	if result.AllDeterministic {
		fmt.Fprintf(w, "✓ %d store(s) replayed deterministically\n", len(result.Stores))
		return
	}
	fmt.Fprintln(w, "✗ Replays diverged")
}
