package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/clock"
	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/journal"
	"github.com/roach88/reflux/internal/registry"
	"github.com/roach88/reflux/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	StoreID  string
	Wait     time.Duration

	otelEndpoint string
}

// inputLine is one action read from stdin.
type inputLine struct {
	Store   string          `json:"store,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StoreResult is the state of one store when run finishes.
type StoreResult struct {
	ID          string     `json:"id"`
	Seq         int64      `json:"seq"`
	ResumedFrom int64      `json:"resumed_from"`
	Dispatched  int        `json:"dispatched"`
	State       demo.State `json:"state"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Stores   []StoreResult `json:"stores"`
	Rejected int           `json:"rejected"`
}

// session is a live store with its journal attachment.
type session struct {
	store       *store.Store[demo.State, demo.Action, demo.Deps]
	detach      func()
	resumedFrom int64
	dispatched  int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, cfg Config) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, otelEndpoint: cfg.OTelEndpoint}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch actions read from stdin",
		Long: `Dispatch actions to demo app stores, journaling every processed action.

Each stdin line is a JSON object:

  {"type": "increment"}
  {"type": "addTodo", "payload": {"title": "buy milk"}}
  {"store": "other", "type": "queryChanged", "payload": {"query": "ap"}}

Lines without "store" go to --id. A store whose id already has journal
entries is restored by replay and continues its sequence numbering.
After the input ends, run waits up to --wait for effects to finish and
prints the final state of every store it touched.

Exit codes:
  0 - All lines dispatched
  1 - One or more lines were rejected
  2 - Command error (database cannot be opened, etc.)

Examples:
  echo '{"type":"increment"}' | reflux run --db ./reflux.db
  reflux run --db ./reflux.db --id counter --wait 1s < actions.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStores(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", cfg.Database, "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.StoreID, "id", cfg.StoreID, "store id for lines without \"store\"")
	cmd.Flags().DurationVar(&opts.Wait, "wait", 2*time.Second, "how long to wait for effects after input ends")
	if cfg.Database == "" {
		_ = cmd.MarkFlagRequired("db")
	}

	return cmd
}

func runStores(opts *RunOptions, cmd *cobra.Command) error {
	logger := opts.logger()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if err := j.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()

	tp, err := newTracerProvider(ctx, logger, opts.otelEndpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()
	tracer := tp.Tracer(tracerName)

	codec := demo.NewCodec()
	app := demo.NewApp(logger)
	deps := demo.DefaultDeps(demo.DefaultCatalog, logger)

	reg := registry.New[*session](
		func(id string) (*session, error) {
			state, last, err := journal.Replay[demo.State, demo.Action, demo.Deps](ctx, j, id, codec, app, demo.NewState(), deps)
			if err != nil {
				return nil, err
			}
			st := store.New[demo.State, demo.Action, demo.Deps](state, app, deps,
				store.WithID(id),
				store.WithSequence(clock.NewSequenceAt(last)),
				store.WithLogger(logger),
				store.WithTracer(tracer),
			)
			if last > 0 {
				logger.Info("store resumed from journal", "store", id, "seq", last)
			}
			return &session{
				store:       st,
				detach:      journal.Attach[demo.Action](ctx, j, st, codec, logger),
				resumedFrom: last,
			}, nil
		},
		func(_ string, s *session) {
			s.store.Destroy()
			s.detach()
		},
	)
	defer reg.Close()

	sessions := make(map[string]*session)
	rejected, err := dispatchLines(ctx, cmd.InOrStdin(), opts.StoreID, codec, logger, func(id string) (*session, error) {
		if s, ok := sessions[id]; ok {
			return s, nil
		}
		s, err := reg.Acquire(id)
		if err != nil {
			return nil, err
		}
		sessions[id] = s
		return s, nil
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	result := RunResult{Stores: make([]StoreResult, 0, len(sessions)), Rejected: rejected}
	for _, id := range reg.IDs() {
		s := sessions[id]
		if !waitIdle(ctx, s.store, opts.Wait) {
			logger.Warn("effects still running at exit",
				"store", id,
				"in_flight", s.store.InFlight(),
				"active", s.store.ActiveEffects(),
			)
		}
		result.Stores = append(result.Stores, StoreResult{
			ID:          id,
			Seq:         s.store.Seq(),
			ResumedFrom: s.resumedFrom,
			Dispatched:  s.dispatched,
			State:       s.store.State(),
		})
	}
	for id := range sessions {
		if err := reg.Release(id); err != nil {
			logger.Error("release store", "store", id, "error", err)
		}
	}

	var failure *CLIError
	if rejected > 0 {
		failure = &CLIError{Code: CodeRejectedInput, Message: fmt.Sprintf("%d input line(s) rejected", rejected)}
	}
	if err := newPrinter(opts.RootOptions, cmd).emit(result, failure, func(w io.Writer) {
		printRunText(w, result)
	}); err != nil {
		return err
	}
	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}

// dispatchLines decodes each line of r and dispatches it to the session
// returned by acquire. Malformed lines are logged and counted.
func dispatchLines(
	ctx context.Context,
	r io.Reader,
	defaultID string,
	codec journal.Codec[demo.Action],
	logger *slog.Logger,
	acquire func(id string) (*session, error),
) (int, error) {
	rejected := 0
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var line inputLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			logger.Warn("input line rejected", "line", lineNo, "error", err)
			rejected++
			continue
		}
		if line.Type == "" {
			logger.Warn("input line rejected", "line", lineNo, "error", "type is required")
			rejected++
			continue
		}
		payload := []byte(line.Payload)
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		action, err := codec.Decode(line.Type, payload)
		if err != nil {
			logger.Warn("input line rejected", "line", lineNo, "error", err)
			rejected++
			continue
		}

		id := strings.TrimSpace(line.Store)
		if id == "" {
			id = strings.TrimSpace(defaultID)
		}
		s, err := acquire(id)
		if err != nil {
			logger.Warn("input line rejected", "line", lineNo, "store", id, "error", err)
			rejected++
			continue
		}
		if err := s.store.TryDispatch(action); err != nil {
			logger.Warn("input line rejected", "line", lineNo, "store", id, "error", err)
			rejected++
			continue
		}
		s.dispatched++
	}
	return rejected, scanner.Err()
}

// waitIdle polls until st has no running effects and no pending timers, or
// until wait elapses.
func waitIdle(ctx context.Context, st *store.Store[demo.State, demo.Action, demo.Deps], wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for {
		st.Settle()
		if st.InFlight() == 0 && st.ActiveEffects() == 0 {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func printRunText(w io.Writer, result RunResult) {
	for _, s := range result.Stores {
		fmt.Fprintf(w, "store %s: %d action(s) dispatched, seq %d", s.ID, s.Dispatched, s.Seq)
		if s.ResumedFrom > 0 {
			fmt.Fprintf(w, " (resumed from %d)", s.ResumedFrom)
		}
		fmt.Fprintln(w)
		_ = printJSON(w, s.State)
	}
	if result.Rejected > 0 {
		fmt.Fprintf(w, "%d input line(s) rejected\n", result.Rejected)
	}
}
