package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string

	// Logger is built in PersistentPreRunE. Commands constructed directly
	// in tests fall back to a discard logger.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the reflux CLI.
func NewRootCommand() *cobra.Command {
	cfg, cfgErr := LoadConfig()
	return newRootCommand(cfg, cfgErr)
}

func newRootCommand(cfg Config, cfgErr error) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reflux",
		Short: "reflux - reducer and effect runtime",
		Long: `Drive reducer/effect stores from the command line.

State changes only in reducers. Side effects are values returned by
reducers and executed by the store. Actions are journaled to SQLite so
a store can be traced and replayed.

Environment:
  REFLUX_DB         default for --db
  REFLUX_STORE_ID   default for --id
  REFLUX_FORMAT     default for --format
  REFLUX_LOG_LEVEL  default for --log-level
  REFLUX_OTEL_ENDPOINT  OTLP/HTTP traces endpoint for run (optional)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", cfgErr)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level, err := parseLevel(opts.LogLevel)
			if err != nil {
				return err
			}
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts, cfg))
	cmd.AddCommand(NewReplayCommand(opts, cfg))
	cmd.AddCommand(NewTraceCommand(opts, cfg))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// logger returns the configured logger or a discard logger.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
