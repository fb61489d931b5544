package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/harness"
)

// ValidationIssue is one scenario file that failed to load.
type ValidationIssue struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ValidationResult holds the validate output.
type ValidationResult struct {
	Valid  int               `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>...",
		Short: "Check scenario files without running them",
		Long: `Check scenario files against the scenario schema and the demo app.

A file is valid when it matches the schema and every action type it
names is known to the demo app codec.

Examples:
  reflux validate ./scenarios
  reflux validate ./scenarios/search.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, "")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}

	known := make(map[string]bool)
	for _, name := range demo.NewCodec().Types() {
		known[name] = true
	}

	result := ValidationResult{Issues: []ValidationIssue{}}
	for _, file := range files {
		if err := validateScenarioFile(file, known); err != nil {
			result.Issues = append(result.Issues, ValidationIssue{File: file, Error: err.Error()})
			continue
		}
		result.Valid++
	}

	var failure *CLIError
	if len(result.Issues) > 0 {
		failure = &CLIError{
			Code:    CodeInvalidScenario,
			Message: fmt.Sprintf("%d invalid scenario file(s)", len(result.Issues)),
			Details: result.Issues,
		}
	}
	if err := newPrinter(opts, cmd).emit(result, failure, func(w io.Writer) {
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "✗ %s\n  %s\n", issue.File, issue.Error)
		}
		fmt.Fprintf(w, "%d valid, %d invalid\n", result.Valid, len(result.Issues))
	}); err != nil {
		return err
	}
	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}

func validateScenarioFile(file string, known map[string]bool) error {
	sc, err := harness.LoadScenario(file)
	if err != nil {
		return err
	}
	check := func(where string, typ string) error {
		if !known[typ] {
			return fmt.Errorf("%s: unknown action type %q", where, typ)
		}
		return nil
	}
	for i, step := range sc.Steps {
		var err error
		switch {
		case step.Send != nil:
			err = check(fmt.Sprintf("steps[%d].send", i), step.Send.Type)
		case step.Receive != nil:
			err = check(fmt.Sprintf("steps[%d].receive", i), step.Receive.Type)
		}
		if err != nil {
			return err
		}
	}
	for i, a := range sc.Assertions {
		if a.Action != "" {
			if err := check(fmt.Sprintf("assertions[%d].action", i), a.Action); err != nil {
				return err
			}
		}
		for _, name := range a.Actions {
			if err := check(fmt.Sprintf("assertions[%d].actions", i), name); err != nil {
				return err
			}
		}
	}
	return nil
}
