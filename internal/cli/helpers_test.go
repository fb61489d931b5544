package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	scenarioDir = filepath.Join("..", "demo", "testdata", "scenarios")
	goldenDir   = filepath.Join("..", "demo", "testdata", "golden")
)

// execute runs cmd with args and stdin, returning stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse unmarshals a --format json response into T.
func decodeResponse[T any](t *testing.T, out string) (T, *CLIError) {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   T         `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.Data, resp.Error
}

func textOpts() *RootOptions { return &RootOptions{Format: "text"} }
func jsonOpts() *RootOptions { return &RootOptions{Format: "json"} }

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "reflux.db")
}

// seed runs lines through the run command against db.
func seed(t *testing.T, db string, lines ...string) {
	t.Helper()
	_, err := execute(t, NewRunCommand(textOpts(), Config{StoreID: "main"}), strings.Join(lines, "\n"), "--db", db)
	require.NoError(t, err)
}
