package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"exit_error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad")), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)
	assert.Equal(t, "failed to open database: no such file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad", NewExitError(ExitFailure, "bad").Error())
}

func TestPrinter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &printer{format: "json", w: buf}

	require.NoError(t, p.emit(map[string]int{"count": 1}, nil, func(w io.Writer) {
		t.Fatal("text renderer called in json mode")
	}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"count": float64(1)}, resp.Data)
}

func TestPrinter_JSONFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &printer{format: "json", w: buf}

	require.NoError(t, p.emit(nil, &CLIError{Code: CodeScenarioFailed, Message: "1 scenario(s) failed"}, nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeScenarioFailed, resp.Error.Code)
}

func TestPrinter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &printer{format: "text", w: buf}

	require.NoError(t, p.emit("ignored", nil, func(w io.Writer) {
		fmt.Fprintln(w, "hello")
	}))
	assert.Equal(t, "hello\n", buf.String())
}
