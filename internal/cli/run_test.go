package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/journal"
)

func TestRunMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewRunCommand(textOpts(), Config{}), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRunNonExistentDatabase(t *testing.T) {
	_, err := execute(t, NewRunCommand(textOpts(), Config{StoreID: "main"}), "", "--db", "/nonexistent/path/reflux.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRunDispatchesAndJournals(t *testing.T) {
	db := tempDB(t)
	input := strings.Join([]string{
		`{"type": "increment"}`,
		`{"type": "increment"}`,
		``,
		`# comment lines are skipped`,
		`{"type": "addTodo", "payload": {"title": "buy milk"}}`,
	}, "\n")

	out, err := execute(t, NewRunCommand(jsonOpts(), Config{StoreID: "main"}), input, "--db", db)
	require.NoError(t, err)

	result, failure := decodeResponse[RunResult](t, out)
	assert.Nil(t, failure)
	require.Len(t, result.Stores, 1)
	s := result.Stores[0]
	assert.Equal(t, "main", s.ID)
	assert.Equal(t, 3, s.Dispatched)
	assert.Equal(t, int64(3), s.Seq)
	assert.Equal(t, 2, s.State.Counter.Count)
	require.Len(t, s.State.Todos.Items, 1)
	assert.Equal(t, "buy milk", s.State.Todos.Items[0].Title)

	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Read(context.Background(), "main")
	require.NoError(t, err)
	var types []string
	for _, e := range entries {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"increment", "increment", "addTodo"}, types)
}

func TestRunWaitsForEffects(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, NewRunCommand(jsonOpts(), Config{StoreID: "main"}), `{"type": "incrementAsync"}`, "--db", db)
	require.NoError(t, err)

	result, _ := decodeResponse[RunResult](t, out)
	require.Len(t, result.Stores, 1)
	assert.Equal(t, demo.CounterState{Count: demo.AsyncValue}, result.Stores[0].State.Counter)
	assert.Equal(t, int64(2), result.Stores[0].Seq, "effect action is journaled")
}

func TestRunDebouncedSearch(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, NewRunCommand(jsonOpts(), Config{StoreID: "main"}),
		`{"type": "queryChanged", "payload": {"query": "ap"}}`, "--db", db, "--wait", "5s")
	require.NoError(t, err)

	result, _ := decodeResponse[RunResult](t, out)
	require.Len(t, result.Stores, 1)
	search := result.Stores[0].State.Search
	assert.Equal(t, "ap", search.Query)
	assert.False(t, search.Loading)
	assert.Equal(t, []string{"apple", "apricot", "grape"}, search.Results)
}

func TestRunResumesFromJournal(t *testing.T) {
	db := tempDB(t)
	seed(t, db, `{"type": "increment"}`, `{"type": "increment"}`)

	out, err := execute(t, NewRunCommand(jsonOpts(), Config{StoreID: "main"}), `{"type": "increment"}`, "--db", db)
	require.NoError(t, err)

	result, _ := decodeResponse[RunResult](t, out)
	require.Len(t, result.Stores, 1)
	s := result.Stores[0]
	assert.Equal(t, int64(2), s.ResumedFrom)
	assert.Equal(t, int64(3), s.Seq)
	assert.Equal(t, 3, s.State.Counter.Count)

	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()
	last, err := j.LastSeq(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestRunMultipleStores(t *testing.T) {
	db := tempDB(t)
	input := strings.Join([]string{
		`{"store": "b", "type": "increment"}`,
		`{"store": "a", "type": "decrement"}`,
		`{"store": " b ", "type": "increment"}`,
		`{"type": "increment"}`,
	}, "\n")

	out, err := execute(t, NewRunCommand(jsonOpts(), Config{StoreID: "main"}), input, "--db", db)
	require.NoError(t, err)

	result, _ := decodeResponse[RunResult](t, out)
	require.Len(t, result.Stores, 3)
	counts := map[string]int{}
	var ids []string
	for _, s := range result.Stores {
		ids = append(ids, s.ID)
		counts[s.ID] = s.State.Counter.Count
	}
	assert.Equal(t, []string{"a", "b", "main"}, ids)
	assert.Equal(t, map[string]int{"a": -1, "b": 2, "main": 1}, counts)
}

func TestRunRejectsBadLines(t *testing.T) {
	db := tempDB(t)
	input := strings.Join([]string{
		`not json`,
		`{"payload": {}}`,
		`{"type": "launchRocket"}`,
		`{"type": "increment"}`,
	}, "\n")

	out, err := execute(t, NewRunCommand(jsonOpts(), Config{StoreID: "main"}), input, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	result, failure := decodeResponse[RunResult](t, out)
	require.NotNil(t, failure)
	assert.Equal(t, CodeRejectedInput, failure.Code)
	assert.Equal(t, 3, result.Rejected)
	require.Len(t, result.Stores, 1)
	assert.Equal(t, 1, result.Stores[0].State.Counter.Count)
}

func TestRunTextOutput(t *testing.T) {
	db := tempDB(t)
	seed(t, db, `{"type": "increment"}`)

	out, err := execute(t, NewRunCommand(textOpts(), Config{StoreID: "main"}), `{"type": "increment"}`, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "store main: 1 action(s) dispatched, seq 2 (resumed from 1)")
	assert.Contains(t, out, `"count": 2`)
}

func TestDispatchLines_RejectsBeforeAcquire(t *testing.T) {
	var got []string
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rejected, err := dispatchLines(context.Background(),
		bytes.NewBufferString(`{"store": "  ", "type": "nope"}`+"\n"+`{"store": "x", "type": "increment"}`),
		"main", demo.NewCodec(), logger,
		func(id string) (*session, error) {
			got = append(got, id)
			return nil, assert.AnError
		})
	require.NoError(t, err)
	assert.Equal(t, 2, rejected)
	assert.Equal(t, []string{"x"}, got, "unknown types are rejected before a store is acquired")
}
