package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDemoScenarios(t *testing.T) {
	out, err := execute(t, NewValidateCommand(textOpts()), "", scenarioDir)
	require.NoError(t, err)
	assert.Contains(t, out, "3 valid, 0 invalid")
}

func TestValidateReportsIssues(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "unknown.yaml", unknownActionScenario)
	writeScenario(t, dir, "bad_order.yaml", `name: bad_order
description: "orders an unknown action"
steps:
  - send: { type: increment }
assertions:
  - type: trace_order
    actions: [increment, teleport]
`)
	writeScenario(t, dir, "schema.yaml", `name: schema
description: "misspelled key"
stepz: []
`)

	out, err := execute(t, NewValidateCommand(jsonOpts()), "", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	result, failure := decodeResponse[ValidationResult](t, out)
	require.NotNil(t, failure)
	assert.Equal(t, CodeInvalidScenario, failure.Code)
	assert.Equal(t, 0, result.Valid)
	require.Len(t, result.Issues, 3)

	joined := ""
	for _, issue := range result.Issues {
		joined += issue.Error + "\n"
	}
	assert.Contains(t, joined, `steps[0].send: unknown action type "launchRocket"`)
	assert.Contains(t, joined, `assertions[0].actions: unknown action type "teleport"`)
	assert.Contains(t, joined, "invalid scenario")
}
