package harness

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
)

var spewConfig = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
	SortKeys:                true,
}

// Diff renders a unified diff between the dumps of expected and actual.
// Returns "" when they dump identically.
func Diff(expected, actual any) string {
	e := spewConfig.Sdump(expected)
	a := spewConfig.Sdump(actual)
	if e == a {
		return ""
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e),
		B:        difflib.SplitLines(a),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	return diff
}

// Equals returns an assertion that the state deep-equals expected.
func Equals[S any](expected S) func(S) error {
	return func(actual S) error {
		if assert.ObjectsAreEqual(expected, actual) {
			return nil
		}
		return fmt.Errorf("state mismatch:\n%s", Diff(expected, actual))
	}
}

func describe(v any) string {
	return fmt.Sprintf("%T%+v", v, v)
}
