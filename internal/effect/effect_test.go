package effect

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendOp(actions ...int) Operation[int] {
	return func(ctx context.Context, send Send[int]) {
		for _, a := range actions {
			send(a)
		}
	}
}

func TestConstructors_DoNotExecute(t *testing.T) {
	calls := 0
	op := func(context.Context, Send[int]) { calls++ }
	task := func(context.Context) { calls++ }

	_ = Run(op)
	_ = FireAndForget[int](task)
	_ = Cancellable("a", op)
	_ = Debounced("b", time.Second, op)
	_ = Throttled("c", time.Second, op)
	_ = AfterDelay("d", time.Second, op)
	_ = Batch(Run(op), Cancellable("e", op))

	assert.Equal(t, 0, calls, "constructors must be inert")
}

func TestZeroValueIsNone(t *testing.T) {
	var e Effect[int]
	assert.True(t, e.IsNone())
	assert.Equal(t, KindNone, e.Kind())
	assert.True(t, Run[int](nil).IsNone())
	assert.True(t, FireAndForget[int](nil).IsNone())
}

func TestAccessors(t *testing.T) {
	d := Debounced("search", 300*time.Millisecond, sendOp(1))
	assert.Equal(t, "search", d.ID())
	assert.Equal(t, 300*time.Millisecond, d.Delay())
	assert.Zero(t, d.Interval())

	th := Throttled("save", time.Second, sendOp(1))
	assert.Equal(t, time.Second, th.Interval())
	assert.Zero(t, th.Delay())

	assert.Zero(t, AfterDelay("x", -time.Second, sendOp()).Delay(), "negative delays clamp to zero")
}

func TestMap_PreservesShapeForEveryKind(t *testing.T) {
	tests := []struct {
		name string
		in   Effect[int]
	}{
		{"none", None[int]()},
		{"run", Run(sendOp(1))},
		{"fireAndForget", FireAndForget[int](func(context.Context) {})},
		{"batch", Batch(Run(sendOp(1)), Cancellable("inner", sendOp(2)))},
		{"cancellable", Cancellable("fetch", sendOp(1))},
		{"debounced", Debounced("search", 300*time.Millisecond, sendOp(1))},
		{"throttled", Throttled("save", time.Second, sendOp(1))},
		{"afterDelay", AfterDelay("toast", 2*time.Second, sendOp(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Map(tt.in, strconv.Itoa)
			assert.Equal(t, tt.in.Kind(), out.Kind())
			assert.Equal(t, tt.in.ID(), out.ID())
			assert.Equal(t, tt.in.Delay(), out.Delay())
			assert.Equal(t, tt.in.Interval(), out.Interval())
			require.Len(t, out.Children(), len(tt.in.Children()))
			for i, child := range tt.in.Children() {
				assert.Equal(t, child.Kind(), out.Children()[i].Kind())
				assert.Equal(t, child.ID(), out.Children()[i].ID())
			}
		})
	}
}

func TestMap_TransformsSentActions(t *testing.T) {
	in := Cancellable("fetch", sendOp(1, 2, 3))
	out := Map(in, func(i int) string { return "n" + strconv.Itoa(i) })

	var got []string
	out.Operation()(context.Background(), func(s string) { got = append(got, s) })
	assert.Equal(t, []string{"n1", "n2", "n3"}, got)
}

func TestMap_ComposesAcrossLevels(t *testing.T) {
	in := Run(sendOp(7))
	out := Map(Map(in, func(i int) int { return i * 2 }), strconv.Itoa)

	var got []string
	out.Operation()(context.Background(), func(s string) { got = append(got, s) })
	assert.Equal(t, []string{"14"}, got)
}

func TestMap_UnknownKindPanics(t *testing.T) {
	bad := Effect[int]{kind: Kind(99)}
	assert.Panics(t, func() { Map(bad, strconv.Itoa) })
}

func TestMerge(t *testing.T) {
	assert.True(t, Merge[int]().IsNone())
	assert.True(t, Merge(None[int](), None[int]()).IsNone())

	single := Merge(None[int](), Cancellable("a", sendOp()))
	assert.Equal(t, KindCancellable, single.Kind())

	many := Merge(Run(sendOp()), None[int](), Run(sendOp()))
	assert.Equal(t, KindBatch, many.Kind())
	assert.Len(t, many.Children(), 2)
}

func TestCancel_IsCancellableWithEmptyBody(t *testing.T) {
	e := Cancel[int]("fetch")
	assert.Equal(t, KindCancellable, e.Kind())
	assert.Equal(t, "fetch", e.ID())
	assert.NotPanics(t, func() { e.Operation()(context.Background(), func(int) {}) })
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "afterDelay", KindAfterDelay.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.True(t, KindThrottled.Keyed())
	assert.False(t, KindBatch.Keyed())
}

func TestID(t *testing.T) {
	assert.Equal(t, "search/query", ID("search", "query"))
	assert.Equal(t, "search/query", ID("/search/", "", "query"))
	// "é" precomposed vs e + combining acute accent
	assert.Equal(t, ID("caf\u00e9"), ID("cafe\u0301"))
}

func TestScoped(t *testing.T) {
	e := Scoped("todos", Batch(
		Cancellable("fetch", sendOp()),
		Run(sendOp()),
		Debounced("search", time.Millisecond, sendOp()),
		Throttled("save", time.Second, sendOp()),
		AfterDelay("autosave", time.Second, sendOp()),
		Cancel[int]("fetch"),
	))
	children := e.Children()
	require.Len(t, children, 6)
	assert.Equal(t, "todos/fetch", children[0].ID())
	assert.Equal(t, "", children[1].ID())
	assert.Equal(t, "todos/search", children[2].ID())
	assert.Equal(t, time.Millisecond, children[2].Delay())
	assert.Equal(t, "todos/save", children[3].ID())
	assert.Equal(t, "todos/autosave", children[4].ID())
	assert.Equal(t, "todos/fetch", children[5].ID())
}
