package registry

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resource struct {
	id     string
	closed bool
}

type fixture struct {
	mu      sync.Mutex
	created []string
	closed  []string
}

func (f *fixture) registry() *Registry[*resource] {
	return New(
		func(id string) (*resource, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.created = append(f.created, id)
			return &resource{id: id}, nil
		},
		func(id string, r *resource) {
			f.mu.Lock()
			defer f.mu.Unlock()
			r.closed = true
			f.closed = append(f.closed, id)
		},
	)
}

func TestAcquire_SharesOneValuePerID(t *testing.T) {
	f := &fixture{}
	r := f.registry()

	a, err := r.Acquire("session-1")
	require.NoError(t, err)
	b, err := r.Acquire("session-1")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, []string{"session-1"}, f.created)
	assert.Equal(t, 2, r.Refs("session-1"))
	assert.Equal(t, 1, r.Len())
}

func TestRelease_ClosesOnLastHolder(t *testing.T) {
	f := &fixture{}
	r := f.registry()

	v, err := r.Acquire("s")
	require.NoError(t, err)
	_, err = r.Acquire("s")
	require.NoError(t, err)

	require.NoError(t, r.Release("s"))
	assert.False(t, v.closed, "one holder remains")
	assert.Equal(t, 1, r.Refs("s"))

	require.NoError(t, r.Release("s"))
	assert.True(t, v.closed)
	assert.Equal(t, 0, r.Len())

	// A fresh acquire builds a new value.
	w, err := r.Acquire("s")
	require.NoError(t, err)
	assert.NotSame(t, v, w)
	assert.Equal(t, []string{"s", "s"}, f.created)
}

func TestRelease_NotAcquired(t *testing.T) {
	r := (&fixture{}).registry()
	err := r.Release("ghost")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestAcquire_BlankID(t *testing.T) {
	r := (&fixture{}).registry()
	_, err := r.Acquire("  ")
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestAcquire_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	r := New(func(string) (int, error) { return 0, boom }, nil)

	_, err := r.Acquire("x")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Len(), "failed creation is not registered")
}

func TestClose(t *testing.T) {
	f := &fixture{}
	r := f.registry()
	for _, id := range []string{"b", "a", "c"} {
		_, err := r.Acquire(id)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())

	r.Close()
	r.Close()

	assert.Equal(t, []string{"a", "b", "c"}, f.closed, "closed once each, in id order")
	_, err := r.Acquire("a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Release("a"), ErrClosed)
}

func TestAcquire_Concurrent(t *testing.T) {
	f := &fixture{}
	r := f.registry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Acquire("shared-" + strconv.Itoa(i%5))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.created, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, 10, r.Refs("shared-"+strconv.Itoa(i)))
	}
}
