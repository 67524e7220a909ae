package triangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceStackUnwindsInReverse(t *testing.T) {
	var stack resourceStack
	var order []int
	for i := 0; i < 4; i++ {
		i := i
		stack.push(func() { order = append(order, i) })
	}

	stack.unwind()
	assert.Equal(t, []int{3, 2, 1, 0}, order)
}

func TestResourceStackUnwindIsIdempotent(t *testing.T) {
	var stack resourceStack
	calls := 0
	stack.push(func() { calls++ })

	stack.unwind()
	stack.unwind()
	assert.Equal(t, 1, calls)
}

func TestResourceStackEmptyUnwind(t *testing.T) {
	var stack resourceStack
	assert.NotPanics(t, stack.unwind)
}

func TestEngineFrameLoopCarriesStaleHook(t *testing.T) {
	e := &Engine{cfg: DefaultConfig()}
	called := false
	e.OnStale = func() error {
		called = true
		return nil
	}

	loop, err := e.newFrameLoop()
	require.NoError(t, err)
	require.NotNil(t, loop.OnStale)
	require.NoError(t, loop.OnStale())
	assert.True(t, called)
}

func TestResourceStackPartialSetup(t *testing.T) {
	// A failure mid-setup unwinds only what exists so far.
	var stack resourceStack
	var order []string
	stack.push(func() { order = append(order, "instance") })
	stack.push(func() { order = append(order, "surface") })
	// Device creation fails here; nothing after surface was pushed.

	stack.unwind()
	assert.Equal(t, []string{"surface", "instance"}, order)
}
