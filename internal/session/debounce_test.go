package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var fired atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { fired.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncerLatestWins(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var got atomic.Value
	d.Trigger(func() { got.Store("first") })
	d.Trigger(func() { got.Store("second") })

	require.Eventually(t, func() bool {
		v, _ := got.Load().(string)
		return v != ""
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "second", got.Load())
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
