//go:build ws2812debug

package ws2812_test

import (
	"testing"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPanicsWithInvalidState(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "misuse must panic in debug builds")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, ws2812.ErrInvalidState)
	}()
	fn()
}

func TestOneShot_MisusePanics(t *testing.T) {
	t.Parallel()

	bus, o := newOneShot(t, 3)
	require.NoError(t, o.Write(rgb))
	bus.Tick(10)

	assertPanicsWithInvalidState(t, func() { _ = o.Start() })
	assertPanicsWithInvalidState(t, func() { _ = o.Stop() })
	assert.Equal(t, uint64(2), o.Stats().Misuse)
	assert.True(t, o.IsActive())
}

func TestStreaming_MisusePanics(t *testing.T) {
	t.Parallel()

	_, s := newStreaming(t)
	assertPanicsWithInvalidState(t, func() { _ = s.SetNextBuffer(led.Red) })

	require.NoError(t, s.Start(led.Red))
	assertPanicsWithInvalidState(t, func() { _ = s.Start(led.Green) })
	assert.Equal(t, uint64(2), s.Stats().Misuse)
}
