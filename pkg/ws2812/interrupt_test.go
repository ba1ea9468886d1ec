package ws2812_test

import (
	"context"
	"testing"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/sim"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingTimer reports a fixed set of pending timer interrupts.
type pendingTimer struct {
	*sim.Timer
	pending hal.TimerInterrupt
}

func (p *pendingTimer) InterruptPending() hal.TimerInterrupt {
	return p.pending
}

func TestEngine_TimerInterruptIsAcknowledged(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		handler     func(ws2812.Transmitter) func()
		wantPending bool
	}{
		{"engine handler", func(tx ws2812.Transmitter) func() { return tx.HandleTimerInterrupt }, false},
		{"handler without acknowledge", func(ws2812.Transmitter) func() { return func() {} }, true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bus, o := newOneShot(t, 3)
			bus.OnDMAInterrupt(o.HandleDMAInterrupt)
			bus.OnTimerInterrupt(tc.handler(o))
			bus.Timer.EnableInterrupts(hal.TimerDMARequest | hal.TimerUpdate | hal.TimerCompare)

			require.NoError(t, o.Write(rgb))
			bus.Tick(len(o.Buffer()))
			require.Equal(t, ws2812.StateIdle, o.State())

			if tc.wantPending {
				assert.NotZero(t, bus.Unacknowledged())
				return
			}
			assert.Zero(t, bus.Unacknowledged())
			assert.Equal(t, hal.TimerInterrupt(0), bus.Timer.InterruptPending())
		})
	}
}

func TestEngine_IsCompareInterrupt(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		pending hal.TimerInterrupt
		want    bool
	}{
		{"nothing pending", 0, false},
		{"compare", hal.TimerCompare, true},
		{"update", hal.TimerUpdate, false},
		{"compare and update", hal.TimerCompare | hal.TimerUpdate, false},
		{"dma request only", hal.TimerDMARequest, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bus, hw := newHardware(t)
			timer := &pendingTimer{Timer: bus.Timer}
			hw.Timer = timer
			o, err := ws2812.NewOneShot(context.Background(), testConfig(ws2812.StrategyOneShot, 1), hw)
			require.NoError(t, err)

			timer.pending = tc.pending
			assert.Equal(t, tc.want, o.IsCompareInterrupt())
		})
	}
}

func TestOneShot_TransferError(t *testing.T) {
	t.Parallel()

	bus, o := newOneShot(t, 3)
	bus.OnDMAInterrupt(o.HandleDMAInterrupt)

	require.NoError(t, o.Write(rgb))
	// The channel runs out of memory after ten samples.
	bus.DMA.SetMemory(make([]uint16, 10))
	bus.Tick(20)

	assert.Equal(t, ws2812.StateIdle, o.State())
	assert.False(t, o.IsActive())
	assert.False(t, bus.Timer.CounterEnabled())
	assert.Zero(t, bus.Unacknowledged())

	stats := o.Stats()
	assert.Equal(t, uint64(1), stats.TransferErrors)
	assert.Equal(t, uint64(1), stats.Interrupts)

	// The engine recovers with the next frame.
	bus.ResetTrace()
	require.NoError(t, o.Write(rgb))
	bus.Tick(len(o.Buffer()))
	assert.Equal(t, ws2812.StateIdle, o.State())
	assert.Equal(t, uint64(1), o.Stats().TransferErrors)
}
