package ws2812_test

import (
	"context"
	"testing"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/sim"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreaming(t *testing.T) (*sim.Bus, *ws2812.Streaming) {
	t.Helper()
	bus, hw := newHardware(t)
	s, err := ws2812.NewStreaming(context.Background(), testConfig(ws2812.StrategyStreaming, 0), hw)
	require.NoError(t, err)
	bus.OnDMAInterrupt(s.HandleDMAInterrupt)
	return bus, s
}

func decodeHalf(t *testing.T, s *ws2812.Streaming, h ws2812.Half) led.Color {
	t.Helper()
	c, err := s.Encoder().Decode(s.Half(h), 0)
	require.NoError(t, err)
	return c
}

func assertZeroHalf(t *testing.T, s *ws2812.Streaming, h ws2812.Half) {
	t.Helper()
	for i, v := range s.Half(h) {
		assert.Equal(t, uint16(0), v, "%s half sample %d", h, i)
	}
}

func TestStreaming_ConfiguresCircularChannel(t *testing.T) {
	t.Parallel()

	bus, s := newStreaming(t)

	cfg := bus.DMA.Config()
	assert.True(t, cfg.Circular)
	assert.Equal(t, hal.DMAHalfTransfer|hal.DMATransferComplete, cfg.Interrupts)
	assert.Equal(t, ws2812.StateIdle, s.State())
}

func TestStreaming_StartEncodesLowerHalf(t *testing.T) {
	t.Parallel()

	bus, s := newStreaming(t)
	require.NoError(t, s.Start(led.Red))

	assert.Equal(t, ws2812.StateTransmitting, s.State())
	assert.Equal(t, ws2812.Lower, s.ActiveHalf())
	assert.Equal(t, led.Red, decodeHalf(t, s, ws2812.Lower))
	assertZeroHalf(t, s, ws2812.Upper)
	assert.Equal(t, 2*ws2812.SamplesPerLED, bus.DMA.TransferCount())
	assert.True(t, s.IsActive())
}

func TestStreaming_SetNextBufferFlipsHalf(t *testing.T) {
	t.Parallel()

	bus, s := newStreaming(t)
	require.NoError(t, s.Start(led.Red))
	require.NoError(t, s.SetNextBuffer(led.Green))

	assert.Equal(t, ws2812.Upper, s.ActiveHalf())
	assert.Equal(t, led.Green, decodeHalf(t, s, ws2812.Upper))
	assert.Equal(t, led.Red, decodeHalf(t, s, ws2812.Lower))
	assert.Equal(t, 2, s.Pending())

	bus.Tick(ws2812.SamplesPerLED)
	assert.Equal(t, 1, s.Pending())
	require.NoError(t, s.SetNextBuffer(led.Blue))
	assert.Equal(t, ws2812.Lower, s.ActiveHalf())
	assert.Equal(t, led.Blue, decodeHalf(t, s, ws2812.Lower))
	assert.Zero(t, s.Stats().DeadlineMisses)
}

func TestStreaming_ResetPatternDrains(t *testing.T) {
	t.Parallel()

	bus, s := newStreaming(t)
	require.NoError(t, s.Start(led.Red))
	require.NoError(t, s.SetNextBuffer(led.Green))
	bus.Tick(ws2812.SamplesPerLED)

	require.NoError(t, s.SetResetPattern())
	assert.Equal(t, ws2812.StateDraining, s.State())
	assert.Equal(t, ws2812.Lower, s.ActiveHalf())
	assertZeroHalf(t, s, ws2812.Lower)

	assert.False(t, s.Drained())

	bus.Tick(8 * ws2812.SamplesPerLED)
	require.True(t, s.Drained())
	require.NoError(t, s.Stop())
	assert.Equal(t, ws2812.StateIdle, s.State())
	assert.False(t, s.IsActive())

	trace := bus.Trace()
	frames, err := s.Encoder().DecodeStream(trace, s.ResetLength())
	require.NoError(t, err)
	assert.Equal(t, [][]led.Color{{led.Red, led.Green}}, frames)
	assert.Zero(t, s.Stats().DeadlineMisses)
}

func TestStreaming_Overrun(t *testing.T) {
	t.Parallel()

	_, s := newStreaming(t)
	require.NoError(t, s.Start(led.Red))
	require.NoError(t, s.SetNextBuffer(led.Green))

	assert.ErrorIs(t, s.SetNextBuffer(led.Blue), ws2812.ErrOverrun)
	assert.ErrorIs(t, s.SetResetPattern(), ws2812.ErrOverrun)

	assert.Equal(t, uint64(2), s.Stats().Overruns)
	assert.Equal(t, led.Red, decodeHalf(t, s, ws2812.Lower), "the half being clocked out must not change")
	assert.Equal(t, led.Green, decodeHalf(t, s, ws2812.Upper))
	assert.Equal(t, ws2812.StateTransmitting, s.State())
}

func TestStreaming_DeadlineMiss(t *testing.T) {
	t.Parallel()

	bus, s := newStreaming(t)
	require.NoError(t, s.Start(led.Red))

	bus.Tick(ws2812.SamplesPerLED)
	assert.Equal(t, uint64(1), s.Stats().DeadlineMisses)

	// The writer resynchronises and refills the half just finished.
	require.NoError(t, s.SetNextBuffer(led.Green))
	assert.Equal(t, ws2812.Lower, s.ActiveHalf())
	bus.Tick(ws2812.SamplesPerLED)
	assert.Equal(t, uint64(1), s.Stats().DeadlineMisses)
}

func TestStreaming_WriteSequence(t *testing.T) {
	t.Parallel()

	bus, s := newStreaming(t)
	frame := []led.Color{led.Red, led.Green, led.Blue, led.White, led.New(1, 2, 3)}
	require.NoError(t, s.Write(frame))

	bus.Tick(20 * ws2812.SamplesPerLED)

	assert.Equal(t, ws2812.StateIdle, s.State())
	assert.False(t, s.IsActive())
	assert.True(t, s.Drained())

	trace := bus.Trace()
	frames, err := s.Encoder().DecodeStream(trace, s.ResetLength())
	require.NoError(t, err)
	assert.Equal(t, [][]led.Color{frame}, frames)

	zeros := 0
	for _, v := range trace[len(frame)*ws2812.SamplesPerLED:] {
		assert.Equal(t, uint16(0), v)
		zeros++
	}
	assert.GreaterOrEqual(t, zeros, s.ResetLength())

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Frames)
	assert.Equal(t, uint64(len(frame)-1), stats.Refills)
	assert.Zero(t, stats.DeadlineMisses)
	assert.Zero(t, stats.Overruns)
	assert.Zero(t, bus.Unacknowledged())
}

func TestStreaming_WriteSingleColor(t *testing.T) {
	t.Parallel()

	bus, s := newStreaming(t)
	require.NoError(t, s.Write([]led.Color{led.Blue}))
	assert.Equal(t, ws2812.StateDraining, s.State())

	bus.Tick(10 * ws2812.SamplesPerLED)
	assert.Equal(t, ws2812.StateIdle, s.State())

	frames, err := s.Encoder().DecodeStream(bus.Trace(), s.ResetLength())
	require.NoError(t, err)
	assert.Equal(t, [][]led.Color{{led.Blue}}, frames)
}

func TestStreaming_InterruptLatency(t *testing.T) {
	t.Parallel()

	frame := []led.Color{led.Red, led.Green, led.Blue, led.White, led.Red, led.Green}

	testCases := []struct {
		name    string
		latency int
		missed  bool
	}{
		{"within deadline", 10, false},
		{"one half late", ws2812.SamplesPerLED + 6, true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bus, s := newStreaming(t)
			bus.SetInterruptLatency(tc.latency)
			require.NoError(t, s.Write(frame))
			bus.Tick(40 * ws2812.SamplesPerLED)

			assert.Equal(t, ws2812.StateIdle, s.State())
			if !tc.missed {
				assert.Zero(t, s.Stats().DeadlineMisses)
				frames, err := s.Encoder().DecodeStream(bus.Trace(), s.ResetLength())
				require.NoError(t, err)
				assert.Equal(t, [][]led.Color{frame}, frames)
				return
			}
			assert.NotZero(t, s.Stats().DeadlineMisses)
		})
	}
}

func TestStreaming_EmptyWrite(t *testing.T) {
	t.Parallel()

	_, s := newStreaming(t)
	assert.ErrorIs(t, s.Write(nil), ws2812.ErrFrameSize)
	assert.Equal(t, ws2812.StateIdle, s.State())
}

func TestNew_SelectsStrategy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		strategy ws2812.Strategy
		leds     int
		want     ws2812.Transmitter
	}{
		{"streaming", ws2812.StrategyStreaming, 0, &ws2812.Streaming{}},
		{"oneshot", ws2812.StrategyOneShot, 8, &ws2812.OneShot{}},
		{"mixed case", "Streaming", 0, &ws2812.Streaming{}},
		{"surrounding spaces", " oneshot ", 8, &ws2812.OneShot{}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, hw := newHardware(t)
			tx, err := ws2812.New(context.Background(), testConfig(tc.strategy, tc.leds), hw)
			require.NoError(t, err)
			require.NotNil(t, tx)
			assert.IsType(t, tc.want, tx)
			assert.Equal(t, ws2812.StateIdle, tx.State())
		})
	}

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		_, hw := newHardware(t)
		tx, err := ws2812.New(context.Background(), testConfig("pwm", 8), hw)
		assert.Error(t, err)
		assert.Nil(t, tx)
	})
}
