//go:build !ws2812debug

package ws2812

import (
	"context"
	"testing"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/sim"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// Not parallel: the counters are process-wide.
func TestMetrics_StreamingCounters(t *testing.T) {
	bus := sim.NewBus()
	cfg := DefaultConfig()
	s, err := NewStreaming(context.Background(), cfg, Hardware{
		Timer: bus.Timer,
		DMA:   bus.DMA,
		Clock: hal.FixedClock(64 * physic.MegaHertz),
		Pin:   &gpiotest.Pin{N: "GPIO18"},
	})
	require.NoError(t, err)
	bus.OnDMAInterrupt(s.HandleDMAInterrupt)

	frames := testutil.ToFloat64(framesCounter.WithLabelValues(string(StrategyStreaming)))
	misses := testutil.ToFloat64(deadlineMissCounter)
	overruns := testutil.ToFloat64(overrunCounter)
	misuse := testutil.ToFloat64(misuseCounter.WithLabelValues("set_reset_pattern"))

	require.NoError(t, s.Start(led.Red))
	bus.Tick(SamplesPerLED)
	require.NoError(t, s.SetNextBuffer(led.Green))
	assert.ErrorIs(t, s.SetNextBuffer(led.Blue), ErrOverrun)
	s.Abort()
	assert.ErrorIs(t, s.SetResetPattern(), ErrInvalidState)

	assert.Equal(t, frames+1, testutil.ToFloat64(framesCounter.WithLabelValues(string(StrategyStreaming))))
	assert.Equal(t, misses+1, testutil.ToFloat64(deadlineMissCounter))
	assert.Equal(t, overruns+1, testutil.ToFloat64(overrunCounter))
	assert.Equal(t, misuse+1, testutil.ToFloat64(misuseCounter.WithLabelValues("set_reset_pattern")))
}
