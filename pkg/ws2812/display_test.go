package ws2812_test

import (
	"context"
	"image/color"
	"testing"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplay_DrawsAndSends(t *testing.T) {
	t.Parallel()

	bus, hw := newHardware(t)
	o, err := ws2812.NewOneShot(context.Background(), testConfig(ws2812.StrategyOneShot, 4*2), hw)
	require.NoError(t, err)
	bus.OnDMAInterrupt(o.HandleDMAInterrupt)

	d := ws2812.NewDisplay(led.NewMatrix(4, 2, led.Off), o)
	x, y := d.Size()
	assert.Equal(t, int16(4), x)
	assert.Equal(t, int16(2), y)

	d.SetPixel(1, 1, color.RGBA{R: 255, A: 255})
	d.SetPixel(4, 0, color.RGBA{G: 255, A: 255})
	d.SetPixel(-1, 0, color.RGBA{G: 255, A: 255})
	assert.Equal(t, led.Red, d.Frame().AtXY(1, 1))

	require.NoError(t, d.Display())
	assert.ErrorIs(t, d.Display(), ws2812.ErrBusy)

	bus.Tick(len(o.Buffer()))
	frames, err := o.Encoder().DecodeStream(bus.Trace(), o.ResetLength())
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, d.Frame().Colors(), frames[0])

	require.NoError(t, d.Display())
}
