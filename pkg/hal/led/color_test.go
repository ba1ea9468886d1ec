package led_test

import (
	"image/color"
	"testing"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColor_BytesRoundTrip(t *testing.T) {
	t.Parallel()

	for _, rgb := range [][3]byte{
		{0, 0, 0},
		{255, 255, 255},
		{1, 2, 3},
		{0xde, 0xad, 0xbe},
	} {
		c := led.FromBytes(rgb)
		assert.Equal(t, rgb, c.Bytes())
		assert.Equal(t, led.New(rgb[0], rgb[1], rgb[2]), c)
	}
}

func TestColor_NamedValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, led.Color{}, led.Off)
	assert.Equal(t, led.New(255, 255, 255), led.White)
	assert.Equal(t, led.New(255, 0, 0), led.Red)
	assert.Equal(t, led.New(0, 255, 0), led.Green)
	assert.Equal(t, led.New(0, 0, 255), led.Blue)
}

func TestColor_InvertTwiceIsIdentity(t *testing.T) {
	t.Parallel()

	for v := 0; v < 256; v++ {
		orig := led.New(uint8(v), uint8(255-v), uint8(v*7))
		c := orig
		c.Invert()
		assert.Equal(t, led.New(uint8(255-v), uint8(v), 255-uint8(v*7)), c)
		c.Invert()
		assert.Equal(t, orig, c)
	}
}

func TestColor_SaturatingArithmetic(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		got      led.Color
		expected led.Color
	}{
		{"add within range", led.New(10, 20, 30).Add(led.New(1, 2, 3)), led.New(11, 22, 33)},
		{"add saturates", led.New(200, 255, 0).Add(led.New(100, 1, 0)), led.New(255, 255, 0)},
		{"sub within range", led.New(10, 20, 30).Sub(led.New(1, 2, 3)), led.New(9, 18, 27)},
		{"sub saturates", led.New(10, 0, 5).Sub(led.New(20, 1, 5)), led.New(0, 0, 0)},
		{"mul within range", led.New(2, 3, 4).Mul(led.New(10, 10, 10)), led.New(20, 30, 40)},
		{"mul saturates", led.New(16, 255, 0).Mul(led.New(16, 2, 200)), led.New(255, 255, 0)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.got)
		})
	}
}

func TestColor_ParseHex(t *testing.T) {
	t.Parallel()

	c, err := led.ParseHex("#ff8001")
	require.NoError(t, err)
	assert.Equal(t, led.New(0xff, 0x80, 0x01), c)
	assert.Equal(t, "#ff8001", c.String())

	c, err = led.ParseHex("0x00ff00")
	require.NoError(t, err)
	assert.Equal(t, led.Green, c)

	_, err = led.ParseHex("fff")
	assert.Error(t, err)
	_, err = led.ParseHex("gg0000")
	assert.Error(t, err)
}

func TestColor_RGBA(t *testing.T) {
	t.Parallel()

	c := led.New(1, 2, 3)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, c.RGBA())
	assert.Equal(t, c, led.FromRGBA(c.RGBA()))
}
