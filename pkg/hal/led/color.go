package led

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

// Color is the 8-bit-per-channel value of a single LED.
type Color struct {
	Red   uint8 `mapstructure:"red" yaml:"red"`
	Green uint8 `mapstructure:"green" yaml:"green"`
	Blue  uint8 `mapstructure:"blue" yaml:"blue"`
}

var (
	Off   = Color{}
	White = Color{Red: 0xff, Green: 0xff, Blue: 0xff}
	Red   = Color{Red: 0xff}
	Green = Color{Green: 0xff}
	Blue  = Color{Blue: 0xff}
)

// New creates a color from its red, green and blue channels.
func New(r, g, b uint8) Color {
	return Color{Red: r, Green: g, Blue: b}
}

// FromBytes creates a color from an [r, g, b] triple.
func FromBytes(rgb [3]byte) Color {
	return Color{Red: rgb[0], Green: rgb[1], Blue: rgb[2]}
}

// Bytes returns the [r, g, b] triple of the color.
func (c Color) Bytes() [3]byte {
	return [3]byte{c.Red, c.Green, c.Blue}
}

// FromRGBA converts any color.Color. Alpha is dropped.
func FromRGBA(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{Red: uint8(r >> 8), Green: uint8(g >> 8), Blue: uint8(b >> 8)}
}

// RGBA returns the color as an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.Red, G: c.Green, B: c.Blue, A: 0xff}
}

// ParseHex parses "rrggbb", optionally prefixed by '#' or "0x".
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: expected 6 hex digits", s)
	}
	var rgb [3]byte
	if _, err := hex.Decode(rgb[:], []byte(s)); err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return FromBytes(rgb), nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// Invert flips every channel in place (255 - c).
func (c *Color) Invert() {
	c.Red = 0xff - c.Red
	c.Green = 0xff - c.Green
	c.Blue = 0xff - c.Blue
}

// Add returns the channel-wise sum, saturating at 255.
func (c Color) Add(o Color) Color {
	return Color{
		Red:   saturate(int(c.Red) + int(o.Red)),
		Green: saturate(int(c.Green) + int(o.Green)),
		Blue:  saturate(int(c.Blue) + int(o.Blue)),
	}
}

// Sub returns the channel-wise difference, saturating at 0.
func (c Color) Sub(o Color) Color {
	return Color{
		Red:   saturate(int(c.Red) - int(o.Red)),
		Green: saturate(int(c.Green) - int(o.Green)),
		Blue:  saturate(int(c.Blue) - int(o.Blue)),
	}
}

// Mul returns the channel-wise product, saturating at 255.
func (c Color) Mul(o Color) Color {
	return Color{
		Red:   saturate(int(c.Red) * int(o.Red)),
		Green: saturate(int(c.Green) * int(o.Green)),
		Blue:  saturate(int(c.Blue) * int(o.Blue)),
	}
}

func saturate(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	default:
		return uint8(v)
	}
}
