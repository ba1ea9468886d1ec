package ws2812

import (
	"errors"
	"fmt"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
)

const (
	// SamplesPerLED is the number of duty-cycle samples encoding one color.
	SamplesPerLED  = 24
	bitsPerChannel = 8
)

// ErrInvalidSample is returned when decoding a sample that is neither the zero
// nor the one duty value.
var ErrInvalidSample = errors.New("sample is not a WS2812 bit")

// BufferLen returns the length of a duty-cycle buffer for n LEDs followed by
// reset zero samples.
func BufferLen(n, reset int) int {
	return n*SamplesPerLED + reset
}

// Encoder translates colors into duty-cycle samples.
type Encoder struct {
	Zero uint16
	One  uint16
}

// NewEncoder returns the encoder matching the programmed timer.
func NewEncoder(t Timing) Encoder {
	return Encoder{Zero: t.DutyZero, One: t.DutyOne}
}

// Encode writes the 24 samples of c at LED position pos of dst, green first,
// most significant bit first. dst must hold at least (pos+1)*24 samples.
func (e Encoder) Encode(c led.Color, dst []uint16, pos int) {
	out := dst[pos*SamplesPerLED : (pos+1)*SamplesPerLED]
	for ch, v := range [3]uint8{c.Green, c.Red, c.Blue} {
		for bit := 0; bit < bitsPerChannel; bit++ {
			if v&(0x80>>bit) != 0 {
				out[ch*bitsPerChannel+bit] = e.One
			} else {
				out[ch*bitsPerChannel+bit] = e.Zero
			}
		}
	}
}

// EncodeReset fills dst with zero samples, holding the line low.
func EncodeReset(dst []uint16) {
	for i := range dst {
		dst[i] = 0
	}
}

// EncodeFrame encodes colors at the start of dst and zero fills the rest.
func (e Encoder) EncodeFrame(colors []led.Color, dst []uint16) {
	for i, c := range colors {
		e.Encode(c, dst, i)
	}
	EncodeReset(dst[len(colors)*SamplesPerLED:])
}

// Decode reads the color at LED position pos of src.
func (e Encoder) Decode(src []uint16, pos int) (led.Color, error) {
	var ch [3]uint8
	in := src[pos*SamplesPerLED : (pos+1)*SamplesPerLED]
	for i, s := range in {
		switch s {
		case e.One:
			ch[i/bitsPerChannel] |= 0x80 >> (i % bitsPerChannel)
		case e.Zero:
		default:
			return led.Color{}, fmt.Errorf("%w: %d at LED %d bit %d", ErrInvalidSample, s, pos, i)
		}
	}
	return led.New(ch[1], ch[0], ch[2]), nil
}

// DecodeStream splits an emitted waveform into frames. Frames are separated by
// runs of at least resetLen zero samples; a shorter low gap between LEDs or a
// truncated LED is reported as an error.
func (e Encoder) DecodeStream(samples []uint16, resetLen int) ([][]led.Color, error) {
	var (
		frames  [][]led.Color
		current []led.Color
	)
	i := 0
	for i < len(samples) {
		if samples[i] == 0 {
			run := 0
			for i < len(samples) && samples[i] == 0 {
				run++
				i++
			}
			if len(current) == 0 {
				continue
			}
			if run < resetLen && i < len(samples) {
				return frames, fmt.Errorf("reset gap of %d samples after LED %d, need %d", run, len(current), resetLen)
			}
			frames = append(frames, current)
			current = nil
			continue
		}
		if i+SamplesPerLED > len(samples) {
			return frames, fmt.Errorf("truncated LED %d: %d of %d samples", len(current), len(samples)-i, SamplesPerLED)
		}
		c, err := e.Decode(samples[i:i+SamplesPerLED], 0)
		if err != nil {
			return frames, err
		}
		current = append(current, c)
		i += SamplesPerLED
	}
	if len(current) > 0 {
		frames = append(frames, current)
	}
	return frames, nil
}
