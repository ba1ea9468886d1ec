package led

// Frame is a fixed-length sequence of colors, one per physical LED.
// Matrices are stored in row-major order.
type Frame struct {
	width  int
	height int
	leds   []Color
}

// NewFrame creates a linear strip of n LEDs filled with c.
func NewFrame(n int, c Color) *Frame {
	return NewMatrix(n, 1, c)
}

// NewMatrix creates a width x height matrix filled with c.
func NewMatrix(width, height int, c Color) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	f := &Frame{
		width:  width,
		height: height,
		leds:   make([]Color, width*height),
	}
	f.Fill(c)
	return f
}

// Len returns the number of LEDs in the frame.
func (f *Frame) Len() int {
	return len(f.leds)
}

func (f *Frame) Width() int {
	return f.width
}

func (f *Frame) Height() int {
	return f.height
}

// At returns the color at LED position i.
func (f *Frame) At(i int) Color {
	return f.leds[i]
}

// Set changes the color at LED position i.
func (f *Frame) Set(i int, c Color) {
	f.leds[i] = c
}

// AtXY returns the color in column x of row y.
func (f *Frame) AtXY(x, y int) Color {
	return f.leds[y*f.width+x]
}

// SetXY changes the color in column x of row y.
func (f *Frame) SetXY(x, y int, c Color) {
	f.leds[y*f.width+x] = c
}

// Colors returns a copy of the frame contents in LED order.
func (f *Frame) Colors() []Color {
	out := make([]Color, len(f.leds))
	copy(out, f.leds)
	return out
}

// Fill sets every LED to c.
func (f *Frame) Fill(c Color) {
	for i := range f.leds {
		f.leds[i] = c
	}
}

// Invert inverts every LED.
func (f *Frame) Invert() {
	for i := range f.leds {
		f.leds[i].Invert()
	}
}

// ShiftPos moves every color one position forward; the last one wraps to position 0.
func (f *Frame) ShiftPos() {
	if len(f.leds) < 2 {
		return
	}
	last := f.leds[len(f.leds)-1]
	copy(f.leds[1:], f.leds[:len(f.leds)-1])
	f.leds[0] = last
}

// ShiftNeg moves every color one position backward; the first one wraps to the last position.
func (f *Frame) ShiftNeg() {
	if len(f.leds) < 2 {
		return
	}
	first := f.leds[0]
	copy(f.leds, f.leds[1:])
	f.leds[len(f.leds)-1] = first
}
