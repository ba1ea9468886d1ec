package ws2812

import (
	"errors"
	"image/color"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"tinygo.org/x/drivers"
)

var _ drivers.Displayer = &Display{}

// ErrBusy is returned by Display when the previous frame is still being sent.
var ErrBusy = errors.New("transmission in progress")

// Display draws into a frame and sends it through a Transmitter, so the
// tinygo drawing packages can render onto a strip or matrix.
type Display struct {
	frame *led.Frame
	tx    Transmitter
}

func NewDisplay(frame *led.Frame, tx Transmitter) *Display {
	return &Display{frame: frame, tx: tx}
}

func (d *Display) Size() (x, y int16) {
	return int16(d.frame.Width()), int16(d.frame.Height())
}

// SetPixel ignores coordinates outside the frame.
func (d *Display) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || int(x) >= d.frame.Width() || int(y) >= d.frame.Height() {
		return
	}
	d.frame.SetXY(int(x), int(y), led.FromRGBA(c))
}

// Display sends the frame. It fails with ErrBusy while the previous one is
// still being clocked out.
func (d *Display) Display() error {
	if d.tx.State() != StateIdle && d.tx.IsActive() {
		return ErrBusy
	}
	if err := d.tx.Stop(); err != nil {
		return err
	}
	return d.tx.Write(d.frame.Colors())
}

// Frame returns the frame drawn into.
func (d *Display) Frame() *led.Frame {
	return d.frame
}
