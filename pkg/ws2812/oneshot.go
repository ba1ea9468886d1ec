package ws2812

import (
	"context"
	"fmt"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
)

// OneShot encodes a whole frame plus its reset into one buffer and transfers
// it in a single DMA run. Memory grows with the LED count, in exchange the
// transfer has no refill deadlines.
type OneShot struct {
	*engine
	leds int
	buf  []uint16
}

// NewOneShot creates a one-shot engine for cfg.LedCount LEDs.
func NewOneShot(ctx context.Context, cfg Config, hw Hardware) (*OneShot, error) {
	cfg.Strategy = StrategyOneShot
	e, err := newEngine(ctx, cfg, hw, hal.DMAConfig{
		Direction:       hal.MemoryToPeripheral,
		MemoryIncrement: true,
		ElementSize:     2,
		Interrupts:      hal.DMATransferComplete | hal.DMATransferError,
	})
	if err != nil {
		return nil, err
	}
	buf, err := e.alloc(BufferLen(cfg.LedCount, e.resetLen))
	if err != nil {
		return nil, err
	}
	return &OneShot{
		engine: e,
		leds:   cfg.LedCount,
		buf:    buf,
	}, nil
}

// LedCount is the number of LEDs a frame must have.
func (o *OneShot) LedCount() int {
	return o.leds
}

// Buffer returns a copy of the duty-cycle buffer.
func (o *OneShot) Buffer() []uint16 {
	out := make([]uint16, len(o.buf))
	copy(out, o.buf)
	return out
}

// Encode writes c at LED position pos of the buffer. The buffer belongs to the
// DMA channel while a transfer runs.
func (o *OneShot) Encode(c led.Color, pos int) error {
	if pos < 0 || pos >= o.leds {
		return fmt.Errorf("%w: LED %d out of %d", ErrFrameSize, pos, o.leds)
	}
	o.reap()
	if o.State() != StateIdle {
		return o.rejected("encode")
	}
	o.enc.Encode(c, o.buf, pos)
	return nil
}

// Load encodes a complete frame followed by the reset.
func (o *OneShot) Load(frame []led.Color) error {
	if len(frame) != o.leds {
		return fmt.Errorf("%w: got %d LEDs, engine drives %d", ErrFrameSize, len(frame), o.leds)
	}
	o.reap()
	if o.State() != StateIdle {
		return o.rejected("load")
	}
	o.enc.EncodeFrame(frame, o.buf)
	return nil
}

// Start transfers the loaded buffer.
func (o *OneShot) Start() error {
	o.reap()
	if !o.transition(StateIdle, StateArmed) {
		return o.rejected("start")
	}
	o.arm(o.buf)
	o.setState(StateTransmitting)
	o.logger.Debug("frame started")
	return nil
}

// Write loads and starts frame.
func (o *OneShot) Write(frame []led.Color) error {
	if err := o.Load(frame); err != nil {
		return err
	}
	return o.Start()
}

// HandleDMAInterrupt acknowledges the channel and returns to idle once the
// transfer completed.
func (o *OneShot) HandleDMAInterrupt() {
	pending := o.dma.InterruptPending()
	o.ResetISRDMA()
	if pending == 0 {
		return
	}
	o.countInterrupt()
	if pending&hal.DMATransferError != 0 {
		o.transferErrors.Add(1)
	}
	if pending&(hal.DMATransferComplete|hal.DMATransferError) != 0 && o.transition(StateTransmitting, StateDraining) {
		o.finish()
	}
}

// Stop ends a completed transfer. Stopping while the channel is still active
// is rejected, use Abort to cut a frame short.
func (o *OneShot) Stop() error {
	switch o.State() {
	case StateIdle:
		return nil
	case StateTransmitting:
		if o.dma.Active() {
			return o.rejected("stop")
		}
		o.finish()
		return nil
	}
	return o.rejected("stop")
}

// reap completes a transfer that finished without its interrupt being handled.
func (o *OneShot) reap() {
	if o.State() == StateTransmitting && !o.dma.Active() {
		o.finish()
	}
}
