package ws2812

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"go.uber.org/zap"
)

// Half identifies one half of the streaming buffer.
type Half uint32

const (
	Lower Half = iota
	Upper
)

func (h Half) String() string {
	if h == Lower {
		return "lower"
	}
	return "upper"
}

func (h Half) other() Half {
	return 1 - h
}

// Streaming transmits through a circular buffer holding two LEDs. While the
// DMA channel clocks out one half, the other is refilled from the half and
// full transfer interrupts, so memory use does not depend on the strip length.
//
// Halves are numbered in the order they are clocked out. queued counts the
// halves written since Start, consumed the halves the channel finished. The
// channel reads half number consumed, which must already be queued when the
// interrupt announcing it arrives; otherwise the refill missed its deadline.
type Streaming struct {
	*engine
	buf []uint16

	active   atomic.Uint32
	queued   atomic.Uint64
	consumed atomic.Uint64

	// Draining bookkeeping: number of the first zero half and zero samples queued.
	zeroStart  atomic.Uint64
	zeroQueued atomic.Int64
	drained    atomic.Bool

	// next feeds HandleDMAInterrupt when streaming a sequence. Set before the
	// channel is enabled, read only from the interrupt afterwards.
	next     func() (led.Color, bool)
	autoStop bool
}

// NewStreaming creates a streaming engine.
func NewStreaming(ctx context.Context, cfg Config, hw Hardware) (*Streaming, error) {
	cfg.Strategy = StrategyStreaming
	e, err := newEngine(ctx, cfg, hw, hal.DMAConfig{
		Direction:       hal.MemoryToPeripheral,
		Circular:        true,
		MemoryIncrement: true,
		ElementSize:     2,
		Interrupts:      hal.DMAHalfTransfer | hal.DMATransferComplete,
	})
	if err != nil {
		return nil, err
	}
	buf, err := e.alloc(2 * SamplesPerLED)
	if err != nil {
		return nil, err
	}
	return &Streaming{
		engine: e,
		buf:    buf,
	}, nil
}

// ActiveHalf is the half written last.
func (s *Streaming) ActiveHalf() Half {
	return Half(s.active.Load())
}

// Half returns a copy of the samples in h.
func (s *Streaming) Half(h Half) []uint16 {
	out := make([]uint16, SamplesPerLED)
	copy(out, s.half(h))
	return out
}

func (s *Streaming) half(h Half) []uint16 {
	return s.buf[int(h)*SamplesPerLED : int(h+1)*SamplesPerLED]
}

// Pending is the number of halves written but not yet clocked out.
func (s *Streaming) Pending() int {
	q, c := s.queued.Load(), s.consumed.Load()
	if q < c {
		return 0
	}
	return int(q - c)
}

// Drained reports whether the reset following the last color was clocked out.
func (s *Streaming) Drained() bool {
	return s.drained.Load()
}

// Start begins a transmission with first in the lower half. The upper half
// holds zeros; it must be refilled with SetNextBuffer before the channel
// reaches it.
func (s *Streaming) Start(first led.Color) error {
	return s.start(first, nil)
}

// Stream transmits the colors returned by next until it reports false, then
// the reset, and returns to idle on its own. next is called from
// HandleDMAInterrupt and must not block.
func (s *Streaming) Stream(next func() (led.Color, bool)) error {
	if next == nil {
		return fmt.Errorf("%w: no color source", ErrFrameSize)
	}
	if s.State() != StateIdle {
		return s.rejected("stream")
	}
	first, ok := next()
	if !ok {
		return fmt.Errorf("%w: empty sequence", ErrFrameSize)
	}
	return s.start(first, next)
}

// Write streams frame.
func (s *Streaming) Write(frame []led.Color) error {
	if len(frame) == 0 {
		return fmt.Errorf("%w: empty frame", ErrFrameSize)
	}
	colors := make([]led.Color, len(frame))
	copy(colors, frame)
	i := 0
	return s.Stream(func() (led.Color, bool) {
		if i >= len(colors) {
			return led.Color{}, false
		}
		c := colors[i]
		i++
		return c, true
	})
}

func (s *Streaming) start(first led.Color, next func() (led.Color, bool)) error {
	if !s.transition(StateIdle, StateArmed) {
		return s.rejected("start")
	}
	s.next = next
	s.autoStop = next != nil
	s.consumed.Store(0)
	s.zeroQueued.Store(0)
	s.drained.Store(false)

	s.enc.Encode(first, s.buf, int(Lower))
	EncodeReset(s.half(Upper))
	s.active.Store(uint32(Lower))
	s.queued.Store(1)

	// A sequence source primes the upper half before the channel runs.
	state := StateTransmitting
	if next != nil {
		if c, ok := next(); ok {
			s.enc.Encode(c, s.buf, int(Upper))
			s.refills.Add(1)
		} else {
			s.zeroStart.Store(1)
			s.zeroQueued.Store(SamplesPerLED)
			state = StateDraining
		}
		s.active.Store(uint32(Upper))
		s.queued.Store(2)
	}

	s.arm(s.buf)
	s.setState(state)
	s.logger.Debug("streaming started", zap.Bool("sequence", next != nil))
	return nil
}

// SetNextBuffer encodes c into the half not written last and makes it the
// active one. It returns ErrOverrun when both halves are still queued.
func (s *Streaming) SetNextBuffer(c led.Color) error {
	if !s.transition(StateTransmitting, StateRefilling) {
		return s.misuse("set_next_buffer")
	}
	if s.overrun() {
		s.setState(StateTransmitting)
		return ErrOverrun
	}
	h := s.ActiveHalf().other()
	s.enc.Encode(c, s.buf, int(h))
	s.active.Store(uint32(h))
	s.queued.Add(1)
	s.refills.Add(1)
	s.setState(StateTransmitting)
	return nil
}

// SetResetPattern zeroes the next half and starts draining. Zero halves are
// queued from HandleDMAInterrupt until the reset is long enough, after which
// Drained reports true and Stop may be called.
func (s *Streaming) SetResetPattern() error {
	if !s.transition(StateTransmitting, StateRefilling) {
		return s.misuse("set_reset_pattern")
	}
	if s.overrun() {
		s.setState(StateTransmitting)
		return ErrOverrun
	}
	s.zeroQueued.Store(0)
	s.zeroStart.Store(s.queued.Load())
	s.queueZeroHalf()
	s.setState(StateDraining)
	return nil
}

func (s *Streaming) overrun() bool {
	if s.queued.Load()-s.consumed.Load() < 2 {
		return false
	}
	s.overruns.Add(1)
	overrunCounter.Inc()
	return true
}

func (s *Streaming) queueZeroHalf() {
	h := s.ActiveHalf().other()
	EncodeReset(s.half(h))
	s.active.Store(uint32(h))
	s.queued.Add(1)
	s.zeroQueued.Add(SamplesPerLED)
}

// HandleDMAInterrupt acknowledges the channel, accounts for the halves the
// channel finished and refills or drains.
func (s *Streaming) HandleDMAInterrupt() {
	pending := s.dma.InterruptPending()
	s.ResetISRDMA()

	crossed := uint64(0)
	if pending&hal.DMAHalfTransfer != 0 {
		crossed++
	}
	if pending&hal.DMATransferComplete != 0 {
		crossed++
	}
	if crossed == 0 || s.State() == StateIdle {
		return
	}
	s.countInterrupt()

	n := s.consumed.Add(crossed)
	draining := s.State() == StateDraining
	if s.queued.Load() <= n {
		// The channel already reads a half nobody refilled. Once both halves
		// hold zeros a repeat is harmless.
		if !draining || s.zeroQueued.Load() < 2*SamplesPerLED {
			s.deadlineMisses.Add(1)
			deadlineMissCounter.Inc()
		}
		s.queued.Store(n + 1)
		s.active.Store(uint32(n % 2))
	}

	if draining {
		s.drain(n)
		return
	}
	if s.next == nil || s.State() != StateTransmitting {
		return
	}
	if c, ok := s.next(); ok {
		_ = s.SetNextBuffer(c)
	} else {
		_ = s.SetResetPattern()
	}
}

func (s *Streaming) drain(consumed uint64) {
	if s.drained.Load() {
		return
	}
	if start := s.zeroStart.Load(); consumed > start && int(consumed-start)*SamplesPerLED >= s.resetLen {
		s.drained.Store(true)
		if s.autoStop {
			s.finish()
		}
		return
	}
	if s.queued.Load()-consumed < 2 {
		s.queueZeroHalf()
	}
}

// Stop ends the transmission once the reset was clocked out. Stopping
// earlier would cut the reset short and is rejected, use Abort instead.
func (s *Streaming) Stop() error {
	switch s.State() {
	case StateIdle:
		return nil
	case StateDraining:
		if !s.drained.Load() {
			return s.rejected("stop")
		}
		s.finish()
		return nil
	}
	return s.rejected("stop")
}
