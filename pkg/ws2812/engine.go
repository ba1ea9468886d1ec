package ws2812

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"go.uber.org/zap"
)

// State is the lifecycle state of a transmission engine.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateTransmitting
	StateRefilling
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateTransmitting:
		return "transmitting"
	case StateRefilling:
		return "refilling"
	case StateDraining:
		return "draining"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state. The operation has no effect.
	ErrInvalidState = errors.New("operation not allowed in current engine state")
	// ErrOverrun is returned when a streaming refill finds both halves queued.
	ErrOverrun = errors.New("both buffer halves are already queued")
	// ErrFrameSize is returned for frames not matching the engine.
	ErrFrameSize = errors.New("frame size mismatch")
)

// Stats are the per-engine counters.
type Stats struct {
	Frames         uint64
	Interrupts     uint64
	Refills        uint64
	DeadlineMisses uint64
	Overruns       uint64
	TransferErrors uint64
	Misuse         uint64
}

// Transmitter is implemented by both transmission strategies.
//
// Write is asynchronous: it returns once the transfer runs. Completion is
// observed through IsActive or State. The Handle*Interrupt methods are meant
// to be called from the interrupt handlers of the DMA channel and the timer;
// they never block or allocate on the regular path.
type Transmitter interface {
	Write(frame []led.Color) error
	IsActive() bool
	HandleDMAInterrupt()
	HandleTimerInterrupt()
	ResetISRTimer()
	ResetISRDMA()
	IsCompareInterrupt() bool
	Stop() error
	Abort()
	State() State
	Stats() Stats
	Timing() Timing
	ResetLength() int
	Close() error
}

var (
	_ Transmitter = &OneShot{}
	_ Transmitter = &Streaming{}
)

// Hardware bundles the capabilities an engine is built on.
type Hardware struct {
	Timer hal.Timer
	DMA   hal.DMAChannel
	Clock hal.ClockProvider
	Pin   hal.OutputPin
	// Memory provides DMA reachable buffers, nil allocates on the Go heap.
	Memory hal.Allocator
}

// New creates the engine selected by cfg.Strategy.
func New(ctx context.Context, cfg Config, hw Hardware) (Transmitter, error) {
	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		return nil, humane.Wrap(err, "invalid transmission strategy",
			fmt.Sprintf("set strategy to %q or %q", StrategyOneShot, StrategyStreaming),
		)
	}
	cfg.Strategy = strategy

	switch strategy {
	case StrategyOneShot:
		o, err := NewOneShot(ctx, cfg, hw)
		if err != nil {
			return nil, err
		}
		return o, nil
	case StrategyStreaming:
		s, err := NewStreaming(ctx, cfg, hw)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unhandled strategy %q", strategy)
}

type engine struct {
	strategy Strategy
	timer    hal.Timer
	dma      hal.DMAChannel
	pin      hal.OutputPin
	timing   Timing
	enc      Encoder
	resetLen int
	memory   hal.Allocator
	logger   *log.Logger

	state atomic.Int32

	frames         atomic.Uint64
	interrupts     atomic.Uint64
	refills        atomic.Uint64
	deadlineMisses atomic.Uint64
	overruns       atomic.Uint64
	transferErrors atomic.Uint64
	misuses        atomic.Uint64
}

func newEngine(ctx context.Context, cfg Config, hw Hardware, dmaCfg hal.DMAConfig) (*engine, error) {
	if herr := cfg.Validate(); herr != nil {
		return nil, herr
	}
	if hw.Timer == nil || hw.DMA == nil || hw.Clock == nil {
		return nil, humane.New("timer, DMA channel or clock missing",
			"pass the capabilities of the timer channel wired to the data pin",
		)
	}
	if hw.Pin == nil {
		return nil, humane.New("no output pin provided",
			"claim the data pin before creating the engine",
		)
	}

	tc, herr := cfg.TimingConfig()
	if herr != nil {
		return nil, herr
	}
	timing, herr := CalculateTiming(hw.Clock.TimerClock(), tc)
	if herr != nil {
		return nil, herr
	}

	resetLen, herr := cfg.ResetSamples(timing)
	if herr != nil {
		return nil, herr
	}

	e := &engine{
		strategy: cfg.Strategy,
		timer:    hw.Timer,
		dma:      hw.DMA,
		pin:      hw.Pin,
		timing:   timing,
		enc:      NewEncoder(timing),
		resetLen: resetLen,
		memory:   hw.Memory,
		logger:   log.FromContext(ctx).Named("ws2812"),
	}

	// The update event latches prescaler and period but also raises the
	// update flag, which would be taken for a pending interrupt.
	e.timer.SetCounterEnabled(false)
	e.timer.SetPrescaler(timing.Prescaler)
	e.timer.SetPeriod(timing.Period)
	e.timer.SetCompare(0)
	e.timer.TriggerUpdate()
	e.timer.ClearInterruptFlags()
	e.timer.EnableInterrupts(hal.TimerDMARequest)

	e.dma.Stop()
	e.dma.Configure(dmaCfg)
	e.dma.SetPeripheralAddress(e.timer.CompareAddress())

	e.logger.Info("transmission engine ready",
		zap.String("strategy", string(e.strategy)),
		zap.String("pin", e.pin.Name()),
		zap.Stringer("timing", timing),
		zap.Int("reset_length", resetLen),
	)
	return e, nil
}

// alloc returns a zeroed duty-cycle buffer of n samples.
func (e *engine) alloc(n int) ([]uint16, error) {
	if e.memory == nil {
		return make([]uint16, n), nil
	}
	buf, err := e.memory.Alloc(n)
	if err != nil {
		return nil, humane.Wrap(err, "failed to allocate the duty-cycle buffer",
			"enlarge the DMA memory window or reduce led_count",
		)
	}
	EncodeReset(buf)
	return buf, nil
}

func (e *engine) State() State {
	return State(e.state.Load())
}

func (e *engine) transition(from, to State) bool {
	return e.state.CompareAndSwap(int32(from), int32(to))
}

func (e *engine) setState(s State) {
	e.state.Store(int32(s))
}

func (e *engine) Stats() Stats {
	return Stats{
		Frames:         e.frames.Load(),
		Interrupts:     e.interrupts.Load(),
		Refills:        e.refills.Load(),
		DeadlineMisses: e.deadlineMisses.Load(),
		Overruns:       e.overruns.Load(),
		TransferErrors: e.transferErrors.Load(),
		Misuse:         e.misuses.Load(),
	}
}

func (e *engine) Timing() Timing {
	return e.timing
}

// ResetLength is the number of zero samples that latch a frame.
func (e *engine) ResetLength() int {
	return e.resetLen
}

// Encoder returns the encoder matching the programmed duty values.
func (e *engine) Encoder() Encoder {
	return e.enc
}

// IsActive reports whether the DMA channel is still transferring.
func (e *engine) IsActive() bool {
	return e.dma.Active()
}

// ResetISRTimer acknowledges the timer interrupt flags.
func (e *engine) ResetISRTimer() {
	e.timer.ClearInterruptFlags()
}

// ResetISRDMA acknowledges the DMA channel flags.
func (e *engine) ResetISRDMA() {
	e.dma.ClearInterruptFlags()
}

// IsCompareInterrupt reports whether a pending timer interrupt is a compare
// match rather than an update.
func (e *engine) IsCompareInterrupt() bool {
	pending := e.timer.InterruptPending()
	return pending&hal.TimerCompare != 0 && pending&hal.TimerUpdate == 0
}

// HandleTimerInterrupt acknowledges the timer interrupt. Samples are moved by
// the DMA request, so there is nothing else to do.
func (e *engine) HandleTimerInterrupt() {
	e.ResetISRTimer()
}

// Abort stops the transfer immediately regardless of state. LEDs may latch a
// partial frame.
func (e *engine) Abort() {
	e.finish()
}

// Close aborts any transfer and releases the output pin.
func (e *engine) Close() error {
	e.Abort()
	if err := e.pin.Halt(); err != nil {
		return fmt.Errorf("failed to release pin %s: %w", e.pin.Name(), err)
	}
	return nil
}

// finish disables the DMA channel and the counter and holds the line low.
func (e *engine) finish() {
	e.dma.Stop()
	e.timer.SetCounterEnabled(false)
	e.timer.SetCompare(0)
	e.setState(StateIdle)
}

// arm hands buf to the DMA channel and starts the counter.
func (e *engine) arm(buf []uint16) {
	e.dma.SetMemory(buf)
	e.dma.SetTransferCount(len(buf))
	e.dma.Start()
	e.timer.TriggerUpdate()
	e.timer.ClearInterruptFlags()
	e.timer.SetCounterEnabled(true)

	e.frames.Add(1)
	framesCounter.WithLabelValues(string(e.strategy)).Inc()
}

func (e *engine) countInterrupt() {
	e.interrupts.Add(1)
	interruptCounter.WithLabelValues(string(e.strategy)).Inc()
}

// misuse records an operation invoked in the wrong state. It is safe to call
// from interrupt context.
func (e *engine) misuse(op string) error {
	e.misuses.Add(1)
	misuseCounter.WithLabelValues(op).Inc()
	err := fmt.Errorf("%w: %s while %s", ErrInvalidState, op, e.State())
	if debugAssertions {
		panic(err)
	}
	return err
}

// rejected is misuse for operations called from the main flow, which may log.
func (e *engine) rejected(op string) error {
	err := e.misuse(op)
	e.logger.Warn("ignoring operation", zap.String("op", op), zap.Error(err))
	return err
}
