// Package sim provides a clocked software model of the timer and DMA
// capabilities. Every Tick is one timer period: the DMA channel moves one
// element into the compare register on the update request, the compare value
// is recorded as the emitted bit, and status flags and handlers are raised the
// way the peripherals would.
package sim

import (
	"sync"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
)

// compareAddress is the bus address the simulated timer reports for CCR1
// (TIM2 base + 0x34, as on the STM32F1).
const compareAddress uint32 = 0x4000_0000 + 0x34

var (
	_ hal.Timer      = &Timer{}
	_ hal.DMAChannel = &DMA{}
)

// Bus ties a simulated timer and DMA channel together.
type Bus struct {
	mu sync.Mutex

	Timer *Timer
	DMA   *DMA

	timerHandler func()
	dmaHandler   func()

	ticks          uint64
	trace          []uint16
	unacknowledged uint64

	// DMA handler dispatch is delayed by latency periods after a flag is raised.
	latency    int
	dispatchAt uint64
	scheduled  bool
}

// NewBus creates an idle bus.
func NewBus() *Bus {
	b := &Bus{}
	b.Timer = &Timer{bus: b}
	b.DMA = &DMA{bus: b}
	return b
}

// OnTimerInterrupt registers the timer interrupt handler.
func (b *Bus) OnTimerInterrupt(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timerHandler = fn
}

// OnDMAInterrupt registers the DMA channel interrupt handler.
func (b *Bus) OnDMAInterrupt(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dmaHandler = fn
}

// SetInterruptLatency delays the DMA handler by the given number of timer
// periods, modelling a higher-priority handler holding the CPU.
func (b *Bus) SetInterruptLatency(periods int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = periods
}

// Tick advances the bus by n timer periods, dispatching interrupts in between.
func (b *Bus) Tick(n int) {
	for i := 0; i < n; i++ {
		b.tick()
	}
}

func (b *Bus) tick() {
	b.mu.Lock()
	b.ticks++

	t, d := b.Timer, b.DMA
	if !t.counterEnabled {
		b.mu.Unlock()
		return
	}

	// Update request: the DMA channel loads the compare value for this period.
	if t.dier&hal.TimerDMARequest != 0 && d.enabled && d.remaining > 0 && d.pos >= len(d.mem) {
		d.flags |= hal.DMATransferError
		d.enabled = false
	}
	if t.dier&hal.TimerDMARequest != 0 && d.enabled && d.remaining > 0 {
		v := d.mem[d.pos]
		if d.peripheral == compareAddress {
			t.ccr = v
		}
		d.transfers++
		d.pos++
		d.remaining--
		if d.pos == d.count/2 {
			d.flags |= hal.DMAHalfTransfer
		}
		if d.remaining == 0 {
			d.flags |= hal.DMATransferComplete
			if d.cfg.Circular {
				d.pos = 0
				d.remaining = d.count
			}
		}
	}

	b.trace = append(b.trace, t.ccr)
	t.sr |= hal.TimerUpdate | hal.TimerCompare

	fireDMA := false
	if d.flags&d.cfg.Interrupts != 0 && b.dmaHandler != nil {
		if !b.scheduled {
			b.scheduled = true
			b.dispatchAt = b.ticks + uint64(b.latency)
		}
		if b.ticks >= b.dispatchAt {
			b.scheduled = false
			fireDMA = true
		}
	}
	fireTimer := t.sr&t.dier&(hal.TimerUpdate|hal.TimerCompare) != 0 && b.timerHandler != nil
	dmaHandler, timerHandler := b.dmaHandler, b.timerHandler
	b.mu.Unlock()

	if fireDMA {
		dmaHandler()
		b.checkAcknowledged(func() bool { return d.flags&d.cfg.Interrupts != 0 })
	}
	if fireTimer {
		timerHandler()
		b.checkAcknowledged(func() bool { return t.sr&t.dier&(hal.TimerUpdate|hal.TimerCompare) != 0 })
	}
}

// checkAcknowledged counts handlers that returned without clearing their flag.
// Real hardware would re-enter the handler immediately.
func (b *Bus) checkAcknowledged(pending func() bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pending() {
		b.unacknowledged++
	}
}

// Ticks returns the number of elapsed timer periods.
func (b *Bus) Ticks() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks
}

// Trace returns a copy of the compare values emitted so far, one per period
// the counter was running.
func (b *Bus) Trace() []uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint16, len(b.trace))
	copy(out, b.trace)
	return out
}

// ResetTrace drops the recorded waveform.
func (b *Bus) ResetTrace() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trace = b.trace[:0]
}

// Unacknowledged returns how many times a handler left its interrupt pending.
func (b *Bus) Unacknowledged() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unacknowledged
}

// Timer is the simulated PWM timer.
type Timer struct {
	bus *Bus

	psc            uint16
	arr            uint16
	ccr            uint16
	dier           hal.TimerInterrupt
	sr             hal.TimerInterrupt
	counterEnabled bool
	updateEvents   int
}

func (t *Timer) SetPrescaler(psc uint16) {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	t.psc = psc
}

func (t *Timer) SetPeriod(arr uint16) {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	t.arr = arr
}

func (t *Timer) SetCompare(ccr uint16) {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	t.ccr = ccr
}

func (t *Timer) TriggerUpdate() {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	t.updateEvents++
	t.sr |= hal.TimerUpdate
}

func (t *Timer) EnableInterrupts(sources hal.TimerInterrupt) {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	t.dier = sources
}

func (t *Timer) SetCounterEnabled(enabled bool) {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	t.counterEnabled = enabled
}

func (t *Timer) InterruptPending() hal.TimerInterrupt {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	return t.sr
}

func (t *Timer) ClearInterruptFlags() {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	t.sr &^= hal.TimerUpdate | hal.TimerCompare
}

func (t *Timer) CompareAddress() uint32 {
	return compareAddress
}

// Registers returns prescaler, period and compare values.
func (t *Timer) Registers() (psc, arr, ccr uint16) {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	return t.psc, t.arr, t.ccr
}

// Interrupts returns the enabled interrupt and request sources.
func (t *Timer) Interrupts() hal.TimerInterrupt {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	return t.dier
}

// CounterEnabled reports whether the counter runs.
func (t *Timer) CounterEnabled() bool {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	return t.counterEnabled
}

// UpdateEvents returns the number of software-triggered update events.
func (t *Timer) UpdateEvents() int {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	return t.updateEvents
}

// DMA is the simulated DMA channel.
type DMA struct {
	bus *Bus

	cfg        hal.DMAConfig
	peripheral uint32
	mem        []uint16
	count      int
	remaining  int
	pos        int
	enabled    bool
	flags      hal.DMAInterrupt
	transfers  uint64
}

func (d *DMA) Configure(cfg hal.DMAConfig) {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	d.cfg = cfg
}

func (d *DMA) SetPeripheralAddress(addr uint32) {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	d.peripheral = addr
}

func (d *DMA) SetMemory(buf []uint16) {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	d.mem = buf
}

func (d *DMA) SetTransferCount(n int) {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	if n > len(d.mem) && d.mem != nil {
		n = len(d.mem)
	}
	d.count = n
}

func (d *DMA) Start() {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	d.enabled = true
	d.pos = 0
	d.remaining = d.count
}

func (d *DMA) Stop() {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	d.enabled = false
}

func (d *DMA) Active() bool {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	return d.enabled && d.remaining > 0
}

func (d *DMA) InterruptPending() hal.DMAInterrupt {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	return d.flags
}

func (d *DMA) ClearInterruptFlags() {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	d.flags = 0
}

// Config returns the channel configuration.
func (d *DMA) Config() hal.DMAConfig {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	return d.cfg
}

// PeripheralAddress returns the programmed destination address.
func (d *DMA) PeripheralAddress() uint32 {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	return d.peripheral
}

// TransferCount returns the programmed transfer count.
func (d *DMA) TransferCount() int {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	return d.count
}

// Transfers returns the number of elements moved since creation.
func (d *DMA) Transfers() uint64 {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	return d.transfers
}

// Enabled reports the channel enable bit.
func (d *DMA) Enabled() bool {
	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	return d.enabled
}
