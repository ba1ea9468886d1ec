package hal

import (
	"periph.io/x/conn/v3/physic"
)

// ClockProvider supplies the resolved input clock of the timer peripheral.
type ClockProvider interface {
	TimerClock() physic.Frequency
}

// FixedClock is a ClockProvider for a clock tree that is frozen at startup.
type FixedClock physic.Frequency

func (c FixedClock) TimerClock() physic.Frequency {
	return physic.Frequency(c)
}

// TimerInterrupt is a set of timer interrupt/request sources.
type TimerInterrupt uint8

const (
	// TimerUpdate is the update (overflow) event.
	TimerUpdate TimerInterrupt = 1 << iota
	// TimerCompare is the capture/compare channel 1 event.
	TimerCompare
	// TimerDMARequest issues a DMA request on every update event.
	TimerDMARequest
)

// Timer is the programmable PWM timer driving the data line.
//
// The engine programs prescaler, period and interrupt sources once at
// construction and afterwards only toggles the counter and acknowledges
// interrupts.
type Timer interface {
	SetPrescaler(psc uint16)
	SetPeriod(arr uint16)
	SetCompare(ccr uint16)
	// TriggerUpdate generates an update event, latching prescaler and period.
	TriggerUpdate()
	EnableInterrupts(sources TimerInterrupt)
	SetCounterEnabled(enabled bool)
	// InterruptPending returns the raised status flags.
	InterruptPending() TimerInterrupt
	// ClearInterruptFlags acknowledges the update and compare flags.
	ClearInterruptFlags()
	// CompareAddress is the bus address of the compare register, used as DMA destination.
	CompareAddress() uint32
}

// DMAInterrupt is a set of DMA channel interrupt flags.
type DMAInterrupt uint8

const (
	DMAHalfTransfer DMAInterrupt = 1 << iota
	DMATransferComplete
	DMATransferError
)

// DMADirection is the transfer direction of a DMA channel.
type DMADirection uint8

const (
	PeripheralToMemory DMADirection = iota
	MemoryToPeripheral
)

// DMAConfig is the static configuration of a DMA channel.
type DMAConfig struct {
	Direction       DMADirection
	Circular        bool
	MemoryIncrement bool
	// ElementSize in bytes; the duty-cycle buffer uses 16-bit elements.
	ElementSize int
	Interrupts  DMAInterrupt
}

// DMAChannel is the DMA channel feeding the timer compare register.
type DMAChannel interface {
	Configure(cfg DMAConfig)
	SetPeripheralAddress(addr uint32)
	// SetMemory points the channel at buf. The channel keeps a read-only view of
	// buf until Stop.
	SetMemory(buf []uint16)
	SetTransferCount(n int)
	Start()
	Stop()
	// Active reports whether a transfer is in progress.
	Active() bool
	InterruptPending() DMAInterrupt
	// ClearInterruptFlags acknowledges every flag of the channel.
	ClearInterruptFlags()
}

// Allocator hands out buffers the DMA channel can read. Engines fall back to
// the Go heap when none is provided.
type Allocator interface {
	Alloc(n int) ([]uint16, error)
}

// OutputPin is the data pin. The engine keeps it claimed for its lifetime but
// never drives it; the timer's PWM output does. periph.io gpio.PinIO satisfies it.
type OutputPin interface {
	Name() string
	Halt() error
}
