// Package stm32 implements the timer and DMA capabilities on top of the
// general-purpose timer and DMA1 register blocks of the STM32F1 family.
// Register blocks are plain []uint32 windows, either memory mapped through
// /dev/mem or allocated in tests.
package stm32

import "sync/atomic"

// General-purpose timer register offsets (byte offsets, divide by 4 for the window index).
const (
	timCR1   = 0x00
	timDIER  = 0x0c
	timSR    = 0x10
	timEGR   = 0x14
	timCCMR1 = 0x18
	timCCER  = 0x20
	timCNT   = 0x24
	timPSC   = 0x28
	timARR   = 0x2c
	timCCR1  = 0x34

	// TimerBlockSize is the size of a timer register block.
	TimerBlockSize = 0x400
)

// Timer register bits.
const (
	cr1CEN  = 1 << 0
	cr1ARPE = 1 << 7

	dierUIE   = 1 << 0
	dierCC1IE = 1 << 1
	dierUDE   = 1 << 8

	srUIF   = 1 << 0
	srCC1IF = 1 << 1

	egrUG = 1 << 0

	// OC1M = 110 (PWM mode 1) with the compare preload enabled.
	ccmr1OC1PE    = 1 << 3
	ccmr1OC1MMask = 0x7 << 4
	ccmr1OC1MPWM1 = 0x6 << 4
	ccerCC1E      = 1 << 0
)

// DMA controller register offsets.
const (
	dmaISR  = 0x00
	dmaIFCR = 0x04

	// Channel n (1-based) registers start at 0x08 + 20*(n-1).
	dmaChannelBase   = 0x08
	dmaChannelStride = 0x14
	dmaCCR           = 0x00
	dmaCNDTR         = 0x04
	dmaCPAR          = 0x08
	dmaCMAR          = 0x0c

	// DMABlockSize is the size of the DMA controller register block.
	DMABlockSize = 0x400
	// DMAChannels is the number of channels of DMA1.
	DMAChannels = 7
)

// DMA channel configuration bits.
const (
	ccrEN         = 1 << 0
	ccrTCIE       = 1 << 1
	ccrHTIE       = 1 << 2
	ccrTEIE       = 1 << 3
	ccrDIR        = 1 << 4
	ccrCIRC       = 1 << 5
	ccrMINC       = 1 << 7
	ccrPSIZEShift = 8
	ccrMSIZEShift = 10
	ccrPLShift    = 12

	// Interrupt status bits of channel n start at 4*(n-1).
	isrGIF  = 1 << 0
	isrTCIF = 1 << 1
	isrHTIF = 1 << 2
	isrTEIF = 1 << 3
)

// Registers is a window onto a peripheral register block. Accesses go through
// sync/atomic so the compiler neither caches nor reorders them.
type Registers []uint32

func (r Registers) get(off int) uint32 {
	return atomic.LoadUint32(&r[off/4])
}

func (r Registers) set(off int, v uint32) {
	atomic.StoreUint32(&r[off/4], v)
}

func (r Registers) setBits(off int, bits uint32) {
	r.set(off, r.get(off)|bits)
}

func (r Registers) clearBits(off int, bits uint32) {
	r.set(off, r.get(off)&^bits)
}
