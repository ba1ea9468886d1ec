package stm32

import (
	"fmt"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
)

var _ hal.DMAChannel = &DMAChannel{}

// AddressFunc translates a buffer into the bus address the DMA controller
// reads it from.
type AddressFunc func(buf []uint16) uint32

// DMAChannel is one channel of the DMA1 controller.
type DMAChannel struct {
	regs    Registers
	channel int
	addr    AddressFunc

	ccr uint32
	buf []uint16
}

// NewDMAChannel returns channel (1-based) of the controller at regs.
func NewDMAChannel(regs Registers, channel int, addr AddressFunc) (*DMAChannel, error) {
	if channel < 1 || channel > DMAChannels {
		return nil, fmt.Errorf("DMA channel %d out of range 1..%d", channel, DMAChannels)
	}
	if addr == nil {
		return nil, fmt.Errorf("no address translation for DMA channel %d", channel)
	}
	d := &DMAChannel{regs: regs, channel: channel, addr: addr}
	if len(regs)*4 < d.reg(dmaCMAR)+4 {
		return nil, fmt.Errorf("DMA register window of %d bytes is too small", len(regs)*4)
	}
	return d, nil
}

func (d *DMAChannel) reg(off int) int {
	return dmaChannelBase + dmaChannelStride*(d.channel-1) + off
}

func (d *DMAChannel) flagShift() uint {
	return uint(4 * (d.channel - 1))
}

func sizeBits(bytes int) uint32 {
	switch bytes {
	case 4:
		return 2
	case 2:
		return 1
	}
	return 0
}

// Configure writes CCR with the channel disabled. The priority is set to very high.
func (d *DMAChannel) Configure(cfg hal.DMAConfig) {
	ccr := uint32(3) << ccrPLShift
	ccr |= sizeBits(cfg.ElementSize)<<ccrMSIZEShift | sizeBits(cfg.ElementSize)<<ccrPSIZEShift
	if cfg.Direction == hal.MemoryToPeripheral {
		ccr |= ccrDIR
	}
	if cfg.Circular {
		ccr |= ccrCIRC
	}
	if cfg.MemoryIncrement {
		ccr |= ccrMINC
	}
	if cfg.Interrupts&hal.DMATransferComplete != 0 {
		ccr |= ccrTCIE
	}
	if cfg.Interrupts&hal.DMAHalfTransfer != 0 {
		ccr |= ccrHTIE
	}
	if cfg.Interrupts&hal.DMATransferError != 0 {
		ccr |= ccrTEIE
	}
	d.ccr = ccr
	d.regs.set(d.reg(dmaCCR), ccr)
}

func (d *DMAChannel) SetPeripheralAddress(addr uint32) {
	d.regs.set(d.reg(dmaCPAR), addr)
}

func (d *DMAChannel) SetMemory(buf []uint16) {
	d.buf = buf
	d.regs.set(d.reg(dmaCMAR), d.addr(buf))
}

// SetTransferCount writes CNDTR, which only takes effect while the channel is disabled.
func (d *DMAChannel) SetTransferCount(n int) {
	d.regs.set(d.reg(dmaCNDTR), uint32(n)&0xffff)
}

func (d *DMAChannel) Start() {
	d.regs.set(d.reg(dmaCCR), d.ccr|ccrEN)
}

func (d *DMAChannel) Stop() {
	d.regs.clearBits(d.reg(dmaCCR), ccrEN)
}

// Active reports an enabled channel with transfers left. Circular channels
// reload CNDTR and stay active until stopped.
func (d *DMAChannel) Active() bool {
	return d.regs.get(d.reg(dmaCCR))&ccrEN != 0 && d.regs.get(d.reg(dmaCNDTR)) != 0
}

func (d *DMAChannel) InterruptPending() hal.DMAInterrupt {
	isr := d.regs.get(dmaISR) >> d.flagShift()
	var pending hal.DMAInterrupt
	if isr&isrHTIF != 0 {
		pending |= hal.DMAHalfTransfer
	}
	if isr&isrTCIF != 0 {
		pending |= hal.DMATransferComplete
	}
	if isr&isrTEIF != 0 {
		pending |= hal.DMATransferError
	}
	return pending
}

// ClearInterruptFlags writes CGIF, clearing every flag of the channel.
func (d *DMAChannel) ClearInterruptFlags() {
	d.regs.set(dmaIFCR, isrGIF<<d.flagShift())
}
