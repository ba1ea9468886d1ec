package stm32

import (
	"fmt"
	"unsafe"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
)

var _ hal.Allocator = &Window{}

// Window is a physical address range visible to the CPU. Register blocks are
// accessed through Regs; memory windows (SRAM reachable by the DMA
// controller) hand out buffers through Alloc and translate them with Address.
type Window struct {
	Regs Registers

	base  uint32
	next  int
	close func() error
}

// NewWindow backs a window of the given size with ordinary memory. It is
// meant for tests and for simulated peripherals.
func NewWindow(base uint32, size int) *Window {
	return &Window{
		Regs:  make(Registers, (size+3)/4),
		base:  base,
		close: func() error { return nil },
	}
}

// Base is the bus address of the first byte of the window.
func (w *Window) Base() uint32 {
	return w.base
}

// Alloc carves n 16-bit elements out of the window.
func (w *Window) Alloc(n int) ([]uint16, error) {
	size := (2*n + 3) &^ 3
	if n <= 0 || w.next+size > len(w.Regs)*4 {
		return nil, fmt.Errorf("cannot allocate %d elements in DMA window of %d bytes (%d used)", n, len(w.Regs)*4, w.next)
	}
	buf := unsafe.Slice((*uint16)(unsafe.Pointer(&w.Regs[w.next/4])), n)
	w.next += size
	return buf, nil
}

// Address returns the bus address of buf, which must come from Alloc.
func (w *Window) Address(buf []uint16) uint32 {
	if len(buf) == 0 || len(w.Regs) == 0 {
		panic("stm32: empty buffer has no bus address")
	}
	start := uintptr(unsafe.Pointer(&w.Regs[0]))
	p := uintptr(unsafe.Pointer(&buf[0]))
	if p < start || p+uintptr(2*len(buf)) > start+uintptr(4*len(w.Regs)) {
		panic("stm32: buffer is outside the DMA window")
	}
	return w.base + uint32(p-start)
}

// Close unmaps the window.
func (w *Window) Close() error {
	return w.close()
}
