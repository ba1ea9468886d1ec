//go:build linux && !tinygo

package stm32

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// Map memory maps size bytes of physical memory at base through /dev/mem.
func Map(base uint32, size int) (*Window, error) {
	devmem, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open /dev/mem: %w", err)
	}

	mem8, err := syscall.Mmap(int(devmem.Fd()), int64(base), size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		devmem.Close()
		return nil, fmt.Errorf("failed to mmap 0x%x: %w", base, err)
	}

	unmap := func() error {
		return errors.Join(syscall.Munmap(mem8), devmem.Close())
	}
	return &Window{
		Regs:  unsafe.Slice((*uint32)(unsafe.Pointer(&mem8[0])), len(mem8)/4),
		base:  base,
		close: unmap,
	}, nil
}
