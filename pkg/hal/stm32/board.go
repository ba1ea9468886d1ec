package stm32

import (
	"errors"
	"fmt"
)

// BoardConfig locates the peripherals driving the data line.
type BoardConfig struct {
	TimerBase  uint32 `mapstructure:"timer_base" yaml:"timer_base"`
	DMABase    uint32 `mapstructure:"dma_base" yaml:"dma_base"`
	DMAChannel int    `mapstructure:"dma_channel" yaml:"dma_channel"`
	SRAMBase   uint32 `mapstructure:"sram_base" yaml:"sram_base"`
	SRAMSize   int    `mapstructure:"sram_size" yaml:"sram_size"`
}

// DefaultBoardConfig is TIM2 channel 1 fed by DMA1 channel 2 (TIM2_UP), with
// the upper 8KiB of a 20KiB SRAM reserved for duty-cycle buffers.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		TimerBase:  0x4000_0000,
		DMABase:    0x4002_0000,
		DMAChannel: 2,
		SRAMBase:   0x2000_3000,
		SRAMSize:   0x2000,
	}
}

// MapFunc maps size bytes of the bus at base.
type MapFunc func(base uint32, size int) (*Window, error)

// Board holds the mapped timer, DMA controller and SRAM windows.
type Board struct {
	Timer *Timer
	DMA   *DMAChannel
	SRAM  *Window

	windows []*Window
}

// Open maps the peripherals through /dev/mem.
func Open(cfg BoardConfig) (*Board, error) {
	return OpenWith(cfg, Map)
}

// OpenWith maps the peripherals with mapFn. Windows mapped before a failure
// are released.
func OpenWith(cfg BoardConfig, mapFn MapFunc) (*Board, error) {
	if cfg.SRAMSize <= 0 {
		return nil, fmt.Errorf("SRAM window of %d bytes cannot hold a buffer", cfg.SRAMSize)
	}

	b := &Board{}
	open := func(base uint32, size int) (*Window, error) {
		w, err := mapFn(base, size)
		if err != nil {
			return nil, err
		}
		b.windows = append(b.windows, w)
		return w, nil
	}

	tim, err := open(cfg.TimerBase, TimerBlockSize)
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}
	dma, err := open(cfg.DMABase, DMABlockSize)
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}
	if b.SRAM, err = open(cfg.SRAMBase, cfg.SRAMSize); err != nil {
		return nil, errors.Join(err, b.Close())
	}

	if b.Timer, err = NewTimer(tim.Regs, tim.Base()); err != nil {
		return nil, errors.Join(err, b.Close())
	}
	if b.DMA, err = NewDMAChannel(dma.Regs, cfg.DMAChannel, b.SRAM.Address); err != nil {
		return nil, errors.Join(err, b.Close())
	}
	return b, nil
}

// Close unmaps every window.
func (b *Board) Close() error {
	var errs []error
	for _, w := range b.windows {
		errs = append(errs, w.Close())
	}
	b.windows = nil
	return errors.Join(errs...)
}
