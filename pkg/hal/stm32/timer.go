package stm32

import (
	"fmt"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
)

var _ hal.Timer = &Timer{}

// Timer drives capture/compare channel 1 of a general-purpose timer in PWM
// mode 1.
type Timer struct {
	regs Registers
	// base is the bus address of the register block, used for DMA addressing.
	base uint32
}

// NewTimer configures channel 1 of the timer at base for PWM output. The
// counter stays disabled.
func NewTimer(regs Registers, base uint32) (*Timer, error) {
	if len(regs)*4 < timCCR1+4 {
		return nil, fmt.Errorf("timer register window of %d bytes is too small", len(regs)*4)
	}
	t := &Timer{regs: regs, base: base}
	t.regs.clearBits(timCR1, cr1CEN)
	t.regs.set(timCCMR1, t.regs.get(timCCMR1)&^ccmr1OC1MMask|ccmr1OC1MPWM1|ccmr1OC1PE)
	t.regs.setBits(timCCER, ccerCC1E)
	t.regs.setBits(timCR1, cr1ARPE)
	return t, nil
}

func (t *Timer) SetPrescaler(psc uint16) {
	t.regs.set(timPSC, uint32(psc))
}

func (t *Timer) SetPeriod(arr uint16) {
	t.regs.set(timARR, uint32(arr))
}

func (t *Timer) SetCompare(ccr uint16) {
	t.regs.set(timCCR1, uint32(ccr))
}

// TriggerUpdate sets EGR.UG. The bit is cleared by hardware.
func (t *Timer) TriggerUpdate() {
	t.regs.set(timEGR, egrUG)
}

func (t *Timer) EnableInterrupts(sources hal.TimerInterrupt) {
	var dier uint32
	if sources&hal.TimerUpdate != 0 {
		dier |= dierUIE
	}
	if sources&hal.TimerCompare != 0 {
		dier |= dierCC1IE
	}
	if sources&hal.TimerDMARequest != 0 {
		dier |= dierUDE
	}
	t.regs.set(timDIER, dier)
}

func (t *Timer) SetCounterEnabled(enabled bool) {
	if enabled {
		t.regs.setBits(timCR1, cr1CEN)
		return
	}
	t.regs.clearBits(timCR1, cr1CEN)
	t.regs.set(timCNT, 0)
}

func (t *Timer) InterruptPending() hal.TimerInterrupt {
	sr := t.regs.get(timSR)
	var pending hal.TimerInterrupt
	if sr&srUIF != 0 {
		pending |= hal.TimerUpdate
	}
	if sr&srCC1IF != 0 {
		pending |= hal.TimerCompare
	}
	return pending
}

// ClearInterruptFlags clears UIF and CC1IF. SR bits are rc_w0, writing ones
// leaves the other flags untouched.
func (t *Timer) ClearInterruptFlags() {
	t.regs.set(timSR, ^uint32(srUIF|srCC1IF))
}

func (t *Timer) CompareAddress() uint32 {
	return t.base + timCCR1
}
