package simulator

import (
	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/sim"
)

type Option func(*Simulator)

// WithPin hands the engine a real output pin instead of a simulated one. The
// pin is released by Close.
func WithPin(pin hal.OutputPin) Option {
	return func(s *Simulator) {
		s.pin = pin
	}
}

// WithBus runs the engine on bus instead of a fresh one.
func WithBus(bus *sim.Bus) Option {
	return func(s *Simulator) {
		s.bus = bus
	}
}
