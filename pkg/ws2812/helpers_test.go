package ws2812_test

import (
	"testing"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/sim"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

const testClock = 64 * physic.MegaHertz

func newHardware(t *testing.T) (*sim.Bus, ws2812.Hardware) {
	t.Helper()
	bus := sim.NewBus()
	return bus, ws2812.Hardware{
		Timer: bus.Timer,
		DMA:   bus.DMA,
		Clock: hal.FixedClock(testClock),
		Pin:   &gpiotest.Pin{N: "GPIO18", Num: 18},
	}
}

func testConfig(strategy ws2812.Strategy, leds int) ws2812.Config {
	cfg := ws2812.DefaultConfig()
	cfg.Strategy = strategy
	cfg.LedCount = leds
	return cfg
}
