// Package simulator runs a transmission engine against the simulated timer
// and DMA bus and checks the emitted waveform.
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/sim"
	"github.com/compute-blade-community/ws281x-dma/pkg/log"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/sierrasoftworks/humane-errors-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// tickChunk is the number of bit periods simulated between idle checks.
const tickChunk = 8

// Config configures a simulation run. Frames is the number of chase frames
// to send, Latency delays the DMA interrupt handler by that many bit periods.
type Config struct {
	TimerClock string `mapstructure:"timer_clock" yaml:"timer_clock"`
	Frames     int    `mapstructure:"frames" yaml:"frames"`
	Latency    int    `mapstructure:"interrupt_latency" yaml:"interrupt_latency"`
	Color      string `mapstructure:"color" yaml:"color"`
}

// DefaultConfig runs ten frames on a 64MHz timer clock.
func DefaultConfig() Config {
	return Config{
		TimerClock: (64 * physic.MegaHertz).String(),
		Frames:     10,
		Color:      led.Red.String(),
	}
}

// Result summarizes a run.
type Result struct {
	Sent     int
	Decoded  int
	Matched  int
	Ticks    uint64
	Duration time.Duration
	Stats    ws2812.Stats
	Timing   ws2812.Timing
}

// Simulator owns a simulated bus and the engine driving it.
type Simulator struct {
	cfg   Config
	bus   *sim.Bus
	pin   hal.OutputPin
	tx    ws2812.Transmitter
	frame *led.Frame
}

// New creates the engine described by engineCfg on a fresh simulated bus.
func New(ctx context.Context, engineCfg ws2812.Config, cfg Config, opts ...Option) (*Simulator, error) {
	clock, err := ws2812.ParseFrequency(cfg.TimerClock)
	if err != nil {
		return nil, humane.Wrap(err, "invalid simulated timer clock",
			fmt.Sprintf("use a frequency with unit such as %q", DefaultConfig().TimerClock),
		)
	}
	if cfg.Frames <= 0 {
		return nil, humane.New("nothing to simulate", "set frames to a positive number")
	}
	if cfg.Latency < 0 {
		return nil, humane.New("interrupt latency must not be negative", "set interrupt_latency to 0 for an immediate handler")
	}
	c, err := led.ParseHex(cfg.Color)
	if err != nil {
		return nil, humane.Wrap(err, "invalid chase color", "use a hex color such as #ff0000")
	}
	if engineCfg.LedCount <= 0 {
		return nil, humane.New("the simulated strip has no LEDs", "set led_count to a positive number")
	}

	s := &Simulator{
		cfg:   cfg,
		frame: led.NewFrame(engineCfg.LedCount, led.Off),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = sim.NewBus()
	}
	if s.pin == nil {
		s.pin = &gpiotest.Pin{N: "SIM0"}
	}

	tx, err := ws2812.New(ctx, engineCfg, ws2812.Hardware{
		Timer: s.bus.Timer,
		DMA:   s.bus.DMA,
		Clock: hal.FixedClock(clock),
		Pin:   s.pin,
	})
	if err != nil {
		return nil, err
	}
	s.tx = tx
	s.bus.OnDMAInterrupt(tx.HandleDMAInterrupt)
	s.bus.OnTimerInterrupt(tx.HandleTimerInterrupt)
	s.bus.SetInterruptLatency(cfg.Latency)

	s.frame.Set(0, c)
	return s, nil
}

// Transmitter returns the engine under simulation.
func (s *Simulator) Transmitter() ws2812.Transmitter {
	return s.tx
}

// Run sends a chase animation, one LED moving forward per frame, and decodes
// the waveform recorded on the bus.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	logger := log.FromContext(ctx).Named("simulator")

	var expected [][]led.Color
	idle := make(chan struct{}, 1)
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	// Hardware clock.
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-done:
				return nil
			default:
			}
			s.bus.Tick(tickChunk)
			if s.tx.State() == ws2812.StateIdle {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		}
	})

	// Animation.
	g.Go(func() error {
		defer close(done)
		waitIdle := func() error {
			for s.tx.State() != ws2812.StateIdle {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-idle:
				}
			}
			return nil
		}
		for i := 0; i < s.cfg.Frames; i++ {
			if err := waitIdle(); err != nil {
				return err
			}
			colors := s.frame.Colors()
			if err := s.tx.Write(colors); err != nil {
				return fmt.Errorf("failed to write frame %d: %w", i, err)
			}
			expected = append(expected, colors)
			s.frame.ShiftPos()
		}
		return waitIdle()
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	timing := s.tx.Timing()
	enc := ws2812.NewEncoder(timing)
	decoded, err := enc.DecodeStream(s.bus.Trace(), s.tx.ResetLength())
	if err != nil {
		logger.Warn("emitted waveform is corrupt", zap.Error(err))
	}

	res := Result{
		Sent:    len(expected),
		Decoded: len(decoded),
		Ticks:   s.bus.Ticks(),
		Stats:   s.tx.Stats(),
		Timing:  timing,
	}
	res.Duration = time.Duration(res.Ticks) * timing.BitPeriod()
	for i := 0; i < len(decoded) && i < len(expected); i++ {
		if equalColors(decoded[i], expected[i]) {
			res.Matched++
		}
	}

	logger.Info("simulation finished",
		zap.Int("sent", res.Sent),
		zap.Int("matched", res.Matched),
		zap.Uint64("deadline_misses", res.Stats.DeadlineMisses),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Close releases the engine.
func (s *Simulator) Close() error {
	return s.tx.Close()
}

func equalColors(a, b []led.Color) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
