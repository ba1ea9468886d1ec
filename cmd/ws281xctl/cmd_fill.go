package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/stm32"
	"github.com/compute-blade-community/ws281x-dma/pkg/log"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pollInterval is how often fill checks the DMA channel. The userspace
// process receives no interrupts, so completion is polled.
const pollInterval = time.Millisecond

func init() {
	flags := cmdFill.Flags()
	flags.Duration("timeout", time.Second, "give up when the frame is not sent within this time")

	rootCmd.AddCommand(cmdFill)
}

var cmdFill = &cobra.Command{
	Use:     "fill COLOR",
	Short:   "Set every LED of the strip to one color using the timer and DMA registers of the board",
	Example: "ws281xctl fill ff8000 --config board.yaml --leds 60",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := configFromContext(ctx)
		timeout, _ := cmd.Flags().GetDuration("timeout")

		colors, herr := parseColors(args)
		if herr != nil {
			return herr
		}
		if cfg.Pin.Chip == "" {
			return humane.New("no data line configured", "set pin.chip and pin.offset or pass --pin-chip and --pin-offset")
		}
		clock, herr := timerClock(cfg)
		if herr != nil {
			return herr
		}

		board, err := stm32.Open(cfg.Board)
		if err != nil {
			return humane.Wrap(err, "failed to map the timer and DMA registers",
				"run as root or grant access to /dev/mem",
				"check the board section of the configuration against the reference manual",
			)
		}
		defer closeOrWarn(ctx, board, "failed to unmap registers")

		pin, err := hal.ClaimLine(cfg.Pin.Chip, cfg.Pin.Offset)
		if err != nil {
			return humane.Wrap(err, "failed to claim the data line",
				"check that the gpio chip exists and the line is not used by another process",
			)
		}

		engineCfg := cfg.WS2812
		engineCfg.Strategy = ws2812.StrategyOneShot
		o, err := ws2812.NewOneShot(ctx, engineCfg, ws2812.Hardware{
			Timer:  board.Timer,
			DMA:    board.DMA,
			Clock:  hal.FixedClock(clock),
			Pin:    pin,
			Memory: board.SRAM,
		})
		if err != nil {
			return errors.Join(err, pin.Halt())
		}
		defer closeOrWarn(ctx, o, "failed to release the data line")

		frame := led.NewFrame(o.LedCount(), colors[0])
		if err := o.Write(frame.Colors()); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := waitSent(ctx, o); err != nil {
			o.Abort()
			return humane.Wrap(err, fmt.Sprintf("frame was not sent within %s", timeout),
				"check that the DMA channel is the one requested by the timer update event",
			)
		}
		if err := o.Stop(); err != nil {
			return err
		}

		log.FromContext(ctx).Info("Frame sent",
			zap.Int("leds", o.LedCount()),
			zap.Stringer("color", colors[0]),
			zap.Stringer("timing", o.Timing()),
		)
		return nil
	},
}

func waitSent(ctx context.Context, tx ws2812.Transmitter) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for tx.IsActive() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
