package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/compute-blade-community/ws281x-dma/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:          "ws281xctl",
		Short:        "ws281xctl computes WS2812 timing, encodes frames and drives the DMA transmission engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, herr := loadConfig(viper.GetViper(), configFile)
			if herr != nil {
				return herr
			}

			logger, err := log.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return humane.Wrap(err, "failed to create logger", "set log.level to one of debug, info, warn or error")
			}
			zap.ReplaceGlobals(logger)

			ctx, cancelCtx := context.WithCancel(cmd.Context())
			ctx = log.IntoContext(ctx, logger)

			// setup signal handler channels
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
			go func() {
				select {
				// Wait for context cancel
				case <-ctx.Done():

				// Wait for signal
				case sig := <-sigs:
					switch sig {
					case syscall.SIGTERM:
						fallthrough
					case syscall.SIGINT:
						fallthrough
					case syscall.SIGQUIT:
						// On terminate signal, cancel context causing the program to terminate
						cancelCtx()

					default:
						log.FromContext(ctx).Warn("Received unknown signal", zap.String("signal", sig.String()))
					}
				}
			}()

			cmd.SetContext(configIntoContext(ctx, cfg))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = zap.L().Sync()
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (YAML)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-development", false, "human readable console logging")
	flags.String("clock", "", "timer input clock, e.g. 72MHz")
	flags.StringP("strategy", "s", "", "transmission strategy (oneshot, streaming)")
	flags.IntP("leds", "n", 0, "number of LEDs on the strip")
	flags.String("bit-frequency", "", "data rate, e.g. 800kHz")
	flags.Int("reset-length", 0, "zero samples after a frame, 0 derives it from the minimum reset time")
	flags.String("pin-chip", "", "gpio chip of the data line, e.g. gpiochip0")
	flags.Int("pin-offset", 0, "offset of the data line on --pin-chip")

	bindFlags(viper.GetViper(), flags, map[string]string{
		"log.level":            "log-level",
		"log.development":      "log-development",
		"timer_clock":          "clock",
		"ws2812.strategy":      "strategy",
		"ws2812.led_count":     "leds",
		"ws2812.bit_frequency": "bit-frequency",
		"ws2812.reset_length":  "reset-length",
		"pin.chip":             "pin-chip",
		"pin.offset":           "pin-offset",
	})
}
