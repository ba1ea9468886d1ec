package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compute-blade-community/ws281x-dma/internal/simulator"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal"
	"github.com/compute-blade-community/ws281x-dma/pkg/log"
	"github.com/compute-blade-community/ws281x-dma/pkg/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func init() {
	flags := cmdSimulate.Flags()
	flags.Int("frames", 0, "number of chase frames to send")
	flags.Int("latency", 0, "DMA interrupt latency in bit periods")
	flags.String("color", "", "chase color")
	flags.String("sim-clock", "", "simulated timer clock, defaults to --clock")
	flags.String("metrics-listen", "", "serve prometheus metrics on this address and keep serving after the run")

	bindFlags(viper.GetViper(), flags, map[string]string{
		"simulator.frames":            "frames",
		"simulator.interrupt_latency": "latency",
		"simulator.color":             "color",
		"simulator.timer_clock":       "sim-clock",
	})

	rootCmd.AddCommand(cmdSimulate)
}

var cmdSimulate = &cobra.Command{
	Use:     "simulate",
	Short:   "Send a chase animation through the engine on a simulated timer and DMA channel",
	Example: "ws281xctl simulate --strategy streaming --leds 30 --latency 12 --metrics-listen :9666",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg := configFromContext(ctx)
		metricsListen, _ := cmd.Flags().GetString("metrics-listen")

		var (
			opts []simulator.Option
			pin  hal.OutputPin
		)
		if cfg.Pin.Chip != "" {
			var err error
			if pin, err = hal.ClaimLine(cfg.Pin.Chip, cfg.Pin.Offset); err != nil {
				return humane.Wrap(err, "failed to claim the data line",
					"check that the gpio chip exists and the line is not used by another process",
				)
			}
			opts = append(opts, simulator.WithPin(pin))
		}

		s, err := simulator.New(ctx, cfg.WS2812, simulatorConfig(cfg), opts...)
		if err != nil {
			if pin != nil {
				err = errors.Join(err, pin.Halt())
			}
			return err
		}
		defer closeOrWarn(ctx, s, "failed to close simulator")

		group, ctx := errgroup.WithContext(ctx)
		var res simulator.Result
		group.Go(func() error {
			var err error
			res, err = s.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Println(util.PrintKeyValues(buildSimulationKeyValues(res)))
			if res.Matched != res.Sent {
				return humane.New(
					fmt.Sprintf("%d of %d frames arrived intact", res.Matched, res.Sent),
					"lower the interrupt latency or use the one-shot strategy",
				)
			}
			return nil
		})
		if metricsListen != "" {
			group.Go(func() error {
				return serveMetrics(ctx, metricsListen)
			})
		}
		return group.Wait()
	},
}

// serveMetrics exposes the prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.FromContext(ctx).Info("Starting metrics server", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return humane.Wrap(err, "failed to serve metrics", "ensure the address is not bound by another process")
	}
	return nil
}

func buildSimulationKeyValues(res simulator.Result) []util.KeyValuePair {
	matchStyle := func([]any) lipgloss.Style {
		if res.Matched == res.Sent {
			return util.OkStyle()
		}
		return util.CriticalStyle()
	}

	return []util.KeyValuePair{
		{Key: "Timing", Format: "%s", Value: []any{res.Timing}},
		{Key: "Frames", Format: "%d sent, %d decoded, %d intact", Value: []any{res.Sent, res.Decoded, res.Matched}, Style: matchStyle},
		{Key: "Bus Time", Format: "%s (%d bit periods)", Value: []any{res.Duration, res.Ticks}},
		{Key: "Interrupts", Format: "%d", Value: []any{res.Stats.Interrupts}},
		{Key: "Refills", Format: "%d", Value: []any{res.Stats.Refills}},
		{Key: "Deadline Misses", Format: "%d", Value: []any{res.Stats.DeadlineMisses}, Style: util.ThresholdStyle(0)},
		{Key: "Overruns", Format: "%d", Value: []any{res.Stats.Overruns}, Style: util.ThresholdStyle(0)},
		{Key: "Transfer Errors", Format: "%d", Value: []any{res.Stats.TransferErrors}, Style: util.ThresholdStyle(0)},
		{Key: "Misuse", Format: "%d", Value: []any{res.Stats.Misuse}, Style: util.ThresholdStyle(0)},
	}
}
