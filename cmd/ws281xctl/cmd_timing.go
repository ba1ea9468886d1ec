package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compute-blade-community/ws281x-dma/pkg/util"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdTiming)
}

var cmdTiming = &cobra.Command{
	Use:     "timing",
	Short:   "Show the timer configuration derived for the timer clock and bit frequency",
	Example: "ws281xctl timing --clock 72MHz --leds 144",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := configFromContext(cmd.Context())
		timing, resetLen, herr := resolveTiming(cfg)
		if herr != nil {
			return herr
		}
		fmt.Println(util.PrintKeyValues(buildTimingKeyValues(cfg.WS2812, timing, resetLen)))
		return nil
	},
}

// resolveTiming computes the timing for the configured clock and the reset
// length an engine would use.
func resolveTiming(cfg Config) (ws2812.Timing, int, humane.Error) {
	clock, herr := timerClock(cfg)
	if herr != nil {
		return ws2812.Timing{}, 0, herr
	}
	tc, herr := cfg.WS2812.TimingConfig()
	if herr != nil {
		return ws2812.Timing{}, 0, herr
	}
	timing, herr := ws2812.CalculateTiming(clock, tc)
	if herr != nil {
		return ws2812.Timing{}, 0, herr
	}
	resetLen, herr := cfg.WS2812.ResetSamples(timing)
	if herr != nil {
		return ws2812.Timing{}, 0, herr
	}
	return timing, resetLen, nil
}

func buildTimingKeyValues(cfg ws2812.Config, timing ws2812.Timing, resetLen int) []util.KeyValuePair {
	zeroHigh, oneHigh := timing.HighTime()
	bit := timing.BitPeriod()
	frameLen := ws2812.BufferLen(cfg.LedCount, resetLen)

	return []util.KeyValuePair{
		{Key: "Timer Clock", Format: "%s", Value: []any{timing.Clock}},
		{
			Key:    "Bit Frequency",
			Format: "%s (requested %s)",
			Value:  []any{timing.ActualFrequency(), timing.BitFrequency},
			Style:  frequencyErrorStyle(timing),
		},
		{Key: "Prescaler", Format: "%d", Value: []any{timing.Prescaler}},
		{Key: "Period", Format: "%d counts", Value: []any{uint32(timing.Period) + 1}},
		{Key: "Zero Bit", Format: "duty %d, high %s", Value: []any{timing.DutyZero, zeroHigh}},
		{Key: "One Bit", Format: "duty %d, high %s", Value: []any{timing.DutyOne, oneHigh}},
		{Key: "Bit Period", Format: "%s", Value: []any{bit}},
		{Key: "Reset", Format: "%d samples (%s)", Value: []any{resetLen, bit * time.Duration(resetLen)}},
		{Key: "LEDs", Format: "%d", Value: []any{cfg.LedCount}},
		{Key: "Frame Time", Format: "%s", Value: []any{bit * time.Duration(frameLen)}},
		{Key: "One-Shot Buffer", Format: "%d bytes", Value: []any{2 * frameLen}},
		{Key: "Streaming Buffer", Format: "%d bytes", Value: []any{2 * 2 * ws2812.SamplesPerLED}},
	}
}

// frequencyErrorStyle flags a bit rate more than 1% (warning) or 5% (critical)
// away from the requested one.
func frequencyErrorStyle(timing ws2812.Timing) func([]any) lipgloss.Style {
	return func([]any) lipgloss.Style {
		want := float64(timing.BitFrequency)
		deviation := (float64(timing.ActualFrequency()) - want) / want
		if deviation < 0 {
			deviation = -deviation
		}
		switch {
		case deviation > 0.05:
			return util.CriticalStyle()
		case deviation > 0.01:
			return util.WarningStyle()
		}
		return util.OkStyle()
	}
}
