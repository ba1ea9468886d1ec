package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/led"
	"github.com/compute-blade-community/ws281x-dma/pkg/util"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdEncode)
}

var cmdEncode = &cobra.Command{
	Use:     "encode COLOR...",
	Short:   "Print the duty-cycle samples the engine writes for the given colors",
	Example: "ws281xctl encode '#ff0000' 00ff00 --clock 64MHz",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromContext(cmd.Context())
		timing, resetLen, herr := resolveTiming(cfg)
		if herr != nil {
			return herr
		}

		colors, herr := parseColors(args)
		if herr != nil {
			return herr
		}

		enc := ws2812.NewEncoder(timing)
		buf := make([]uint16, ws2812.BufferLen(len(colors), resetLen))
		enc.EncodeFrame(colors, buf)
		fmt.Println(util.PrintKeyValues(buildEncodeKeyValues(enc, colors, buf, resetLen)))
		return nil
	},
}

func parseColors(args []string) ([]led.Color, humane.Error) {
	colors := make([]led.Color, 0, len(args))
	for _, arg := range args {
		c, err := led.ParseHex(arg)
		if err != nil {
			return nil, humane.Wrap(err, "invalid color "+arg, "use six hex digits per color, such as ff8000 or '#ff8000'")
		}
		colors = append(colors, c)
	}
	return colors, nil
}

func buildEncodeKeyValues(enc ws2812.Encoder, colors []led.Color, buf []uint16, resetLen int) []util.KeyValuePair {
	pairs := make([]util.KeyValuePair, 0, len(colors)+1)
	for i, c := range colors {
		samples := buf[i*ws2812.SamplesPerLED : (i+1)*ws2812.SamplesPerLED]
		pairs = append(pairs, util.KeyValuePair{
			Key:    fmt.Sprintf("LED %d %s", i, c),
			Format: "%s",
			Value:  []any{formatSamples(samples, enc)},
			Style:  func([]any) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c.String())) },
		})
	}
	pairs = append(pairs, util.KeyValuePair{
		Key:    "Reset",
		Format: "%d x 0",
		Value:  []any{resetLen},
	})
	return pairs
}

// formatSamples groups the samples per channel in wire order.
func formatSamples(samples []uint16, enc ws2812.Encoder) string {
	groups := make([]string, 0, 3)
	for ch, name := range []string{"G", "R", "B"} {
		bits := make([]string, 0, 8)
		for _, s := range samples[ch*8 : (ch+1)*8] {
			bit := "0"
			if s == enc.One {
				bit = "1"
			}
			bits = append(bits, fmt.Sprintf("%d(%s)", s, bit))
		}
		groups = append(groups, name+": "+strings.Join(bits, " "))
	}
	return strings.Join(groups, "  ")
}
