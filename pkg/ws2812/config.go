package ws2812

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sierrasoftworks/humane-errors-go"
	"periph.io/x/conn/v3/physic"
)

// Strategy selects how frames reach the DMA channel.
type Strategy string

const (
	// StrategyOneShot encodes the whole frame into one buffer and transfers it once.
	StrategyOneShot Strategy = "oneshot"
	// StrategyStreaming refills a two-LED circular buffer from the DMA interrupt.
	StrategyStreaming Strategy = "streaming"
)

// ParseStrategy parses a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyOneShot:
		return StrategyOneShot, nil
	case StrategyStreaming:
		return StrategyStreaming, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// StrategyHookFunc is a mapstructure decode hook turning strings into Strategy values.
func StrategyHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(Strategy("")) {
			return data, nil
		}
		return ParseStrategy(data.(string))
	}
}

const (
	// DefaultBitFrequency is the WS2812 data rate.
	DefaultBitFrequency = 800 * physic.KiloHertz
	// DefaultResetLength is the number of zero samples following a frame.
	DefaultResetLength = 50
	// DefaultMinResetTime is the datasheet minimum low time that latches a frame.
	DefaultMinResetTime = 50 * time.Microsecond
	// DefaultZeroHighRatio is T0H 0.35µs over a 1.25µs bit.
	DefaultZeroHighRatio = 0.28
	// DefaultOneHighRatio is T1H 0.70µs over a 1.25µs bit.
	DefaultOneHighRatio = 0.56

	// MinBitFrequency is the WS2811 low speed mode.
	MinBitFrequency = 400 * physic.KiloHertz
	MaxBitFrequency = physic.MegaHertz
)

// ParseFrequency parses a frequency with unit such as "800kHz". A bare number
// is rejected rather than read as Hz.
func ParseFrequency(s string) (physic.Frequency, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "Hz") {
		return 0, fmt.Errorf("frequency %q has no unit", s)
	}
	var f physic.Frequency
	if err := f.Set(s); err != nil {
		return 0, err
	}
	return f, nil
}

// Config configures a transmission engine.
type Config struct {
	Strategy Strategy `mapstructure:"strategy" yaml:"strategy"`
	// LedCount sizes the one-shot buffer. Streaming accepts frames of any length.
	LedCount int `mapstructure:"led_count" yaml:"led_count"`

	BitFrequency  string  `mapstructure:"bit_frequency" yaml:"bit_frequency"`
	CounterBits   uint    `mapstructure:"counter_bits" yaml:"counter_bits"`
	ZeroHighRatio float64 `mapstructure:"zero_high_ratio" yaml:"zero_high_ratio"`
	OneHighRatio  float64 `mapstructure:"one_high_ratio" yaml:"one_high_ratio"`

	// ResetLength of 0 derives the length from MinResetTime.
	ResetLength  int           `mapstructure:"reset_length" yaml:"reset_length"`
	MinResetTime time.Duration `mapstructure:"min_reset_time" yaml:"min_reset_time"`
}

// DefaultConfig returns the configuration for an 8x8 matrix in one-shot mode.
func DefaultConfig() Config {
	return Config{
		Strategy:      StrategyOneShot,
		LedCount:      64,
		BitFrequency:  DefaultBitFrequency.String(),
		CounterBits:   16,
		ZeroHighRatio: DefaultZeroHighRatio,
		OneHighRatio:  DefaultOneHighRatio,
		ResetLength:   DefaultResetLength,
		MinResetTime:  DefaultMinResetTime,
	}
}

// Validate checks the static configuration. Timing depends on the clock and is
// validated by CalculateTiming.
func (c Config) Validate() humane.Error {
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return humane.Wrap(err, "invalid transmission strategy",
			fmt.Sprintf("set strategy to %q or %q", StrategyOneShot, StrategyStreaming),
		)
	}
	if c.Strategy == StrategyOneShot && c.LedCount <= 0 {
		return humane.New("one-shot transmission requires at least one LED",
			fmt.Sprintf("set led_count to the number of LEDs on the strip, got %d", c.LedCount),
		)
	}
	if c.LedCount < 0 {
		return humane.New("led count must not be negative",
			fmt.Sprintf("set led_count to a positive number, got %d", c.LedCount),
		)
	}
	if c.ResetLength < 0 {
		return humane.New("reset length must not be negative",
			"set reset_length to 0 to derive it from min_reset_time",
		)
	}
	if c.MinResetTime < 0 {
		return humane.New("minimum reset time must not be negative",
			fmt.Sprintf("the WS2812 datasheet requires at least %s", DefaultMinResetTime),
		)
	}
	if _, herr := c.TimingConfig(); herr != nil {
		return herr
	}
	return nil
}

// TimingConfig parses the timing related settings.
func (c Config) TimingConfig() (TimingConfig, humane.Error) {
	freq, err := ParseFrequency(c.BitFrequency)
	if err != nil {
		return TimingConfig{}, humane.Wrap(err, "invalid bit frequency",
			fmt.Sprintf("use a frequency with unit such as %q", DefaultBitFrequency.String()),
		)
	}
	if freq < MinBitFrequency || freq > MaxBitFrequency {
		return TimingConfig{}, humane.New(
			fmt.Sprintf("bit frequency %s is outside the WS281x range of %s to %s", freq, MinBitFrequency, MaxBitFrequency),
			fmt.Sprintf("WS2812 LEDs expect %s, WS2811 in low speed mode %s", DefaultBitFrequency, MinBitFrequency),
		)
	}
	tc := TimingConfig{
		BitFrequency:  freq,
		CounterBits:   c.CounterBits,
		ZeroHighRatio: c.ZeroHighRatio,
		OneHighRatio:  c.OneHighRatio,
	}
	if herr := tc.validate(); herr != nil {
		return TimingConfig{}, herr
	}
	return tc, nil
}

// ResetSamples returns the reset length an engine running at t uses. A zero
// ResetLength derives it from MinResetTime, a configured one must last at
// least that long.
func (c Config) ResetSamples(t Timing) (int, humane.Error) {
	minReset := c.MinResetTime
	if minReset == 0 {
		minReset = DefaultMinResetTime
	}
	required := t.ResetSamples(minReset)
	if c.ResetLength == 0 {
		return required, nil
	}
	if c.ResetLength < required {
		return 0, humane.New(
			fmt.Sprintf("reset of %d samples lasts %s, shorter than %s", c.ResetLength, t.BitPeriod()*time.Duration(c.ResetLength), minReset),
			fmt.Sprintf("set reset_length to at least %d or to 0 to derive it", required),
		)
	}
	return c.ResetLength, nil
}
