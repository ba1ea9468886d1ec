package ws2812_test

import (
	"testing"
	"time"

	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestConfig_DefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := ws2812.DefaultConfig()
	assert.Nil(t, cfg.Validate())

	tc, herr := cfg.TimingConfig()
	require.Nil(t, herr)
	assert.Equal(t, 800*physic.KiloHertz, tc.BitFrequency)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		modify func(*ws2812.Config)
	}{
		{"unknown strategy", func(c *ws2812.Config) { c.Strategy = "bitbang" }},
		{"one-shot without LEDs", func(c *ws2812.Config) { c.LedCount = 0 }},
		{"negative LEDs", func(c *ws2812.Config) { c.Strategy, c.LedCount = ws2812.StrategyStreaming, -1 }},
		{"negative reset", func(c *ws2812.Config) { c.ResetLength = -1 }},
		{"negative reset time", func(c *ws2812.Config) { c.MinResetTime = -1 }},
		{"frequency without unit", func(c *ws2812.Config) { c.BitFrequency = "800" }},
		{"frequency too low", func(c *ws2812.Config) { c.BitFrequency = "800Hz" }},
		{"frequency too high", func(c *ws2812.Config) { c.BitFrequency = "2MHz" }},
		{"no counter", func(c *ws2812.Config) { c.CounterBits = 0 }},
		{"equal ratios", func(c *ws2812.Config) { c.OneHighRatio = c.ZeroHighRatio }},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := ws2812.DefaultConfig()
			tc.modify(&cfg)
			assert.NotNil(t, cfg.Validate())
		})
	}
}

func TestConfig_BitFrequencyBand(t *testing.T) {
	t.Parallel()

	for _, f := range []string{"400kHz", "800kHz", "1MHz"} {
		cfg := ws2812.DefaultConfig()
		cfg.BitFrequency = f
		assert.Nil(t, cfg.Validate(), f)
	}
}

func TestParseFrequency(t *testing.T) {
	t.Parallel()

	f, err := ws2812.ParseFrequency(" 72MHz ")
	require.NoError(t, err)
	assert.Equal(t, 72*physic.MegaHertz, f)

	for _, s := range []string{"800", "72", "", "fast", "kHz"} {
		_, err := ws2812.ParseFrequency(s)
		assert.Error(t, err, s)
	}
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	s, err := ws2812.ParseStrategy(" Streaming ")
	require.NoError(t, err)
	assert.Equal(t, ws2812.StrategyStreaming, s)

	_, err = ws2812.ParseStrategy("pwm")
	assert.Error(t, err)
}

func TestStrategyHookFunc(t *testing.T) {
	t.Parallel()

	var cfg ws2812.Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: ws2812.StrategyHookFunc(),
		Result:     &cfg,
	})
	require.NoError(t, err)
	require.NoError(t, dec.Decode(map[string]interface{}{
		"strategy":      "ONESHOT",
		"led_count":     12,
		"bit_frequency": "400kHz",
	}))
	assert.Equal(t, ws2812.StrategyOneShot, cfg.Strategy)
	assert.Equal(t, 12, cfg.LedCount)
	assert.Equal(t, "400kHz", cfg.BitFrequency)

	err = mapstructure.Decode(map[string]interface{}{"strategy": "pwm"}, &cfg)
	assert.NoError(t, err, "without the hook any string is accepted")

	dec, err = mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: ws2812.StrategyHookFunc(),
		Result:     &cfg,
	})
	require.NoError(t, err)
	assert.Error(t, dec.Decode(map[string]interface{}{"strategy": "pwm"}))
}

func TestConfig_ResetSamples(t *testing.T) {
	t.Parallel()

	tc, herr := ws2812.DefaultConfig().TimingConfig()
	require.Nil(t, herr)
	timing, herr := ws2812.CalculateTiming(testClock, tc)
	require.Nil(t, herr)

	testCases := []struct {
		name        string
		resetLength int
		minReset    time.Duration
		want        int
		wantErr     bool
	}{
		{"derived from datasheet minimum", 0, 0, 40, false},
		{"derived from custom minimum", 0, 280 * time.Microsecond, 224, false},
		{"configured", 50, 0, 50, false},
		{"configured too short", 39, 0, 0, true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := ws2812.DefaultConfig()
			cfg.ResetLength = tc.resetLength
			cfg.MinResetTime = tc.minReset

			got, herr := cfg.ResetSamples(timing)
			if tc.wantErr {
				assert.NotNil(t, herr)
				return
			}
			require.Nil(t, herr)
			assert.Equal(t, tc.want, got)
		})
	}
}
