package main

import (
	"bytes"
	"context"
	"strings"

	"github.com/compute-blade-community/ws281x-dma/internal/simulator"
	"github.com/compute-blade-community/ws281x-dma/pkg/hal/stm32"
	"github.com/compute-blade-community/ws281x-dma/pkg/ws2812"
	"github.com/mitchellh/mapstructure"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

const envPrefix = "WS281X"

type configContextKey int

const defaultConfigContextKey configContextKey = 0

// Config is the configuration file of ws281xctl.
type Config struct {
	Log LogConfig `mapstructure:"log" yaml:"log"`
	// TimerClock is the input clock of the timer on the target board.
	TimerClock string `mapstructure:"timer_clock" yaml:"timer_clock"`

	WS2812    ws2812.Config     `mapstructure:"ws2812" yaml:"ws2812"`
	Simulator simulator.Config  `mapstructure:"simulator" yaml:"simulator"`
	Board     stm32.BoardConfig `mapstructure:"board" yaml:"board"`
	Pin       PinConfig         `mapstructure:"pin" yaml:"pin"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// PinConfig names the gpio line carrying the data signal. An empty chip
// leaves the line unclaimed.
type PinConfig struct {
	Chip   string `mapstructure:"chip" yaml:"chip"`
	Offset int    `mapstructure:"offset" yaml:"offset"`
}

func defaultConfig() Config {
	sim := simulator.DefaultConfig()
	// Empty follows timer_clock.
	sim.TimerClock = ""

	return Config{
		Log:        LogConfig{Level: "info"},
		TimerClock: (72 * physic.MegaHertz).String(),
		WS2812:     ws2812.DefaultConfig(),
		Simulator:  sim,
		Board:      stm32.DefaultBoardConfig(),
	}
}

// simulatorConfig returns the simulator settings with the simulated timer
// running at timer_clock unless simulator.timer_clock overrides it.
func simulatorConfig(cfg Config) simulator.Config {
	sc := cfg.Simulator
	if sc.TimerClock == "" {
		sc.TimerClock = cfg.TimerClock
	}
	return sc
}

// loadConfig layers the defaults, the config file (if any), WS281X_ prefixed
// environment variables and the flags bound to v.
func loadConfig(v *viper.Viper, file string) (Config, humane.Error) {
	defaults, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return Config{}, humane.Wrap(err, "failed to render default configuration", "this is a bug, please report it")
	}

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, humane.Wrap(err, "failed to load default configuration", "this is a bug, please report it")
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, humane.Wrap(err, "failed to read config file "+file,
				"ensure the file exists and is valid YAML",
				"run 'ws281xctl config init' to create one",
			)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		ws2812.StrategyHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return Config{}, humane.Wrap(err, "failed to decode configuration",
			"check the types of the values in the config file and the "+envPrefix+"_ environment variables",
		)
	}
	if herr := cfg.WS2812.Validate(); herr != nil {
		return Config{}, herr
	}
	return cfg, nil
}

func timerClock(cfg Config) (physic.Frequency, humane.Error) {
	f, err := ws2812.ParseFrequency(cfg.TimerClock)
	if err != nil {
		return 0, humane.Wrap(err, "invalid timer clock",
			"set timer_clock to the frequency feeding the timer, such as \"72MHz\"",
		)
	}
	return f, nil
}

func configIntoContext(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, defaultConfigContextKey, cfg)
}

func configFromContext(ctx context.Context) Config {
	cfg, ok := ctx.Value(defaultConfigContextKey).(Config)
	if !ok {
		panic("configuration not found in context")
	}
	return cfg
}
