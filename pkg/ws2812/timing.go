package ws2812

import (
	"fmt"
	"math"
	"time"

	"github.com/sierrasoftworks/humane-errors-go"
	"periph.io/x/conn/v3/physic"
)

// TimingConfig holds the inputs of the timing calculation besides the clock.
type TimingConfig struct {
	BitFrequency physic.Frequency
	// CounterBits is the width of the timer counter, 16 on most parts.
	CounterBits   uint
	ZeroHighRatio float64
	OneHighRatio  float64
}

func (tc TimingConfig) validate() humane.Error {
	if tc.BitFrequency <= 0 {
		return humane.New("bit frequency must be positive",
			fmt.Sprintf("WS2812 LEDs expect %s", DefaultBitFrequency),
		)
	}
	if tc.CounterBits == 0 || tc.CounterBits > 16 {
		return humane.New("counter width must be between 1 and 16 bits",
			fmt.Sprintf("got %d bits, most timers have 16", tc.CounterBits),
		)
	}
	if !(tc.ZeroHighRatio > 0 && tc.ZeroHighRatio < tc.OneHighRatio && tc.OneHighRatio < 1) {
		return humane.New("duty ratios must satisfy 0 < zero < one < 1",
			fmt.Sprintf("got zero=%.3f one=%.3f, the datasheet nominals are %.2f and %.2f",
				tc.ZeroHighRatio, tc.OneHighRatio, DefaultZeroHighRatio, DefaultOneHighRatio),
		)
	}
	return nil
}

// Timing is the resolved timer configuration for one engine.
type Timing struct {
	Clock        physic.Frequency
	BitFrequency physic.Frequency
	Prescaler    uint16
	Period       uint16
	DutyZero     uint16
	DutyOne      uint16
}

// CalculateTiming derives prescaler, period and both duty values from the
// timer input clock.
func CalculateTiming(clock physic.Frequency, cfg TimingConfig) (Timing, humane.Error) {
	if herr := cfg.validate(); herr != nil {
		return Timing{}, herr
	}
	if clock <= 0 {
		return Timing{}, humane.New("timer clock must be positive",
			"check that the timer peripheral clock is enabled",
		)
	}

	// Both frequencies are in µHz, the ratio is unit-free.
	ticks := (int64(clock) + int64(cfg.BitFrequency)/2) / int64(cfg.BitFrequency)
	if ticks < 2 {
		return Timing{}, humane.New(
			fmt.Sprintf("timer clock %s is too slow for %s", clock, cfg.BitFrequency),
			"the timer needs at least two counts per bit, use a faster timer clock",
		)
	}

	psc := (ticks - 1) >> cfg.CounterBits
	if psc > math.MaxUint16 {
		return Timing{}, humane.New(
			fmt.Sprintf("timer clock %s is too fast for %s", clock, cfg.BitFrequency),
			fmt.Sprintf("prescaler %d does not fit 16 bits, use a slower timer clock", psc),
		)
	}
	period := (ticks+(psc+1)/2)/(psc+1) - 1
	if period <= 0 {
		return Timing{}, humane.New("resulting timer period is zero",
			fmt.Sprintf("clock %s cannot resolve %s", clock, cfg.BitFrequency),
		)
	}

	t := Timing{
		Clock:        clock,
		BitFrequency: cfg.BitFrequency,
		Prescaler:    uint16(psc),
		Period:       uint16(period),
		DutyZero:     uint16(math.Round(float64(period) * cfg.ZeroHighRatio)),
		DutyOne:      uint16(math.Round(float64(period) * cfg.OneHighRatio)),
	}
	if !(0 < t.DutyZero && t.DutyZero < t.DutyOne && t.DutyOne < t.Period) {
		return Timing{}, humane.New(
			fmt.Sprintf("period %d cannot separate zero and one bits (zero=%d one=%d)", t.Period, t.DutyZero, t.DutyOne),
			"use a faster timer clock to get a finer duty resolution",
		)
	}
	return t, nil
}

// ActualFrequency is the bit rate the programmed timer produces.
func (t Timing) ActualFrequency() physic.Frequency {
	return t.Clock / physic.Frequency(uint64(t.Prescaler)+1) / physic.Frequency(uint64(t.Period)+1)
}

// BitPeriod is the duration of one sample.
func (t Timing) BitPeriod() time.Duration {
	return t.ActualFrequency().Period()
}

// ResetSamples returns the smallest number of zero samples lasting at least minimum.
func (t Timing) ResetSamples(minimum time.Duration) int {
	if minimum <= 0 {
		return 0
	}
	bit := t.BitPeriod()
	if bit <= 0 {
		return 0
	}
	return int((minimum + bit - 1) / bit)
}

// HighTime returns the high time of a zero and a one bit.
func (t Timing) HighTime() (zero, one time.Duration) {
	bit, counts := t.BitPeriod(), time.Duration(t.Period)+1
	return bit * time.Duration(t.DutyZero) / counts, bit * time.Duration(t.DutyOne) / counts
}

func (t Timing) String() string {
	return fmt.Sprintf("psc=%d arr=%d zero=%d one=%d (%s)", t.Prescaler, t.Period, t.DutyZero, t.DutyOne, t.ActualFrequency())
}
