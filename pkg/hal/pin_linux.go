//go:build linux && !tinygo

package hal

import (
	"errors"
	"fmt"

	"github.com/warthog618/gpiod"
)

// gpiodPin holds a character-device claim on the data line so nothing else
// in userspace can reconfigure it while the engine owns it.
type gpiodPin struct {
	chip *gpiod.Chip
	line *gpiod.Line
	name string
}

// ClaimLine requests offset on the given gpio chip (e.g. "gpiochip0") and
// keeps it reserved until Halt. The line is requested as input; its function
// is expected to be muxed to the timer output elsewhere.
func ClaimLine(chipName string, offset int) (OutputPin, error) {
	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiod.AsInput)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request %s line %d: %w", chipName, offset, err)
	}

	return &gpiodPin{
		chip: chip,
		line: line,
		name: fmt.Sprintf("%s:%d", chipName, offset),
	}, nil
}

func (p *gpiodPin) Name() string {
	return p.name
}

// Halt releases the line and the chip.
func (p *gpiodPin) Halt() error {
	return errors.Join(p.line.Close(), p.chip.Close())
}
