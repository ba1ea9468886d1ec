//go:build !linux || tinygo

package hal

import "fmt"

// ClaimLine is only available on Linux.
func ClaimLine(chipName string, offset int) (OutputPin, error) {
	return nil, fmt.Errorf("claiming %s:%d is not supported on this platform", chipName, offset)
}
