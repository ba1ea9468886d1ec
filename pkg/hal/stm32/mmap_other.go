//go:build !linux || tinygo

package stm32

import "errors"

// Map is only available on Linux.
func Map(base uint32, size int) (*Window, error) {
	return nil, errors.New("mapping physical memory is not supported on this platform")
}
