//go:build !ws2812debug

package ws2812

// debugAssertions turns misuse into a panic. Build with -tags ws2812debug to enable.
const debugAssertions = false
